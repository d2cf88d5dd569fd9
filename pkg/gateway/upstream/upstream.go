// Package upstream abstracts the realtime model provider behind narrow
// interfaces so session orchestration can be tested against fakes.
package upstream

import "context"

// Turn is one piece of conversation history or a client text input.
type Turn struct {
	Role string
	Text string
}

// MediaBlob is one realtime media chunk (PCM audio or an encoded frame).
type MediaBlob struct {
	MIMEType string
	Data     []byte
}

// RealtimeInput carries either a media chunk or the end-of-audio marker.
type RealtimeInput struct {
	Media          *MediaBlob
	AudioStreamEnd bool
}

// Transcription is a streaming transcription fragment for one direction.
type Transcription struct {
	Text     string
	Finished bool
}

// ResumptionUpdate refreshes the handle a client may use to resume the
// conversation after a reconnect.
type ResumptionUpdate struct {
	NewHandle string
	Resumable bool
}

// ServerEvent is one message received from the live model. Any subset of
// the fields may be populated.
type ServerEvent struct {
	// InputTranscription transcribes candidate audio.
	InputTranscription *Transcription
	// OutputTranscription transcribes model audio.
	OutputTranscription *Transcription

	// Data is model-produced PCM audio.
	Data []byte
	// Text is model-produced plain text.
	Text string

	// TurnComplete marks the end of a model turn. A non-empty reason other
	// than a continuation hint signals the model ended the conversation.
	TurnComplete       bool
	TurnCompleteReason string

	Interrupted bool

	Resumption *ResumptionUpdate
}

// LiveSession is one established bidirectional model conversation.
type LiveSession interface {
	// SendClientContent submits structured turns, optionally closing the
	// client's current turn.
	SendClientContent(ctx context.Context, turns []Turn, turnComplete bool) error
	// SendRealtimeInput streams a media chunk or the audio-end marker.
	SendRealtimeInput(ctx context.Context, in RealtimeInput) error
	// Receive blocks for the next model event. It returns io.EOF (or a
	// wrapped equivalent) when the model closes the conversation.
	Receive(ctx context.Context) (*ServerEvent, error)
	Close() error
}

// ConnectOptions parameterizes one live conversation.
type ConnectOptions struct {
	Model             string
	SystemInstruction string
	ResumeHandle      string
}

// Connector establishes live conversations with the model provider.
type Connector interface {
	Connect(ctx context.Context, opts ConnectOptions) (LiveSession, error)
}
