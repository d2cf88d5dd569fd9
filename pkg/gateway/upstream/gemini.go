package upstream

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GeminiConnector dials the Gemini Live API.
type GeminiConnector struct {
	client *genai.Client
}

func NewGeminiConnector(ctx context.Context, apiKey string) (*GeminiConnector, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("gemini: api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: new client: %w", err)
	}
	return &GeminiConnector{client: client}, nil
}

// Client exposes the underlying genai client for non-live use (scoring).
func (c *GeminiConnector) Client() *genai.Client {
	return c.client
}

func (c *GeminiConnector) Connect(ctx context.Context, opts ConnectOptions) (LiveSession, error) {
	cfg := &genai.LiveConnectConfig{
		ResponseModalities:       []genai.Modality{genai.ModalityAudio},
		InputAudioTranscription:  &genai.AudioTranscriptionConfig{},
		OutputAudioTranscription: &genai.AudioTranscriptionConfig{},
		SessionResumption:        &genai.SessionResumptionConfig{},
	}
	if strings.TrimSpace(opts.SystemInstruction) != "" {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: opts.SystemInstruction}},
		}
	}
	if strings.TrimSpace(opts.ResumeHandle) != "" {
		cfg.SessionResumption.Handle = opts.ResumeHandle
	}

	session, err := c.client.Live.Connect(ctx, opts.Model, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: live connect: %w", err)
	}
	return &geminiSession{session: session}, nil
}

type geminiSession struct {
	session *genai.Session
}

func (s *geminiSession) SendClientContent(_ context.Context, turns []Turn, turnComplete bool) error {
	contents := make([]*genai.Content, 0, len(turns))
	for _, t := range turns {
		role := t.Role
		if role == "" {
			role = genai.RoleUser
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: t.Text}},
		})
	}
	return s.session.SendClientContent(genai.LiveClientContentInput{
		Turns:        contents,
		TurnComplete: genai.Ptr(turnComplete),
	})
}

func (s *geminiSession) SendRealtimeInput(_ context.Context, in RealtimeInput) error {
	if in.AudioStreamEnd {
		return s.session.SendRealtimeInput(genai.LiveRealtimeInput{AudioStreamEnd: true})
	}
	if in.Media == nil {
		return nil
	}
	return s.session.SendRealtimeInput(genai.LiveRealtimeInput{
		Media: &genai.Blob{Data: in.Media.Data, MIMEType: in.Media.MIMEType},
	})
}

func (s *geminiSession) Receive(_ context.Context) (*ServerEvent, error) {
	msg, err := s.session.Receive()
	if err != nil {
		return nil, err
	}

	event := &ServerEvent{}
	if sc := msg.ServerContent; sc != nil {
		if sc.InputTranscription != nil {
			event.InputTranscription = &Transcription{
				Text:     sc.InputTranscription.Text,
				Finished: sc.InputTranscription.Finished,
			}
		}
		if sc.OutputTranscription != nil {
			event.OutputTranscription = &Transcription{
				Text:     sc.OutputTranscription.Text,
				Finished: sc.OutputTranscription.Finished,
			}
		}
		if sc.ModelTurn != nil {
			for _, part := range sc.ModelTurn.Parts {
				if part == nil {
					continue
				}
				if part.InlineData != nil && len(part.InlineData.Data) > 0 {
					event.Data = append(event.Data, part.InlineData.Data...)
				}
				if part.Text != "" {
					event.Text += part.Text
				}
			}
		}
		event.TurnComplete = sc.TurnComplete
		event.TurnCompleteReason = normalizeTurnCompleteReason(string(sc.TurnCompleteReason))
		event.Interrupted = sc.Interrupted
	}
	if ru := msg.SessionResumptionUpdate; ru != nil {
		event.Resumption = &ResumptionUpdate{
			NewHandle: ru.NewHandle,
			Resumable: ru.Resumable,
		}
	}
	return event, nil
}

// normalizeTurnCompleteReason lowers the SDK enum into the reason
// vocabulary the session filter works with, so the shared enum prefix
// never reads as a terminal cause ("TURN_COMPLETE_REASON_UNSPECIFIED"
// becomes "unspecified").
func normalizeTurnCompleteReason(reason string) string {
	reason = strings.ToLower(strings.TrimSpace(reason))
	return strings.TrimPrefix(reason, "turn_complete_reason_")
}

func (s *geminiSession) Close() error {
	return s.session.Close()
}
