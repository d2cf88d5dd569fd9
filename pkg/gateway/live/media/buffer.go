// Package media accumulates the two raw PCM streams of an interview session
// and turns them into WAV artifacts at flush time.
package media

import (
	"fmt"
	"sync"
)

// Direction names one of the two independent audio flows of a session.
type Direction int

const (
	// DirAssistant is model-produced audio played to the candidate.
	DirAssistant Direction = iota
	// DirCandidate is microphone audio captured from the candidate.
	DirCandidate
)

func (d Direction) String() string {
	switch d {
	case DirAssistant:
		return "assistant"
	case DirCandidate:
		return "candidate"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

// Buffer holds both directions. Each direction has its own lock so the two
// pumps never serialize against each other.
type Buffer struct {
	assistantMu sync.Mutex
	assistant   []byte

	candidateMu sync.Mutex
	candidate   []byte
}

func NewBuffer() *Buffer {
	return &Buffer{}
}

func (b *Buffer) Append(dir Direction, pcm []byte) {
	if len(pcm) == 0 {
		return
	}
	switch dir {
	case DirAssistant:
		b.assistantMu.Lock()
		b.assistant = append(b.assistant, pcm...)
		b.assistantMu.Unlock()
	case DirCandidate:
		b.candidateMu.Lock()
		b.candidate = append(b.candidate, pcm...)
		b.candidateMu.Unlock()
	}
}

// SnapshotAndClear returns the direction's accumulated bytes and empties it
// in one critical section. A second call observes an empty buffer.
func (b *Buffer) SnapshotAndClear(dir Direction) []byte {
	switch dir {
	case DirAssistant:
		b.assistantMu.Lock()
		defer b.assistantMu.Unlock()
		out := b.assistant
		b.assistant = nil
		return out
	case DirCandidate:
		b.candidateMu.Lock()
		defer b.candidateMu.Unlock()
		out := b.candidate
		b.candidate = nil
		return out
	default:
		return nil
	}
}

func (b *Buffer) Len(dir Direction) int {
	switch dir {
	case DirAssistant:
		b.assistantMu.Lock()
		defer b.assistantMu.Unlock()
		return len(b.assistant)
	case DirCandidate:
		b.candidateMu.Lock()
		defer b.candidateMu.Unlock()
		return len(b.candidate)
	default:
		return 0
	}
}
