package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type fakeWS struct {
	mu       sync.Mutex
	messages [][]byte
	controls []int
	closed   bool
}

func (f *fakeWS) SetWriteDeadline(time.Time) error { return nil }

func (f *fakeWS) WriteMessage(messageType int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	f.messages = append(f.messages, cp)
	return nil
}

func (f *fakeWS) WriteControl(messageType int, data []byte, deadline time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.controls = append(f.controls, messageType)
	return nil
}

func (f *fakeWS) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeWS) snapshot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.messages))
	for i, m := range f.messages {
		out[i] = string(m)
	}
	return out
}

func (f *fakeWS) sentClose() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.controls {
		if c == websocket.CloseMessage {
			return true
		}
	}
	return false
}

func TestOutboundWriter_DrainsBothChannels(t *testing.T) {
	ws := &fakeWS{}
	priority := make(chan outboundFrame, 4)
	normal := make(chan outboundFrame, 4)

	normal <- outboundFrame{payload: []byte("n1")}
	priority <- outboundFrame{payload: []byte("p1")}
	close(priority)
	close(normal)

	w := outboundWriter{ws: ws, priority: priority, normal: normal}
	if err := w.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}

	got := ws.snapshot()
	if len(got) != 2 {
		t.Fatalf("wrote %d frames, want 2: %v", len(got), got)
	}
	if got[0] != "p1" {
		t.Fatalf("first frame=%q, want priority p1", got[0])
	}
}

func TestOutboundWriter_PriorityPreemptsPendingNormal(t *testing.T) {
	ws := &fakeWS{}
	priority := make(chan outboundFrame, 4)
	normal := make(chan outboundFrame, 4)

	// The normal frame is picked up as pending; the priority frame queued
	// behind it must still go out first.
	normal <- outboundFrame{payload: []byte("audio")}
	priority <- outboundFrame{payload: []byte("session_complete")}
	close(priority)
	close(normal)

	w := outboundWriter{ws: ws, priority: priority, normal: normal}
	if err := w.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}

	got := ws.snapshot()
	if len(got) != 2 || got[0] != "session_complete" || got[1] != "audio" {
		t.Fatalf("frames=%v, want [session_complete audio]", got)
	}
}

func TestOutboundWriter_ShutdownFlushesPriorityAndCloses(t *testing.T) {
	ws := &fakeWS{}
	priority := make(chan outboundFrame, 4)
	normal := make(chan outboundFrame, 4)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	priority <- outboundFrame{payload: []byte("final")}

	w := outboundWriter{ws: ws, ctx: ctx, priority: priority, normal: normal}
	if err := w.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}

	got := ws.snapshot()
	if len(got) != 1 || got[0] != "final" {
		t.Fatalf("frames=%v, want [final]", got)
	}
	if !ws.sentClose() {
		t.Fatalf("expected close control frame")
	}
	if !ws.closed {
		t.Fatalf("expected socket close")
	}
}

func TestOutboundWriter_SkipsEmptyPayloads(t *testing.T) {
	ws := &fakeWS{}
	priority := make(chan outboundFrame, 2)
	normal := make(chan outboundFrame)

	priority <- outboundFrame{}
	close(priority)
	close(normal)

	w := outboundWriter{ws: ws, priority: priority, normal: normal}
	if err := w.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := ws.snapshot(); len(got) != 0 {
		t.Fatalf("frames=%v, want none", got)
	}
}
