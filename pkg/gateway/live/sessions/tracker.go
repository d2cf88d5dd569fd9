// Package sessions tracks live interview sessions for graceful shutdown:
// notify every candidate, terminate every session, wait for the flush
// pipelines to finish.
package sessions

import (
	"context"
	"sync"
)

// Handle is how the tracker reaches into one running interview.
type Handle struct {
	// Terminate finalizes the session with the given reason.
	Terminate func(reason string)
	// Notify pushes an informational message to the candidate.
	Notify func(message string) error
}

type Tracker struct {
	mu       sync.Mutex
	sessions map[string]*trackedSession
	wg       sync.WaitGroup
}

type trackedSession struct {
	handle Handle
	once   sync.Once
}

func NewTracker() *Tracker {
	return &Tracker{
		sessions: make(map[string]*trackedSession),
	}
}

// Register adds a session. The returned unregister func is idempotent, and
// a re-registered session ID displaces the previous entry.
func (t *Tracker) Register(sessionID string, h Handle) (unregister func()) {
	if t == nil {
		return func() {}
	}

	entry := &trackedSession{handle: h}

	t.mu.Lock()
	if t.sessions == nil {
		t.sessions = make(map[string]*trackedSession)
	}
	old := t.sessions[sessionID]
	t.sessions[sessionID] = entry
	t.wg.Add(1)
	t.mu.Unlock()

	if old != nil {
		t.unregister(sessionID, old)
	}

	return func() { t.unregister(sessionID, entry) }
}

func (t *Tracker) unregister(sessionID string, entry *trackedSession) {
	if t == nil || entry == nil {
		return
	}
	entry.once.Do(func() {
		t.mu.Lock()
		if t.sessions != nil && t.sessions[sessionID] == entry {
			delete(t.sessions, sessionID)
		}
		t.mu.Unlock()
		t.wg.Done()
	})
}

func (t *Tracker) Count() int {
	if t == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sessions)
}

// NotifyAll pushes a message to every live session.
func (t *Tracker) NotifyAll(message string) (sent int) {
	if t == nil {
		return 0
	}

	var notifies []func(message string) error
	t.mu.Lock()
	for _, entry := range t.sessions {
		if entry == nil || entry.handle.Notify == nil {
			continue
		}
		notifies = append(notifies, entry.handle.Notify)
	}
	t.mu.Unlock()

	for _, notify := range notifies {
		_ = notify(message)
		sent++
	}
	return sent
}

// TerminateAll finalizes every live session with the given reason.
func (t *Tracker) TerminateAll(reason string) (terminated int) {
	if t == nil {
		return 0
	}

	var terminates []func(reason string)
	t.mu.Lock()
	for _, entry := range t.sessions {
		if entry == nil || entry.handle.Terminate == nil {
			continue
		}
		terminates = append(terminates, entry.handle.Terminate)
	}
	t.mu.Unlock()

	for _, terminate := range terminates {
		terminate(reason)
		terminated++
	}
	return terminated
}

// Wait blocks until every registered session has unregistered, or the
// context expires. Reports whether the tracker fully drained.
func (t *Tracker) Wait(ctx context.Context) bool {
	if t == nil {
		return true
	}
	if ctx == nil {
		t.wg.Wait()
		return true
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		t.wg.Wait()
	}()

	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	}
}
