package sessions

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestTracker_RegisterUnregister_CountAndWait(t *testing.T) {
	tr := NewTracker()
	if tr.Count() != 0 {
		t.Fatalf("initial count=%d, want 0", tr.Count())
	}

	u1 := tr.Register("s1", Handle{})
	u2 := tr.Register("s2", Handle{})
	if tr.Count() != 2 {
		t.Fatalf("count=%d, want 2", tr.Count())
	}

	u1()
	u1() // idempotent
	if tr.Count() != 1 {
		t.Fatalf("count=%d, want 1", tr.Count())
	}

	u2()
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if ok := tr.Wait(ctx); !ok {
		t.Fatalf("expected Wait to return true")
	}
	if tr.Count() != 0 {
		t.Fatalf("count=%d, want 0", tr.Count())
	}
}

func TestTracker_ReregisterDisplacesOldEntry(t *testing.T) {
	tr := NewTracker()
	u1 := tr.Register("s1", Handle{})
	u2 := tr.Register("s1", Handle{})
	if tr.Count() != 1 {
		t.Fatalf("count=%d, want 1", tr.Count())
	}

	u1() // stale unregister must not remove the new entry
	if tr.Count() != 1 {
		t.Fatalf("count=%d after stale unregister, want 1", tr.Count())
	}
	u2()
	if tr.Count() != 0 {
		t.Fatalf("count=%d, want 0", tr.Count())
	}
}

func TestTracker_TerminateAll(t *testing.T) {
	tr := NewTracker()
	var r1, r2 atomic.Value
	tr.Register("s1", Handle{Terminate: func(reason string) { r1.Store(reason) }})
	tr.Register("s2", Handle{Terminate: func(reason string) { r2.Store(reason) }})

	if n := tr.TerminateAll("server_shutdown"); n != 2 {
		t.Fatalf("terminated=%d, want 2", n)
	}
	if r1.Load() != "server_shutdown" || r2.Load() != "server_shutdown" {
		t.Fatalf("reasons=%v/%v", r1.Load(), r2.Load())
	}
}

func TestTracker_NotifyAll_BestEffort(t *testing.T) {
	tr := NewTracker()
	var n1, n2 atomic.Int64
	tr.Register("s1", Handle{Notify: func(string) error {
		n1.Add(1)
		return nil
	}})
	tr.Register("s2", Handle{Notify: func(string) error {
		n2.Add(1)
		return errors.New("backpressure")
	}})

	if sent := tr.NotifyAll("draining"); sent != 2 {
		t.Fatalf("sent=%d, want 2", sent)
	}
	if n1.Load() != 1 || n2.Load() != 1 {
		t.Fatalf("notify calls=%d/%d, want 1/1", n1.Load(), n2.Load())
	}
}

func TestTracker_WaitTimesOut(t *testing.T) {
	tr := NewTracker()
	_ = tr.Register("s1", Handle{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if ok := tr.Wait(ctx); ok {
		t.Fatalf("expected Wait to time out with a live session")
	}
}

func TestTracker_NilReceiverIsSafe(t *testing.T) {
	var tr *Tracker
	unregister := tr.Register("s1", Handle{})
	unregister()
	if tr.Count() != 0 {
		t.Fatalf("count on nil tracker=%d", tr.Count())
	}
	if !tr.Wait(context.Background()) {
		t.Fatalf("nil tracker Wait should report drained")
	}
}
