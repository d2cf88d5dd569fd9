package attention

import (
	"image"
	"log/slog"
	"path/filepath"
	"testing"
)

func staticDetector(present *bool) Detector {
	return func(image.Image) bool { return *present }
}

func blank() image.Image {
	return image.NewRGBA(image.Rect(0, 0, 4, 4))
}

func TestMonitor_WarnAfterSustainedAbsence(t *testing.T) {
	present := false
	m := NewMonitor(staticDetector(&present), 10, 3)

	for i := 0; i < 10; i++ {
		if act := m.Observe(blank()); act.Kind != ActionNone {
			t.Fatalf("frame %d: kind=%v, want none", i, act.Kind)
		}
	}
	act := m.Observe(blank())
	if act.Kind != ActionWarn {
		t.Fatalf("kind=%v, want warn", act.Kind)
	}
	if act.Warnings != 1 || act.Remaining != 2 {
		t.Fatalf("warnings=%d remaining=%d, want 1/2", act.Warnings, act.Remaining)
	}
}

func TestMonitor_FacePresenceResetsAbsence(t *testing.T) {
	present := false
	m := NewMonitor(staticDetector(&present), 3, 3)

	for i := 0; i < 3; i++ {
		m.Observe(blank())
	}
	present = true
	m.Observe(blank()) // resets the absence streak
	present = false
	for i := 0; i < 3; i++ {
		if act := m.Observe(blank()); act.Kind != ActionNone {
			t.Fatalf("frame %d after reset: kind=%v, want none", i, act.Kind)
		}
	}
	if act := m.Observe(blank()); act.Kind != ActionWarn {
		t.Fatalf("kind=%v, want warn", act.Kind)
	}
}

func TestMonitor_TerminatesAtCeiling(t *testing.T) {
	present := false
	m := NewMonitor(staticDetector(&present), 2, 2)

	var kinds []ActionKind
	for i := 0; i < 7; i++ {
		kinds = append(kinds, m.Observe(blank()).Kind)
	}
	// threshold 2: frames 1-2 none, frame 3 warn; frames 4-5 none, frame 6
	// reaches the ceiling and terminates; frame 7 keeps terminating.
	want := []ActionKind{ActionNone, ActionNone, ActionWarn, ActionNone, ActionNone, ActionTerminate, ActionTerminate}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("frame %d: kind=%v, want %v (all=%v)", i, kinds[i], want[i], kinds)
		}
	}
	if m.Warnings() != 2 {
		t.Fatalf("warnings=%d, want 2", m.Warnings())
	}
}

func TestMonitor_NilDetectorIsNoop(t *testing.T) {
	m := NewMonitor(nil, 1, 1)
	for i := 0; i < 5; i++ {
		if act := m.Observe(blank()); act.Kind != ActionNone {
			t.Fatalf("kind=%v, want none with nil detector", act.Kind)
		}
	}
}

func TestNewPigoDetector_MissingCascade(t *testing.T) {
	logger := slog.Default()
	if d := NewPigoDetector(filepath.Join(t.TempDir(), "missing"), logger); d != nil {
		t.Fatalf("expected nil detector for missing cascade")
	}
}

func TestDecodeFrame_RejectsGarbage(t *testing.T) {
	if _, err := DecodeFrame([]byte("not an image")); err == nil {
		t.Fatalf("expected decode error")
	}
}
