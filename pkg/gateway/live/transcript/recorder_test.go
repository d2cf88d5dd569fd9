package transcript

import (
	"testing"
	"time"
)

func fixedClock(t *testing.T) func() time.Time {
	t.Helper()
	base := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	n := 0
	return func() time.Time {
		now := base.Add(time.Duration(n) * time.Second)
		n++
		return now
	}
}

func TestRecorder_RecordAndDrain(t *testing.T) {
	r := NewRecorder(fixedClock(t))
	r.Record(RoleUser, map[string]any{"transcript": "hello"})
	r.Record(RoleAssistant, map[string]any{"text": "hi"})

	if r.Len() != 2 {
		t.Fatalf("len=%d, want 2", r.Len())
	}

	entries := r.Drain()
	if len(entries) != 2 {
		t.Fatalf("drained %d entries, want 2", len(entries))
	}
	if r.Len() != 0 {
		t.Fatalf("len after drain=%d, want 0", r.Len())
	}
	if entries[0].Timestamp != "2026-03-14T09:26:53.000Z" {
		t.Fatalf("timestamp=%q", entries[0].Timestamp)
	}
	if entries[0].Text != "hello" || entries[1].Text != "hi" {
		t.Fatalf("texts=%q/%q", entries[0].Text, entries[1].Text)
	}
}

func TestExtractText_Priority(t *testing.T) {
	tests := []struct {
		name    string
		payload map[string]any
		want    string
		ok      bool
	}{
		{"transcript wins", map[string]any{"transcript": " a ", "text": "b"}, "a", true},
		{"text", map[string]any{"text": "b"}, "b", true},
		{"segments joined", map[string]any{"segments": []any{
			map[string]any{"text": "one"},
			map[string]any{"text": "two"},
		}}, "one two", true},
		{"alternatives first", map[string]any{"alternatives": []any{
			map[string]any{"text": "first"},
			map[string]any{"text": "second"},
		}}, "first", true},
		{"empty payload", nil, "", false},
		{"no text anywhere", map[string]any{"confidence": 0.9}, "", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ExtractText(tc.payload)
			if got != tc.want || ok != tc.ok {
				t.Fatalf("ExtractText=%q/%v, want %q/%v", got, ok, tc.want, tc.ok)
			}
		})
	}
}

func TestFormat_CoalescesSameRoleRuns(t *testing.T) {
	entries := []Entry{
		{Timestamp: "t1", Role: RoleAssistant, Text: "Hello, "},
		{Timestamp: "t2", Role: RoleAssistant, Text: "welcome."},
		{Timestamp: "t3", Role: RoleUser, Text: "Thanks!"},
	}
	got := Format(entries)
	want := "[t1] ASSISTANT: Hello, welcome.\n[t3] USER: Thanks!"
	if got != want {
		t.Fatalf("Format=%q, want %q", got, want)
	}
}

func TestFormat_FinishedFlushesLine(t *testing.T) {
	entries := []Entry{
		{Timestamp: "t1", Role: RoleUser, Text: "part one", Payload: map[string]any{"finished": true}},
		{Timestamp: "t2", Role: RoleUser, Text: "part two"},
	}
	got := Format(entries)
	want := "[t1] USER: part one\n[t2] USER: part two"
	if got != want {
		t.Fatalf("Format=%q, want %q", got, want)
	}
}

func TestFormat_SkipsEmptyText(t *testing.T) {
	entries := []Entry{
		{Timestamp: "t1", Role: RoleUser, Text: "  "},
		{Timestamp: "t2", Role: "", Text: "orphan"},
	}
	if got := Format(entries); got != "" {
		t.Fatalf("Format=%q, want empty", got)
	}
}
