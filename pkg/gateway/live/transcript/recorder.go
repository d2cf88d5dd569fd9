// Package transcript accumulates streaming transcription fragments and
// renders them into a readable two-party script.
package transcript

import (
	"strings"
	"sync"
	"time"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Entry is one recorded transcription fragment.
type Entry struct {
	Timestamp string         `json:"timestamp"`
	Role      string         `json:"role"`
	Payload   map[string]any `json:"payload"`
	Text      string         `json:"text,omitempty"`
}

// Recorder is safe for one writer (the model pump) and one drainer (the
// flush pipeline); Drain snapshots and clears under the same lock.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
	now     func() time.Time
}

func NewRecorder(now func() time.Time) *Recorder {
	if now == nil {
		now = time.Now
	}
	return &Recorder{now: now}
}

// Record appends a fragment with a capture timestamp. Extracted text is
// stored alongside the raw payload when the payload yields any.
func (r *Recorder) Record(role string, payload map[string]any) {
	entry := Entry{
		Timestamp: r.now().UTC().Format("2006-01-02T15:04:05.000Z"),
		Role:      role,
		Payload:   payload,
	}
	if text, ok := ExtractText(payload); ok {
		entry.Text = text
	}
	r.mu.Lock()
	r.entries = append(r.entries, entry)
	r.mu.Unlock()
}

// Drain returns all recorded entries and clears the backing sequence.
func (r *Recorder) Drain() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.entries
	r.entries = nil
	return out
}

func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// ExtractText pulls display text out of a transcription payload. Priority:
// a direct "transcript" field, a direct "text" field, the concatenation of
// "segments" texts, then the first "alternatives" text. First match wins.
func ExtractText(payload map[string]any) (string, bool) {
	if len(payload) == 0 {
		return "", false
	}
	if s, ok := payload["transcript"].(string); ok {
		return strings.TrimSpace(s), true
	}
	if s, ok := payload["text"].(string); ok {
		return strings.TrimSpace(s), true
	}

	if segments, ok := payload["segments"].([]any); ok {
		parts := make([]string, 0, len(segments))
		for _, seg := range segments {
			obj, ok := seg.(map[string]any)
			if !ok {
				continue
			}
			if s, ok := obj["text"].(string); ok {
				parts = append(parts, s)
			}
		}
		if len(parts) > 0 {
			return strings.TrimSpace(strings.Join(parts, " ")), true
		}
	}

	if alternatives, ok := payload["alternatives"].([]any); ok {
		for _, alt := range alternatives {
			obj, ok := alt.(map[string]any)
			if !ok {
				continue
			}
			if s, ok := obj["text"].(string); ok {
				return strings.TrimSpace(s), true
			}
		}
	}
	return "", false
}

// Format coalesces consecutive same-role fragments into single lines of the
// form "[timestamp] ROLE: text". A role change or a finished:true marker in
// the payload flushes the line being built.
func Format(entries []Entry) string {
	var lines []string
	var currentRole, currentTimestamp string
	var currentParts []string

	flush := func() {
		if currentRole == "" || len(currentParts) == 0 {
			return
		}
		combined := strings.TrimSpace(strings.Join(currentParts, ""))
		if combined != "" {
			lines = append(lines, "["+currentTimestamp+"] "+strings.ToUpper(currentRole)+": "+combined)
		}
	}

	for _, entry := range entries {
		if entry.Role == "" || strings.TrimSpace(entry.Text) == "" {
			continue
		}

		timestamp := entry.Timestamp
		if timestamp == "" {
			timestamp = currentTimestamp
		}

		if entry.Role != currentRole {
			flush()
			currentRole = entry.Role
			currentTimestamp = timestamp
			currentParts = []string{entry.Text}
		} else {
			currentParts = append(currentParts, entry.Text)
		}

		if finished, ok := entry.Payload["finished"].(bool); ok && finished {
			flush()
			currentRole, currentTimestamp, currentParts = "", "", nil
		}
	}
	flush()

	return strings.Join(lines, "\n")
}
