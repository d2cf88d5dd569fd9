package upstream

import (
	"context"
	"testing"
)

func TestNormalizeTurnCompleteReason(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"TURN_COMPLETE_REASON_UNSPECIFIED", "unspecified"},
		{"TURN_COMPLETE_REASON_NEED_MORE_INPUT", "need_more_input"},
		{"TURN_COMPLETE_REASON_MALFORMED_FUNCTION_CALL", "malformed_function_call"},
		{"NEED_MORE_INPUT", "need_more_input"},
		{"  max_output_tokens  ", "max_output_tokens"},
	}
	for _, tc := range tests {
		if got := normalizeTurnCompleteReason(tc.in); got != tc.want {
			t.Fatalf("normalizeTurnCompleteReason(%q)=%q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNewGeminiConnector_RequiresAPIKey(t *testing.T) {
	if _, err := NewGeminiConnector(context.Background(), "  "); err == nil {
		t.Fatalf("expected error for blank api key")
	}
}
