package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hireloop/hireloop/pkg/gateway/config"
	"github.com/hireloop/hireloop/pkg/gateway/live/sessions"
)

func testGateway() *Gateway {
	cfg := config.Config{
		AuthMode:             config.AuthModeDisabled,
		GeminiAPIKey:         "key",
		SendSampleRate:       16000,
		ReceiveSampleRate:    24000,
		LookAwayThreshold:    10,
		MaxWarnings:          3,
		RecordingsDir:        "recordings",
		LiveModel:            "models/test-live",
		ScoringModel:         "test-scoring",
		LiveHandshakeTimeout: 15 * time.Second,
		CORSAllowedOrigins: map[string]struct{}{
			"https://app.example.com": {},
		},
	}
	return New(Dependencies{Config: cfg})
}

func TestHandler_HealthAndReady(t *testing.T) {
	h := testGateway().Handler()

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("healthz status=%d, want 200", w.Code)
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("readyz status=%d, want 200: %s", w.Code, w.Body.String())
	}
}

func TestHandler_AttachesRequestID(t *testing.T) {
	h := testGateway().Handler()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatalf("missing X-Request-ID header")
	}
}

func TestHandler_APIUnavailableWithoutStore(t *testing.T) {
	h := testGateway().Handler()

	for _, path := range []string{
		"/api/v1/jobs",
		"/api/v1/resumes",
		"/api/v1/interviews",
		"/api/v1/interviews/7/result",
		"/api/v1/interviews/by-session/session_20260314_092653",
		"/api/v1/analytics/stats",
	} {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusServiceUnavailable {
			t.Fatalf("GET %s: status=%d, want 503", path, w.Code)
		}
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPatch,
		"/api/v1/interviews/by-session/session_20260314_092653/status", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("PATCH status route: status=%d, want 503", w.Code)
	}
}

func TestHandler_UnknownRouteAndMethod(t *testing.T) {
	h := testGateway().Handler()

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status=%d, want 404", w.Code)
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/healthz", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status=%d, want 405", w.Code)
	}
}

func TestHandler_CORSPreflight(t *testing.T) {
	h := testGateway().Handler()

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/jobs", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("status=%d, want 204", w.Code)
	}

	req = httptest.NewRequest(http.MethodOptions, "/api/v1/jobs", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Fatalf("status=%d, want 403", w.Code)
	}
}

func TestDrain_MarksGatewayDraining(t *testing.T) {
	gw := testGateway()

	done := make(chan struct{})
	go func() {
		defer close(done)
		gw.Drain(nil)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("drain with no sessions did not return")
	}

	// readyz flips to 503 once draining.
	w := httptest.NewRecorder()
	gw.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz status=%d, want 503 while draining", w.Code)
	}
}

func TestDrain_NotifiesThenTerminatesStragglers(t *testing.T) {
	gw := testGateway()

	notified := make(chan string, 1)
	terminated := make(chan string, 1)
	var unregister func()
	unregister = gw.Sessions().Register("s1", sessions.Handle{
		Notify: func(message string) error {
			notified <- message
			return nil
		},
		Terminate: func(reason string) {
			terminated <- reason
			unregister()
		},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		gw.Drain(ctx)
	}()

	select {
	case msg := <-notified:
		if msg == "" {
			t.Fatalf("empty drain notice")
		}
	case <-time.After(time.Second):
		t.Fatalf("session never notified")
	}
	select {
	case reason := <-terminated:
		if reason != "server_shutdown" {
			t.Fatalf("terminate reason=%q, want server_shutdown", reason)
		}
	case <-time.After(time.Second):
		t.Fatalf("session never terminated")
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("drain did not return")
	}
}
