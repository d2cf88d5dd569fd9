package mw

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hireloop/hireloop/pkg/gateway/apierror"
	"github.com/hireloop/hireloop/pkg/gateway/config"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequestID_GeneratedAndEchoed(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = RequestIDFrom(r.Context())
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if seen == "" || !strings.HasPrefix(seen, "req_") {
		t.Fatalf("request id=%q, want req_ prefix", seen)
	}
	if got := w.Header().Get("X-Request-ID"); got != seen {
		t.Fatalf("header=%q, want %q", got, seen)
	}
}

func TestRequestID_ClientProvidedWins(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = RequestIDFrom(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req_custom")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if seen != "req_custom" {
		t.Fatalf("request id=%q, want req_custom", seen)
	}
}

func authConfig(mode config.AuthMode, keys ...string) config.Config {
	cfg := config.Config{AuthMode: mode, APIKeys: make(map[string]struct{})}
	for _, k := range keys {
		cfg.APIKeys[k] = struct{}{}
	}
	return cfg
}

func TestAuth_DisabledPassesThrough(t *testing.T) {
	h := Auth(authConfig(config.AuthModeDisabled), okHandler())
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d, want 200", w.Code)
	}
}

func TestAuth_RequiredRejectsMissingToken(t *testing.T) {
	h := Auth(authConfig(config.AuthModeRequired, "k1"), okHandler())
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status=%d, want 401", w.Code)
	}
	var envelope apierror.Envelope
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Error.Type != apierror.TypeAuthentication {
		t.Fatalf("type=%q", envelope.Error.Type)
	}
}

func TestAuth_RequiredAcceptsValidToken(t *testing.T) {
	h := Auth(authConfig(config.AuthModeRequired, "k1"), okHandler())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer k1")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d, want 200", w.Code)
	}
}

func TestAuth_RejectsUnknownToken(t *testing.T) {
	for _, mode := range []config.AuthMode{config.AuthModeRequired, config.AuthModeOptional} {
		h := Auth(authConfig(mode, "k1"), okHandler())
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer nope")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("mode=%s status=%d, want 401", mode, w.Code)
		}
	}
}

func TestAuth_OptionalPassesMissingToken(t *testing.T) {
	h := Auth(authConfig(config.AuthModeOptional, "k1"), okHandler())
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d, want 200", w.Code)
	}
}

func TestAuth_WebSocketUpgradeBypasses(t *testing.T) {
	h := Auth(authConfig(config.AuthModeRequired, "k1"), okHandler())
	req := httptest.NewRequest(http.MethodGet, "/ws/interview", nil)
	req.Header.Set("Upgrade", "websocket")
	req.Header.Set("Connection", "keep-alive, Upgrade")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d, want 200 for ws upgrade bypass", w.Code)
	}
}

func TestRecover_PanicBecomes500(t *testing.T) {
	h := Recover(nil, http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d, want 500", w.Code)
	}
}

func TestParseBearer(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, ok := parseBearer(req); ok {
		t.Fatalf("expected no token")
	}
	req.Header.Set("Authorization", "Basic abc")
	if _, ok := parseBearer(req); ok {
		t.Fatalf("expected basic auth to be rejected")
	}
	req.Header.Set("Authorization", "Bearer  tok ")
	token, ok := parseBearer(req)
	if !ok || token != "tok" {
		t.Fatalf("token=%q ok=%v", token, ok)
	}
}
