package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/hireloop/hireloop/pkg/gateway/config"
	"github.com/hireloop/hireloop/pkg/gateway/lifecycle"
	"github.com/hireloop/hireloop/pkg/gateway/live/sessions"
)

type HealthHandler struct{}

func (h HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

type ReadyHandler struct {
	Config       config.Config
	Lifecycle    *lifecycle.Lifecycle
	LiveSessions *sessions.Tracker
	StoreEnabled bool
}

func (h ReadyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	type readyResp struct {
		OK           bool     `json:"ok"`
		Draining     bool     `json:"draining"`
		AuthMode     string   `json:"auth_mode"`
		LiveSessions int      `json:"live_sessions"`
		StoreEnabled bool     `json:"store_enabled"`
		Issues       []string `json:"issues,omitempty"`
	}

	issues := make([]string, 0, 4)

	switch h.Config.AuthMode {
	case config.AuthModeRequired, config.AuthModeOptional, config.AuthModeDisabled:
	default:
		issues = append(issues, "invalid auth_mode")
	}
	if h.Config.AuthMode == config.AuthModeRequired && len(h.Config.APIKeys) == 0 {
		issues = append(issues, "auth_mode=required but no api keys configured")
	}
	if h.Config.GeminiAPIKey == "" {
		issues = append(issues, "GEMINI_API_KEY is not set")
	}
	if h.Config.SendSampleRate <= 0 || h.Config.ReceiveSampleRate <= 0 {
		issues = append(issues, "sample rates must be > 0")
	}
	if h.Config.LookAwayThreshold <= 0 || h.Config.MaxWarnings <= 0 {
		issues = append(issues, "attention monitoring thresholds must be > 0")
	}
	if h.Config.RecordingsDir == "" {
		issues = append(issues, "recordings dir must be set")
	}

	draining := h.Lifecycle.IsDraining()
	ok := len(issues) == 0 && !draining
	status := http.StatusOK
	if !ok {
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(readyResp{
		OK:           ok,
		Draining:     draining,
		AuthMode:     string(h.Config.AuthMode),
		LiveSessions: h.LiveSessions.Count(),
		StoreEnabled: h.StoreEnabled,
		Issues:       issues,
	})
}
