package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type AuthMode string

const (
	AuthModeRequired AuthMode = "required"
	AuthModeOptional AuthMode = "optional"
	AuthModeDisabled AuthMode = "disabled"
)

type Config struct {
	Addr string

	AuthMode AuthMode
	APIKeys  map[string]struct{}

	// CORS. Empty map disables cross-origin access.
	CORSAllowedOrigins map[string]struct{}

	// Live interview session knobs.
	LiveModel         string
	ScoringModel      string
	GeminiAPIKey      string
	SendSampleRate    int // candidate microphone PCM, Hz
	ReceiveSampleRate int // assistant audio PCM, Hz

	// Attention monitoring.
	FaceCascadePath   string
	LookAwayThreshold int
	MaxWarnings       int

	// Assistant phrases treated as an intentional end-of-interview signal.
	SignoffPhrases []string

	RecordingsDir string

	// WebSocket plumbing.
	LiveHandshakeTimeout time.Duration
	LiveWSPingInterval   time.Duration
	LiveWSWriteTimeout   time.Duration
	LiveMaxMessageBytes  int64
	OutboundQueueSize    int

	// Storage. Empty URL runs the gateway without the database-backed API.
	DatabaseURL string

	// Operational defaults.
	ReadHeaderTimeout   time.Duration
	ReadTimeout         time.Duration
	ShutdownGracePeriod time.Duration
}

func defaultSignoffPhrases() []string {
	return []string{
		"i hope you have a great day",
		"have a great day",
		"enjoy the rest of your day",
	}
}

func LoadFromEnv() (Config, error) {
	cfg := Config{
		Addr:                 envOr("HIRELOOP_ADDR", ":8080"),
		AuthMode:             AuthMode(envOr("HIRELOOP_AUTH_MODE", string(AuthModeDisabled))),
		APIKeys:              make(map[string]struct{}),
		CORSAllowedOrigins:   make(map[string]struct{}),
		LiveModel:            envOr("HIRELOOP_LIVE_MODEL", "models/gemini-2.5-flash-live-preview"),
		ScoringModel:         envOr("HIRELOOP_SCORING_MODEL", "gemini-2.5-flash"),
		GeminiAPIKey:         strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		SendSampleRate:       envIntOr("HIRELOOP_SEND_SAMPLE_RATE", 16000),
		ReceiveSampleRate:    envIntOr("HIRELOOP_RECEIVE_SAMPLE_RATE", 24000),
		FaceCascadePath:      envOr("HIRELOOP_FACE_CASCADE", "assets/facefinder"),
		LookAwayThreshold:    envIntOr("HIRELOOP_LOOKAWAY_THRESHOLD", 10),
		MaxWarnings:          envIntOr("HIRELOOP_MAX_WARNINGS", 3),
		SignoffPhrases:       defaultSignoffPhrases(),
		RecordingsDir:        envOr("HIRELOOP_RECORDINGS_DIR", "recordings"),
		LiveHandshakeTimeout: envDurationOr("HIRELOOP_LIVE_HANDSHAKE_TIMEOUT", 15*time.Second),
		LiveWSPingInterval:   envDurationOr("HIRELOOP_LIVE_WS_PING_INTERVAL", 20*time.Second),
		LiveWSWriteTimeout:   envDurationOr("HIRELOOP_LIVE_WS_WRITE_TIMEOUT", 5*time.Second),
		LiveMaxMessageBytes:  envInt64Or("HIRELOOP_LIVE_MAX_MESSAGE_BYTES", 8<<20),
		OutboundQueueSize:    envIntOr("HIRELOOP_OUTBOUND_QUEUE_SIZE", 128),
		DatabaseURL:          strings.TrimSpace(os.Getenv("HIRELOOP_DATABASE_URL")),
		ReadHeaderTimeout:    envDurationOr("HIRELOOP_READ_HEADER_TIMEOUT", 10*time.Second),
		ReadTimeout:          envDurationOr("HIRELOOP_READ_TIMEOUT", 30*time.Second),
		ShutdownGracePeriod:  envDurationOr("HIRELOOP_SHUTDOWN_GRACE_PERIOD", 30*time.Second),
	}

	switch cfg.AuthMode {
	case AuthModeRequired, AuthModeOptional, AuthModeDisabled:
	default:
		return Config{}, fmt.Errorf("HIRELOOP_AUTH_MODE must be one of required|optional|disabled")
	}

	for _, key := range splitCSV(os.Getenv("HIRELOOP_API_KEYS")) {
		cfg.APIKeys[key] = struct{}{}
	}
	for _, origin := range splitCSV(os.Getenv("HIRELOOP_CORS_ORIGINS")) {
		cfg.CORSAllowedOrigins[origin] = struct{}{}
	}
	if phrases := splitCSV(os.Getenv("HIRELOOP_SIGNOFF_PHRASES")); len(phrases) > 0 {
		cfg.SignoffPhrases = cfg.SignoffPhrases[:0]
		for _, p := range phrases {
			cfg.SignoffPhrases = append(cfg.SignoffPhrases, strings.ToLower(p))
		}
	}

	if strings.TrimSpace(cfg.LiveModel) == "" {
		return Config{}, fmt.Errorf("HIRELOOP_LIVE_MODEL must not be empty")
	}
	if strings.TrimSpace(cfg.ScoringModel) == "" {
		return Config{}, fmt.Errorf("HIRELOOP_SCORING_MODEL must not be empty")
	}
	if cfg.SendSampleRate <= 0 {
		return Config{}, fmt.Errorf("HIRELOOP_SEND_SAMPLE_RATE must be > 0")
	}
	if cfg.ReceiveSampleRate <= 0 {
		return Config{}, fmt.Errorf("HIRELOOP_RECEIVE_SAMPLE_RATE must be > 0")
	}
	if cfg.LookAwayThreshold <= 0 {
		return Config{}, fmt.Errorf("HIRELOOP_LOOKAWAY_THRESHOLD must be > 0")
	}
	if cfg.MaxWarnings <= 0 {
		return Config{}, fmt.Errorf("HIRELOOP_MAX_WARNINGS must be > 0")
	}
	if len(cfg.SignoffPhrases) == 0 {
		return Config{}, fmt.Errorf("HIRELOOP_SIGNOFF_PHRASES must not be empty")
	}
	if strings.TrimSpace(cfg.RecordingsDir) == "" {
		return Config{}, fmt.Errorf("HIRELOOP_RECORDINGS_DIR must not be empty")
	}
	if cfg.LiveHandshakeTimeout <= 0 {
		return Config{}, fmt.Errorf("HIRELOOP_LIVE_HANDSHAKE_TIMEOUT must be > 0")
	}
	if cfg.LiveWSPingInterval <= 0 {
		return Config{}, fmt.Errorf("HIRELOOP_LIVE_WS_PING_INTERVAL must be > 0")
	}
	if cfg.LiveWSWriteTimeout <= 0 {
		return Config{}, fmt.Errorf("HIRELOOP_LIVE_WS_WRITE_TIMEOUT must be > 0")
	}
	if cfg.LiveMaxMessageBytes <= 0 {
		return Config{}, fmt.Errorf("HIRELOOP_LIVE_MAX_MESSAGE_BYTES must be > 0")
	}
	if cfg.OutboundQueueSize <= 0 {
		return Config{}, fmt.Errorf("HIRELOOP_OUTBOUND_QUEUE_SIZE must be > 0")
	}
	if cfg.ReadHeaderTimeout <= 0 {
		return Config{}, fmt.Errorf("HIRELOOP_READ_HEADER_TIMEOUT must be > 0")
	}
	if cfg.ReadTimeout <= 0 {
		return Config{}, fmt.Errorf("HIRELOOP_READ_TIMEOUT must be > 0")
	}
	if cfg.ShutdownGracePeriod <= 0 {
		return Config{}, fmt.Errorf("HIRELOOP_SHUTDOWN_GRACE_PERIOD must be > 0")
	}

	if cfg.AuthMode == AuthModeRequired && len(cfg.APIKeys) == 0 {
		return Config{}, fmt.Errorf("HIRELOOP_API_KEYS must be set when HIRELOOP_AUTH_MODE=required")
	}

	return cfg, nil
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envIntOr(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func envInt64Or(key string, def int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func envDurationOr(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return d
}

func splitCSV(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
