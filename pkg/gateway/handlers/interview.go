package handlers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hireloop/hireloop/pkg/gateway/config"
	"github.com/hireloop/hireloop/pkg/gateway/lifecycle"
	"github.com/hireloop/hireloop/pkg/gateway/live/attention"
	"github.com/hireloop/hireloop/pkg/gateway/live/media"
	"github.com/hireloop/hireloop/pkg/gateway/live/protocol"
	"github.com/hireloop/hireloop/pkg/gateway/live/session"
	"github.com/hireloop/hireloop/pkg/gateway/live/sessions"
	"github.com/hireloop/hireloop/pkg/gateway/live/transcript"
	"github.com/hireloop/hireloop/pkg/gateway/mw"
	"github.com/hireloop/hireloop/pkg/gateway/scoring"
	"github.com/hireloop/hireloop/pkg/gateway/store"
	"github.com/hireloop/hireloop/pkg/gateway/upstream"
)

// InterviewHandler runs /ws/interview websocket sessions.
type InterviewHandler struct {
	Config       config.Config
	Logger       *slog.Logger
	Connector    upstream.Connector
	Scorer       scoring.Scorer
	Store        session.ResultStore
	Detector     attention.Detector
	Lifecycle    *lifecycle.Lifecycle
	LiveSessions *sessions.Tracker
	Now          func() time.Time
}

func (h InterviewHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h InterviewHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reqID, _ := mw.RequestIDFrom(r.Context())
	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if h.Lifecycle != nil && h.Lifecycle.IsDraining() {
		http.Error(w, "gateway is draining", http.StatusServiceUnavailable)
		return
	}
	if !h.originAllowed(r) {
		http.Error(w, "origin is not allowed", http.StatusForbidden)
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(*http.Request) bool { return true },
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	if h.Config.LiveMaxMessageBytes > 0 {
		conn.SetReadLimit(h.Config.LiveMaxMessageBytes)
	}

	// The first frame must carry the hiring context the interviewer is
	// grounded in.
	handshakeTimeout := h.Config.LiveHandshakeTimeout
	if handshakeTimeout <= 0 {
		handshakeTimeout = 15 * time.Second
	}
	_ = conn.SetReadDeadline(h.now().Add(handshakeTimeout))
	messageType, firstFrame, err := conn.ReadMessage()
	if err != nil {
		h.writeWSError(conn, "bad_request", "failed to read context frame")
		return
	}
	if messageType != websocket.TextMessage {
		h.writeWSError(conn, "bad_request", "first frame must be a context message")
		return
	}
	decoded, err := protocol.DecodeClientMessage(firstFrame)
	if err != nil {
		h.writeWSError(conn, "bad_request", "invalid context frame")
		return
	}
	ctxMsg, ok := decoded.(protocol.ClientContext)
	if !ok {
		h.writeWSError(conn, "bad_request", "first frame must be a context message")
		return
	}
	_ = conn.SetReadDeadline(time.Time{})

	sessionID := strings.TrimSpace(r.URL.Query().Get("session"))
	if sessionID == "" {
		sessionID = session.NewSessionID(h.now())
	}
	resumeHandle := strings.TrimSpace(r.URL.Query().Get("resume"))

	if h.Store != nil {
		if err := h.Store.UpdateInterviewStatus(r.Context(), sessionID, store.InterviewStatusInProgress); err != nil {
			logger.Debug("no interview row to mark in progress", "session_id", sessionID, "error", err)
		}
	}

	monitor := attention.NewMonitor(h.Detector, h.Config.LookAwayThreshold, h.Config.MaxWarnings)
	buffer := media.NewBuffer()
	recorder := transcript.NewRecorder(h.Now)

	pipeline := &session.Pipeline{
		Logger:            logger,
		SessionID:         sessionID,
		RecordingsDir:     h.Config.RecordingsDir,
		SendSampleRate:    h.Config.SendSampleRate,
		ReceiveSampleRate: h.Config.ReceiveSampleRate,
		Media:             buffer,
		Transcripts:       recorder,
		Scorer:            h.Scorer,
		ScoringModel:      h.Config.ScoringModel,
		Store:             h.Store,
	}

	s, err := session.New(session.Dependencies{
		Conn:              conn,
		Logger:            logger,
		Connector:         h.Connector,
		Monitor:           monitor,
		Media:             buffer,
		Transcripts:       recorder,
		Flusher:           pipeline,
		SessionID:         sessionID,
		RequestID:         reqID,
		Model:             h.Config.LiveModel,
		SystemInstruction: buildSystemInstruction(ctxMsg.JobDescriptionText, ctxMsg.ResumeText, sessionID),
		ResumeHandle:      resumeHandle,
		Context: session.ContextInfo{
			JobDescriptionText: ctxMsg.JobDescriptionText,
			ResumeText:         ctxMsg.ResumeText,
		},
		Config: session.Config{
			SendSampleRate:    h.Config.SendSampleRate,
			ReceiveSampleRate: h.Config.ReceiveSampleRate,
			SignoffPhrases:    h.Config.SignoffPhrases,
			PingInterval:      h.Config.LiveWSPingInterval,
			WriteTimeout:      h.Config.LiveWSWriteTimeout,
			ReadTimeout:       h.Config.ReadTimeout,
			MaxMessageBytes:   h.Config.LiveMaxMessageBytes,
			OutboundQueueSize: h.Config.OutboundQueueSize,
		},
		Now: h.Now,
	})
	if err != nil {
		h.writeWSError(conn, "internal", "failed to initialize interview session")
		return
	}

	unregister := func() {}
	if h.LiveSessions != nil {
		unregister = h.LiveSessions.Register(sessionID, sessions.Handle{
			Terminate: s.Terminate,
			Notify:    s.Notify,
		})
	}
	defer unregister()

	if err := s.Run(); err != nil {
		logger.Warn("interview session ended with error",
			"session_id", sessionID, "request_id", reqID, "error", err)
	}
}

func (h InterviewHandler) originAllowed(r *http.Request) bool {
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		return true
	}
	if len(h.Config.CORSAllowedOrigins) == 0 {
		return false
	}
	_, ok := h.Config.CORSAllowedOrigins[origin]
	return ok
}

func (h InterviewHandler) writeWSError(conn *websocket.Conn, code, message string) {
	_ = conn.WriteJSON(protocol.ServerError{Type: "error", Error: code, Details: message})
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, message), time.Now().Add(2*time.Second))
}
