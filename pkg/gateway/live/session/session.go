// Package session orchestrates one live interview: the client WebSocket on
// one side, the realtime model on the other, with attention monitoring,
// media capture and transcript recording in between.
package session

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/hireloop/hireloop/pkg/gateway/live/attention"
	"github.com/hireloop/hireloop/pkg/gateway/live/media"
	"github.com/hireloop/hireloop/pkg/gateway/live/protocol"
	"github.com/hireloop/hireloop/pkg/gateway/live/transcript"
	"github.com/hireloop/hireloop/pkg/gateway/upstream"
)

const outboundPriorityQueueSize = 8

var errBackpressure = errors.New("live outbound backpressure")

// Termination reasons. The first reason assigned wins; every later
// finalize call is a no-op.
const (
	ReasonClientStop         = "client_stop"
	ReasonClientDisconnected = "client_disconnected"
	ReasonAssistantSignoff   = "assistant_signoff"
	ReasonLookAwayLimit      = "look_away_limit"
	ReasonUpstreamError      = "upstream_error"
	ReasonSessionExpired     = "session_expired"
)

// Conn is the subset of *websocket.Conn the session needs.
type Conn interface {
	ReadMessage() (messageType int, data []byte, err error)
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	SetWriteDeadline(t time.Time) error
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	Close() error
}

// ContextInfo is the hiring context the conversation is grounded in.
type ContextInfo struct {
	JobDescriptionText string
	ResumeText         string
}

// Flusher persists session artifacts once the session terminates.
type Flusher interface {
	Flush(ctx context.Context, reason string, info ContextInfo) protocol.ServerRecordings
}

type Config struct {
	SendSampleRate    int
	ReceiveSampleRate int
	SignoffPhrases    []string
	PingInterval      time.Duration
	WriteTimeout      time.Duration
	ReadTimeout       time.Duration
	MaxMessageBytes   int64
	OutboundQueueSize int
}

type Dependencies struct {
	Conn              Conn
	Logger            *slog.Logger
	Connector         upstream.Connector
	Monitor           *attention.Monitor
	Media             *media.Buffer
	Transcripts       *transcript.Recorder
	Flusher           Flusher
	SessionID         string
	RequestID         string
	Model             string
	SystemInstruction string
	ResumeHandle      string
	Context           ContextInfo
	Config            Config
	Now               func() time.Time
}

type Session struct {
	conn        Conn
	logger      *slog.Logger
	connector   upstream.Connector
	monitor     *attention.Monitor
	media       *media.Buffer
	transcripts *transcript.Recorder
	flusher     Flusher
	sessionID   string
	requestID   string
	model       string
	systemInstr string
	cfg         Config
	now         func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	writerCtx    context.Context
	writerCancel context.CancelFunc

	outboundPriority chan outboundFrame
	outboundNormal   chan outboundFrame

	upMu sync.Mutex
	up   upstream.LiveSession

	termMu     sync.Mutex
	termReason string
	termDetail string

	ctxInfoMu    sync.Mutex
	ctxInfo      ContextInfo
	resumeHandle string

	flushOnce sync.Once
}

type inboundFrame struct {
	messageType int
	data        []byte
	err         error
}

func New(deps Dependencies) (*Session, error) {
	if deps.Conn == nil {
		return nil, fmt.Errorf("connection is required")
	}
	if deps.Connector == nil {
		return nil, fmt.Errorf("upstream connector is required")
	}
	if deps.Media == nil {
		return nil, fmt.Errorf("media buffer is required")
	}
	if deps.Transcripts == nil {
		return nil, fmt.Errorf("transcript recorder is required")
	}
	if strings.TrimSpace(deps.Model) == "" {
		return nil, fmt.Errorf("model name is required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Config.SendSampleRate <= 0 {
		deps.Config.SendSampleRate = 16000
	}
	if deps.Config.ReceiveSampleRate <= 0 {
		deps.Config.ReceiveSampleRate = 24000
	}
	if deps.Config.OutboundQueueSize <= 0 {
		deps.Config.OutboundQueueSize = 128
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	ctx, cancel := context.WithCancel(context.Background())
	writerCtx, writerCancel := context.WithCancel(context.Background())
	return &Session{
		conn:             deps.Conn,
		logger:           deps.Logger,
		connector:        deps.Connector,
		monitor:          deps.Monitor,
		media:            deps.Media,
		transcripts:      deps.Transcripts,
		flusher:          deps.Flusher,
		sessionID:        deps.SessionID,
		requestID:        deps.RequestID,
		model:            deps.Model,
		systemInstr:      deps.SystemInstruction,
		cfg:              deps.Config,
		now:              deps.Now,
		ctx:              ctx,
		cancel:           cancel,
		writerCtx:        writerCtx,
		writerCancel:     writerCancel,
		outboundPriority: make(chan outboundFrame, outboundPriorityQueueSize),
		outboundNormal:   make(chan outboundFrame, deps.Config.OutboundQueueSize),
		ctxInfo:          deps.Context,
		resumeHandle:     deps.ResumeHandle,
	}, nil
}

// Run drives the session to completion. It returns nil for any orderly
// termination; the termination reason travels to the client in a
// session_complete frame, never in the error.
func (s *Session) Run() error {
	if s.cfg.MaxMessageBytes > 0 {
		s.conn.SetReadLimit(s.cfg.MaxMessageBytes)
	}
	if s.cfg.ReadTimeout > 0 {
		_ = s.conn.SetReadDeadline(s.now().Add(s.cfg.ReadTimeout))
		s.conn.SetPongHandler(func(string) error {
			return s.conn.SetReadDeadline(s.now().Add(s.cfg.ReadTimeout))
		})
	}

	writerErrCh := make(chan error, 1)
	go func() {
		w := outboundWriter{
			ws:           s.conn,
			ctx:          s.writerCtx,
			pingInterval: s.cfg.PingInterval,
			writeTimeout: s.cfg.WriteTimeout,
			priority:     s.outboundPriority,
			normal:       s.outboundNormal,
		}
		writerErrCh <- w.Run()
		close(writerErrCh)
	}()

	defer func() {
		// Artifacts first so the recordings frame can still ride the
		// writer's shutdown flush.
		s.flush()
		s.cancel()
		s.writerCancel()
		wait := 200 * time.Millisecond
		if s.cfg.WriteTimeout > 0 && s.cfg.WriteTimeout < wait {
			wait = s.cfg.WriteTimeout
		}
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-writerErrCh:
		case <-timer.C:
		}
		_ = s.conn.Close()
	}()

	resumeHandle := s.currentResumeHandle()
	up, err := s.connector.Connect(s.ctx, upstream.ConnectOptions{
		Model:             s.model,
		SystemInstruction: s.systemInstr,
		ResumeHandle:      resumeHandle,
	})
	if err != nil {
		s.logger.Error("live upstream connect failed", "session_id", s.sessionID, "error", err)
		_ = s.sendJSONPriority(protocol.ServerError{Type: "error", Error: "upstream_unavailable", Details: err.Error()})
		s.finalize(ReasonUpstreamError, err.Error())
		return err
	}
	s.setUpstream(up)
	defer up.Close()

	_ = s.sendJSON(protocol.ServerStatus{
		Type:              "status",
		Status:            "ready",
		SendSampleRate:    s.cfg.SendSampleRate,
		ReceiveSampleRate: s.cfg.ReceiveSampleRate,
		ResumeHandle:      resumeHandle,
	})

	// Kick off the conversation so the interviewer speaks first.
	if err := up.SendClientContent(s.ctx, []upstream.Turn{
		{Role: "user", Text: "--SYSTEM-- Candidate Joined the call."},
	}, true); err != nil {
		return s.upstreamSendFailed(err)
	}

	readCh := make(chan inboundFrame, 64)
	go s.readLoop(readCh)

	results := make(chan error, 2)
	go func() { results <- s.pumpClient(readCh, up) }()
	go func() { results <- s.pumpModel(up) }()

	first := <-results
	s.cancel()
	_ = up.Close() // unblock Receive in the losing pump
	<-results

	return first
}

func (s *Session) readLoop(out chan<- inboundFrame) {
	defer close(out)
	for {
		messageType, data, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case out <- inboundFrame{err: err}:
			case <-s.ctx.Done():
			}
			return
		}
		select {
		case out <- inboundFrame{messageType: messageType, data: data}:
		case <-s.ctx.Done():
			return
		}
	}
}

// pumpClient moves client frames toward the model and feeds the attention
// monitor from webcam frames.
func (s *Session) pumpClient(readCh <-chan inboundFrame, up upstream.LiveSession) error {
	for {
		select {
		case <-s.ctx.Done():
			return nil
		case frame, ok := <-readCh:
			if !ok || frame.err != nil {
				s.finalize(ReasonClientDisconnected, "")
				return nil
			}

			msg, decErr := protocol.DecodeClientMessage(frame.data)
			if decErr != nil {
				code := "bad_request"
				var de *protocol.DecodeError
				if errors.As(decErr, &de) {
					code = de.Code
				}
				_ = s.sendJSON(protocol.ServerError{Type: "error", Error: code, Details: decErr.Error()})
				continue
			}

			switch m := msg.(type) {
			case protocol.ClientAudio:
				pcm, err := base64.StdEncoding.DecodeString(m.DataB64)
				if err != nil {
					_ = s.sendJSON(protocol.ServerError{Type: "error", Error: "bad_request", Details: "invalid audio.data"})
					continue
				}
				s.media.Append(media.DirCandidate, pcm)
				if err := up.SendRealtimeInput(s.ctx, upstream.RealtimeInput{
					Media: &upstream.MediaBlob{MIMEType: m.MIMEType, Data: pcm},
				}); err != nil {
					return s.upstreamSendFailed(err)
				}
			case protocol.ClientImage:
				raw, err := base64.StdEncoding.DecodeString(m.DataB64)
				if err != nil {
					_ = s.sendJSON(protocol.ServerError{Type: "error", Error: "bad_request", Details: "invalid image.data"})
					continue
				}
				if err := up.SendRealtimeInput(s.ctx, upstream.RealtimeInput{
					Media: &upstream.MediaBlob{MIMEType: m.MIMEType, Data: raw},
				}); err != nil {
					return s.upstreamSendFailed(err)
				}
				if done, err := s.observeFrame(raw, up); err != nil {
					return err
				} else if done {
					return nil
				}
			case protocol.ClientText:
				turnComplete := true
				if m.TurnComplete != nil {
					turnComplete = *m.TurnComplete
				}
				if err := up.SendClientContent(s.ctx, []upstream.Turn{{Role: "user", Text: m.Text}}, turnComplete); err != nil {
					return s.upstreamSendFailed(err)
				}
			case protocol.ClientContext:
				updated := s.updateContext(m)
				if len(updated) > 0 {
					if err := up.SendClientContent(s.ctx, []upstream.Turn{{Role: "user", Text: s.contextUpdateTurn()}}, true); err != nil {
						return s.upstreamSendFailed(err)
					}
				}
				_ = s.sendJSON(protocol.ServerContextAck{Type: "context_ack", Updated: updated})
			case protocol.ClientControl:
				if m.Action == protocol.ControlActionStop {
					s.finalize(ReasonClientStop, "")
					return nil
				}
			}
		}
	}
}

// observeFrame runs attention monitoring over one webcam frame. The bool
// result reports whether the session was terminated.
func (s *Session) observeFrame(raw []byte, up upstream.LiveSession) (bool, error) {
	if s.monitor == nil {
		return false, nil
	}
	img, err := attention.DecodeFrame(raw)
	if err != nil {
		s.logger.Debug("webcam frame undecodable", "session_id", s.sessionID, "error", err)
		return false, nil
	}

	switch act := s.monitor.Observe(img); act.Kind {
	case attention.ActionWarn:
		_ = s.sendJSON(protocol.ServerMonitor{
			Type:      "monitor",
			Event:     protocol.MonitorEventWarning,
			Warnings:  act.Warnings,
			Remaining: act.Remaining,
		})
		warn := fmt.Sprintf("--SYSTEM-- User looking away - warn the candidate it's the %d time(s) and %d warning(s) left.", act.Warnings, act.Remaining)
		if err := up.SendClientContent(s.ctx, []upstream.Turn{{Role: "user", Text: warn}}, true); err != nil {
			return true, s.upstreamSendFailed(err)
		}
	case attention.ActionTerminate:
		_ = s.sendJSONPriority(protocol.ServerMonitor{
			Type:     "monitor",
			Event:    protocol.MonitorEventTerminated,
			Warnings: act.Warnings,
		})
		s.finalize(ReasonLookAwayLimit, "")
		return true, nil
	}
	return false, nil
}

// pumpModel moves model events toward the client, captures assistant audio
// and transcripts, and watches for the assistant's spoken sign-off.
func (s *Session) pumpModel(up upstream.LiveSession) error {
	var spoken strings.Builder

	for {
		event, err := up.Receive(s.ctx)
		if err != nil {
			if s.ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, io.EOF) {
				_ = s.sendJSON(protocol.ServerSessionExpired{Type: "session_expired", Message: "live session closed by the model service"})
				s.finalize(ReasonSessionExpired, "")
				return nil
			}
			s.logger.Error("live upstream receive failed", "session_id", s.sessionID, "error", err)
			_ = s.sendJSON(protocol.ServerError{Type: "error", Error: "upstream_error", Details: err.Error()})
			s.finalize(ReasonUpstreamError, err.Error())
			return err
		}

		if r := event.Resumption; r != nil && r.Resumable {
			// Only a handle that differs from the current one is adopted
			// and announced.
			handle := strings.TrimSpace(r.NewHandle)
			if handle != "" && handle != s.currentResumeHandle() {
				s.storeResumeHandle(handle)
				_ = s.sendJSON(protocol.ServerSessionResumption{Type: "session_resumption", Handle: handle})
			}
		}

		if t := event.InputTranscription; t != nil {
			payload := map[string]any{"transcript": t.Text, "finished": t.Finished}
			s.transcripts.Record(transcript.RoleUser, payload)
			_ = s.sendJSON(protocol.ServerTranscript{Type: "transcript", Role: transcript.RoleUser, Payload: payload})
		}
		if t := event.OutputTranscription; t != nil {
			payload := map[string]any{"transcript": t.Text, "finished": t.Finished}
			s.transcripts.Record(transcript.RoleAssistant, payload)
			_ = s.sendJSON(protocol.ServerTranscript{Type: "transcript", Role: transcript.RoleAssistant, Payload: payload})
			spoken.WriteString(strings.ToLower(t.Text))
			if s.matchSignoff(spoken.String()) != "" {
				s.finalize(ReasonAssistantSignoff, t.Text)
				return nil
			}
		}

		if len(event.Data) > 0 {
			s.media.Append(media.DirAssistant, event.Data)
			if err := s.sendJSON(protocol.ServerAudio{
				Type:       "audio",
				DataB64:    base64.StdEncoding.EncodeToString(event.Data),
				SampleRate: s.cfg.ReceiveSampleRate,
			}); err != nil && !errors.Is(err, errBackpressure) {
				return err
			}
		}
		if event.Text != "" {
			_ = s.sendJSON(protocol.ServerText{Type: "text", Text: event.Text})
			spoken.WriteString(strings.ToLower(event.Text))
			if s.matchSignoff(spoken.String()) != "" {
				s.finalize(ReasonAssistantSignoff, event.Text)
				return nil
			}
		}

		if event.TurnComplete {
			reason := strings.ToLower(strings.TrimSpace(event.TurnCompleteReason))
			reason = strings.TrimPrefix(reason, "turn_complete_reason_")
			if reason != "" && reason != "need_more_input" && reason != "unspecified" {
				s.finalize(reason, "")
				return nil
			}
			spoken.Reset()
		}
	}
}

func (s *Session) matchSignoff(spoken string) string {
	for _, phrase := range s.cfg.SignoffPhrases {
		if phrase == "" {
			continue
		}
		if strings.Contains(spoken, phrase) {
			return phrase
		}
	}
	return ""
}

func (s *Session) upstreamSendFailed(err error) error {
	if s.ctx.Err() != nil {
		return nil
	}
	s.logger.Error("live upstream send failed", "session_id", s.sessionID, "error", err)
	_ = s.sendJSON(protocol.ServerError{Type: "error", Error: "upstream_error", Details: err.Error()})
	s.finalize(ReasonUpstreamError, err.Error())
	return err
}

// finalize assigns the termination cause exactly once, tells the model the
// audio stream ended, and queues the session_complete frame at priority.
func (s *Session) finalize(reason, detail string) {
	s.termMu.Lock()
	if s.termReason != "" {
		s.termMu.Unlock()
		return
	}
	s.termReason = reason
	s.termDetail = detail
	s.termMu.Unlock()

	s.logger.Info("live session terminating",
		"session_id", s.sessionID, "reason", reason, "detail", detail)

	if up := s.upstream(); up != nil {
		_ = up.SendRealtimeInput(context.Background(), upstream.RealtimeInput{AudioStreamEnd: true})
	}
	_ = s.sendJSONPriority(protocol.ServerSessionComplete{Type: "session_complete", Reason: reason, Detail: detail})
	s.cancel()
}

// flush persists session artifacts exactly once and reports them to the
// client. Safe to call from any exit path.
func (s *Session) flush() {
	s.flushOnce.Do(func() {
		reason, _ := s.Termination()
		if reason == "" {
			reason = ReasonClientDisconnected
		}
		if s.flusher == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		rec := s.flusher.Flush(ctx, reason, s.contextInfo())
		rec.Type = "recordings"
		rec.SessionID = s.sessionID
		_ = s.sendJSONPriority(rec)
	})
}

// Terminate ends the session with the given reason. Used by the session
// tracker during drain; a session that already terminated ignores it.
func (s *Session) Terminate(reason string) {
	if strings.TrimSpace(reason) == "" {
		reason = ReasonClientStop
	}
	s.finalize(reason, "")
}

// Notify pushes an operator notice to the client.
func (s *Session) Notify(message string) error {
	return s.sendJSON(protocol.ServerNotice{Type: "notice", Message: message})
}

// Termination reports the assigned cause, empty until finalize runs.
func (s *Session) Termination() (reason, detail string) {
	s.termMu.Lock()
	defer s.termMu.Unlock()
	return s.termReason, s.termDetail
}

func (s *Session) updateContext(m protocol.ClientContext) []string {
	s.ctxInfoMu.Lock()
	defer s.ctxInfoMu.Unlock()
	var updated []string
	if strings.TrimSpace(m.JobDescriptionText) != "" {
		s.ctxInfo.JobDescriptionText = m.JobDescriptionText
		updated = append(updated, "jobDescriptionText")
	}
	if strings.TrimSpace(m.ResumeText) != "" {
		s.ctxInfo.ResumeText = m.ResumeText
		updated = append(updated, "resumeText")
	}
	return updated
}

// contextUpdateTurn tells the model the hiring context changed mid-session.
func (s *Session) contextUpdateTurn() string {
	info := s.contextInfo()
	var sb strings.Builder
	sb.WriteString("--SYSTEM-- Interview context updated. Use the following details for the remainder of this session.\n")
	if strings.TrimSpace(info.JobDescriptionText) != "" {
		sb.WriteString("\nJOB DESCRIPTION:\n")
		sb.WriteString(info.JobDescriptionText)
		sb.WriteString("\n")
	}
	if strings.TrimSpace(info.ResumeText) != "" {
		sb.WriteString("\nCANDIDATE RESUME:\n")
		sb.WriteString(info.ResumeText)
		sb.WriteString("\n")
	}
	return sb.String()
}

func (s *Session) contextInfo() ContextInfo {
	s.ctxInfoMu.Lock()
	defer s.ctxInfoMu.Unlock()
	return s.ctxInfo
}

func (s *Session) storeResumeHandle(handle string) {
	s.ctxInfoMu.Lock()
	s.resumeHandle = handle
	s.ctxInfoMu.Unlock()
}

func (s *Session) currentResumeHandle() string {
	s.ctxInfoMu.Lock()
	defer s.ctxInfoMu.Unlock()
	return s.resumeHandle
}

func (s *Session) setUpstream(up upstream.LiveSession) {
	s.upMu.Lock()
	s.up = up
	s.upMu.Unlock()
}

func (s *Session) upstream() upstream.LiveSession {
	s.upMu.Lock()
	defer s.upMu.Unlock()
	return s.up
}

func (s *Session) sendJSON(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	select {
	case s.outboundNormal <- outboundFrame{payload: payload}:
		return nil
	default:
		return errBackpressure
	}
}

func (s *Session) sendJSONPriority(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	frame := outboundFrame{payload: payload}
	for i := 0; i < 4; i++ {
		select {
		case s.outboundPriority <- frame:
			return nil
		default:
		}
		select {
		case <-s.outboundPriority:
		default:
		}
	}
	select {
	case s.outboundPriority <- frame:
		return nil
	default:
		return errBackpressure
	}
}
