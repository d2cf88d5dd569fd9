// Package server assembles the gateway's HTTP surface: the live interview
// WebSocket, the hiring REST API and the health endpoints, behind one
// middleware chain.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hireloop/hireloop/pkg/gateway/config"
	"github.com/hireloop/hireloop/pkg/gateway/handlers"
	"github.com/hireloop/hireloop/pkg/gateway/lifecycle"
	"github.com/hireloop/hireloop/pkg/gateway/live/attention"
	"github.com/hireloop/hireloop/pkg/gateway/live/sessions"
	"github.com/hireloop/hireloop/pkg/gateway/mw"
	"github.com/hireloop/hireloop/pkg/gateway/scoring"
	"github.com/hireloop/hireloop/pkg/gateway/store"
	"github.com/hireloop/hireloop/pkg/gateway/upstream"
)

type Gateway struct {
	cfg       config.Config
	logger    *slog.Logger
	store     *store.Store
	connector upstream.Connector
	scorer    scoring.Scorer
	detector  attention.Detector
	life      *lifecycle.Lifecycle
	sessions  *sessions.Tracker
}

type Dependencies struct {
	Config    config.Config
	Logger    *slog.Logger
	Store     *store.Store
	Connector upstream.Connector
	Scorer    scoring.Scorer
	Detector  attention.Detector
}

func New(deps Dependencies) *Gateway {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		cfg:       deps.Config,
		logger:    logger,
		store:     deps.Store,
		connector: deps.Connector,
		scorer:    deps.Scorer,
		detector:  deps.Detector,
		life:      &lifecycle.Lifecycle{},
		sessions:  sessions.NewTracker(),
	}
}

func (g *Gateway) Sessions() *sessions.Tracker { return g.sessions }

// Handler builds the full routed and middleware-wrapped HTTP handler.
func (g *Gateway) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /healthz", handlers.HealthHandler{})
	mux.Handle("GET /readyz", handlers.ReadyHandler{
		Config:       g.cfg,
		Lifecycle:    g.life,
		LiveSessions: g.sessions,
		StoreEnabled: g.store != nil,
	})

	interview := handlers.InterviewHandler{
		Config:       g.cfg,
		Logger:       g.logger,
		Connector:    g.connector,
		Scorer:       g.scorer,
		Detector:     g.detector,
		Lifecycle:    g.life,
		LiveSessions: g.sessions,
	}
	if g.store != nil {
		interview.Store = g.store
	}
	mux.Handle("GET /ws/interview", interview)

	api := handlers.API{
		Config: g.cfg,
		Logger: g.logger,
		Store:  g.store,
	}
	mux.HandleFunc("POST /api/v1/login", api.Login)

	mux.HandleFunc("POST /api/v1/jobs", api.CreateJob)
	mux.HandleFunc("GET /api/v1/jobs", api.ListJobs)
	mux.HandleFunc("GET /api/v1/jobs/{id}", api.GetJob)
	mux.HandleFunc("DELETE /api/v1/jobs/{id}", api.DeactivateJob)

	mux.HandleFunc("POST /api/v1/resumes", api.CreateResume)
	mux.HandleFunc("GET /api/v1/resumes", api.ListResumes)
	mux.HandleFunc("GET /api/v1/resumes/{id}", api.GetResume)

	mux.HandleFunc("POST /api/v1/interviews", api.CreateInterview)
	mux.HandleFunc("GET /api/v1/interviews", api.ListInterviews)
	mux.HandleFunc("GET /api/v1/interviews/{id}", api.GetInterview)
	mux.HandleFunc("GET /api/v1/interviews/{id}/result", api.GetInterviewResult)
	mux.HandleFunc("GET /api/v1/interviews/by-session/{session}", api.GetInterviewBySession)
	mux.HandleFunc("PATCH /api/v1/interviews/by-session/{session}/status", api.UpdateInterviewStatus)

	mux.HandleFunc("GET /api/v1/analytics/stats", api.GetStats)

	var h http.Handler = mux
	h = mw.Auth(g.cfg, h)
	h = mw.CORS(g.cfg, h)
	h = mw.Recover(g.logger, h)
	h = mw.AccessLog(g.logger, h)
	h = mw.RequestID(h)
	return h
}

// Drain stops admitting new sessions, tells live candidates the service is
// going away, and gives in-flight interviews a window to finish before
// forcing termination so their artifacts still flush.
func (g *Gateway) Drain(ctx context.Context) {
	g.life.SetDraining(true)

	active := g.sessions.Count()
	if active == 0 {
		return
	}
	g.logger.Info("draining live sessions", "active", active)
	g.sessions.NotifyAll("The interview service is restarting. Your session will end shortly.")

	grace := ctx
	if deadline, ok := ctx.Deadline(); ok {
		half := time.Until(deadline) / 2
		var cancel context.CancelFunc
		grace, cancel = context.WithTimeout(ctx, half)
		defer cancel()
	}
	if g.sessions.Wait(grace) {
		return
	}

	g.sessions.TerminateAll("server_shutdown")
	if !g.sessions.Wait(ctx) {
		g.logger.Warn("live sessions still active after drain window",
			"active", g.sessions.Count())
	}
}
