package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/hireloop/hireloop/internal/dotenv"
	"github.com/hireloop/hireloop/pkg/gateway/config"
	"github.com/hireloop/hireloop/pkg/gateway/live/attention"
	"github.com/hireloop/hireloop/pkg/gateway/scoring"
	gatewayserver "github.com/hireloop/hireloop/pkg/gateway/server"
	"github.com/hireloop/hireloop/pkg/gateway/store"
	"github.com/hireloop/hireloop/pkg/gateway/upstream"
)

type gatewayDeps struct {
	loadConfig   func() (config.Config, error)
	openStore    func(ctx context.Context, databaseURL string) (*store.Store, error)
	migrate      func(databaseURL string) error
	newConnector func(ctx context.Context, apiKey string) (*upstream.GeminiConnector, error)
	signalNotify func(chan<- os.Signal, ...os.Signal)
	signalStop   func(chan<- os.Signal)
}

func defaultGatewayDeps() gatewayDeps {
	return gatewayDeps{
		loadConfig:   config.LoadFromEnv,
		openStore:    store.Open,
		migrate:      store.Migrate,
		newConnector: upstream.NewGeminiConnector,
		signalNotify: func(c chan<- os.Signal, sig ...os.Signal) {
			signal.Notify(c, sig...)
		},
		signalStop: signal.Stop,
	}
}

func buildHTTPServer(cfg config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func runGateway(ctx context.Context, logger *slog.Logger, deps gatewayDeps) error {
	if deps.loadConfig == nil {
		return errors.New("missing loadConfig dependency")
	}
	if deps.newConnector == nil {
		return errors.New("missing newConnector dependency")
	}
	if deps.signalNotify == nil || deps.signalStop == nil {
		return errors.New("missing signal dependency")
	}
	if logger == nil {
		logger = slog.Default()
	}

	cfg, err := deps.loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	connector, err := deps.newConnector(ctx, cfg.GeminiAPIKey)
	if err != nil {
		return fmt.Errorf("connect gemini: %w", err)
	}

	var st *store.Store
	if cfg.DatabaseURL != "" {
		if deps.migrate != nil {
			if err := deps.migrate(cfg.DatabaseURL); err != nil {
				return fmt.Errorf("migrate database: %w", err)
			}
		}
		if deps.openStore == nil {
			return errors.New("missing openStore dependency")
		}
		st, err = deps.openStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer st.Close()
		logger.Info("database connected")
	} else {
		logger.Info("no database configured, hiring API disabled")
	}

	detector := attention.NewPigoDetector(cfg.FaceCascadePath, logger)

	gw := gatewayserver.New(gatewayserver.Dependencies{
		Config:    cfg,
		Logger:    logger,
		Store:     st,
		Connector: connector,
		Scorer:    scoring.NewGeminiScorer(connector.Client(), cfg.ScoringModel),
		Detector:  detector,
	})
	httpSrv := buildHTTPServer(cfg, gw.Handler())

	logger.Info("starting gateway",
		"addr", cfg.Addr,
		"auth_mode", cfg.AuthMode,
		"live_model", cfg.LiveModel,
		"scoring_model", cfg.ScoringModel)

	listenErrCh := make(chan error, 1)
	go func() {
		err := httpSrv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			listenErrCh <- err
			return
		}
		listenErrCh <- nil
	}()

	sigCh := make(chan os.Signal, 1)
	deps.signalNotify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer deps.signalStop(sigCh)

	select {
	case err := <-listenErrCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	}

	drainCtx, drainCancel := context.WithTimeout(context.Background(), cfg.ShutdownGracePeriod)
	defer drainCancel()
	gw.Drain(drainCtx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownGracePeriod)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}

	if err := <-listenErrCh; err != nil {
		return fmt.Errorf("serve: %w", err)
	}

	logger.Info("gateway stopped")
	return nil
}

func runMain(ctx context.Context, stderr io.Writer, deps gatewayDeps) int {
	if stderr == nil {
		stderr = os.Stderr
	}
	logger := slog.New(slog.NewTextHandler(stderr, nil))

	if err := dotenv.Load(".env"); err != nil {
		fmt.Fprintf(stderr, "hireloop: %v\n", err)
		return 1
	}

	if err := runGateway(ctx, logger, deps); err != nil {
		fmt.Fprintf(stderr, "hireloop: %v\n", err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(runMain(context.Background(), os.Stderr, defaultGatewayDeps()))
}
