package server

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	domrepo "SectorScope/internal/domain/repository"
	"SectorScope/internal/usecase"
	pkgch "SectorScope/pkg/clickhouse"
	"SectorScope/pkg/config"
	xhttp "SectorScope/pkg/http"
	applogger "SectorScope/pkg/logger"
)

// App encapsulates the serve lifecycle: the HTTP server and the
// infrastructure clients that must be released on shutdown.
type App struct {
	cfg        *config.Config
	logger     *applogger.Logger
	pipeline   *usecase.Pipeline
	httpServer *xhttp.Server
	events     domrepo.EventPublisher
	chClient   *pkgch.Client
	cache      io.Closer
}

// New creates a new App instance with all dependencies. chClient and cache
// may be nil.
func New(
	cfg *config.Config,
	logger *applogger.Logger,
	pipeline *usecase.Pipeline,
	httpServer *xhttp.Server,
	events domrepo.EventPublisher,
	chClient *pkgch.Client,
	cache io.Closer,
) *App {
	if logger == nil {
		logger = applogger.Nop()
	}
	return &App{
		cfg:        cfg,
		logger:     logger,
		pipeline:   pipeline,
		httpServer: httpServer,
		events:     events,
		chClient:   chClient,
		cache:      cache,
	}
}

// Pipeline exposes the view pipeline for one-shot CLI runs.
func (a *App) Pipeline() *usecase.Pipeline { return a.pipeline }

// Server exposes the HTTP server, mainly for tests.
func (a *App) Server() *xhttp.Server { return a.httpServer }

// Run starts the HTTP server and blocks until ctx is done, an interrupt
// arrives or the listener fails.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http server start error", applogger.Error(err))
		return err
	}
	a.logger.Info("sectorscope started",
		applogger.String("environment", a.cfg.Environment),
		applogger.String("provider", a.cfg.Provider.Name),
		applogger.Int("port", a.cfg.Server.Port),
	)

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case runErr = <-a.httpServer.Errors():
	}

	if err := a.Shutdown(context.Background()); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// Shutdown stops the server and closes infrastructure clients. Close
// failures are logged; only the HTTP shutdown error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down...")

	var httpErr error
	if a.httpServer != nil {
		if httpErr = a.httpServer.Stop(ctx); httpErr != nil {
			a.logger.Error("http shutdown error", applogger.Error(httpErr))
		}
	}

	// Flush aggregated logs while the publisher is still open.
	a.logger.RemoveCollector()

	if a.events != nil {
		if err := a.events.Close(); err != nil {
			a.logger.Warn("event publisher close error", applogger.Error(err))
		}
	}
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.logger.Warn("clickhouse close error", applogger.Error(err))
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Warn("cache close error", applogger.Error(err))
		}
	}

	a.logger.Info("shutdown complete")
	return httpErr
}
