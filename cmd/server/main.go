package main

import (
	"context"
	"errors"
	"logistics-route-service/internal/api"
	"logistics-route-service/internal/app"
	"logistics-route-service/internal/config"
	"logistics-route-service/internal/platform/logger"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// main is the application composition root.
// It wires the registries, routing provider and optional Postgres/Redis
// behind ports, starts the HTTP server and, when enabled, the reconciler.
func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New("release").Fatal("load config", zap.Error(err))
	}
	log := logger.Init(cfg.LogMode)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.Fatal("build app", zap.Error(err))
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn("close app", zap.Error(err))
		}
	}()

	if cfg.ReconcileEnabled {
		if err := a.Scheduler.Start(ctx); err != nil {
			log.Fatal("start reconciler", zap.Error(err))
		}
	}

	deps := api.Deps{
		Routes:     a.Routes,
		Reconciler: a.Scheduler,
		Audit:      a.Audit,
		Log:        log.Named("http"),
	}
	if a.DB != nil {
		deps.DB = a.DB
	}
	router := api.NewRouter(deps)

	// Timeouts are tuned for cold-cache distance estimation (external API latency).
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Error("server failed", zap.Error(err))
		}
	case <-ctx.Done():
		log.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	if err := a.Scheduler.Stop(shutdownCtx); err != nil {
		log.Warn("reconciler shutdown", zap.Error(err))
	}
}
