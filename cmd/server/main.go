/*
Party engine HTTP server.

Wires the SQLite store, the reconciler, the HTTP API, and the background
reconciliation scheduler, then serves until SIGINT/SIGTERM and shuts down
gracefully.
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/party-engine/api"
	"github.com/warp/party-engine/billing"
	"github.com/warp/party-engine/config"
	"github.com/warp/party-engine/internal/logger"
	"github.com/warp/party-engine/party"
	"github.com/warp/party-engine/staffing"
	"github.com/warp/party-engine/store/sqlite"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()

	clock := party.SystemClock{}
	reconciler := party.NewReconciler(store, clock, logger.WithComponent("reconciler"))
	staffSvc := staffing.NewService(store, reconciler, clock)
	billSvc := billing.NewService(store, reconciler, clock)

	handler := api.NewHandler(store, reconciler, staffSvc, billSvc, clock, logger.WithComponent("api"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var scheduler *api.ReconciliationScheduler
	if cfg.ReconcileEnabled {
		scheduler = api.NewScheduler(reconciler, cfg.ReconcileInterval, logger.WithComponent("scheduler"))
		scheduler.Start(ctx)
		handler.Scheduler = scheduler
	} else {
		log.Warn().Msg("background reconciliation disabled; statuses advance only on reads")
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: api.NewRouter(handler, logger.WithComponent("http")),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("db", cfg.DBPath).Msg("party engine listening")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	if scheduler != nil {
		scheduler.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	log.Info().Msg("server stopped")
	return nil
}
