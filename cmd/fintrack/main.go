package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"fintrack/internal/cli"
	"fintrack/internal/core"
	apphttp "fintrack/internal/http"
	"fintrack/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger("fintrack")
	cfg := cli.LoadAndValidateConfig(logger)

	startCtx, startCancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer startCancel()

	store := cli.InitBackend(startCtx, logger, cfg)
	ledger := services.NewLedgerService(store.Backend, services.WithOwner(cfg.LedgerOwner))

	// The session opens on the current month, which materializes its
	// recurring entries. A store outage here is not fatal: the snapshot is
	// re-read on the first request.
	if err := ledger.Refresh(startCtx); err != nil {
		logger.Warn("Initial ledger load failed", "error", err)
	} else if n, err := ledger.SelectMonth(startCtx, core.MonthOf(ledger.Today())); err != nil {
		logger.Warn("Initial recurring pass failed", "error", err)
	} else {
		logger.Info("Ledger loaded",
			"version", ledger.Version(),
			"month", ledger.SelectedMonth().String(),
			"recurring_added", n)
	}
	startCancel()

	srv, err := apphttp.NewServer(":"+cfg.Port, ledger, apphttp.Options{
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		TrustedProxies:     cfg.TrustedProxies,
		BlockSuspicious:    cfg.BlockSuspicious,
	})
	if err != nil {
		logger.Error("Failed to configure HTTP server", "error", err)
		store.Close()
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if err := store.Close(); err != nil {
			logger.Error("Backend cleanup error", "error", err)
		}
	})

	go func() {
		logger.Info("Starting fintrack server", "port", cfg.Port, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", "error", err, "port", cfg.Port)
			os.Exit(1)
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
