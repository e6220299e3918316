// Package commands implements the fintrackctl command tree.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"fintrack/internal/backend"
	"fintrack/internal/cli"
	"fintrack/internal/config"
	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/services"
)

// Version is set at build time with -ldflags.
var Version = "dev"

// LedgerOpener returns a loaded ledger and a function releasing its store.
type LedgerOpener func(ctx context.Context) (*services.LedgerService, func() error, error)

// NewRootCommand creates the root CLI command with all subcommands
// registered, reading the store from the environment.
func NewRootCommand() *cobra.Command {
	return newRootCommand(openFromEnv, loadConfig)
}

func newRootCommand(open LedgerOpener, cfg func() (*config.Config, error)) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "fintrackctl",
		Short:   "Inspect and maintain a fintrack ledger",
		Version: Version,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newExportCommand(open),
		newRecurringCommand(open),
		newUtilizationCommand(open),
		newRulesCommand(),
		newMerchantCommand(open),
		newDBCommand(cfg),
	)
	return rootCmd
}

func loadConfig() (*config.Config, error) {
	cli.LoadEnvFile()
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openFromEnv builds the configured backend. Logs go to stderr so command
// output stays machine readable.
func openFromEnv(ctx context.Context) (*services.LedgerService, func() error, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	level, _ := config.ParseLogLevel(cfg.LogLevel)
	logger := applog.New(applog.Config{
		Level:     level,
		Component: "fintrackctl",
		Handler:   slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}),
	})
	applog.SetDefault(logger)

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("backend config: %w", err)
	}
	res, err := backend.NewFactory(logger.Logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s backend: %w", bcfg.Type, err)
	}
	svc := services.NewLedgerService(res.Backend, services.WithOwner(cfg.LedgerOwner))
	if err := svc.Refresh(ctx); err != nil {
		_ = res.Close()
		return nil, nil, fmt.Errorf("loading ledger: %w", err)
	}
	return svc, res.Close, nil
}

// withLedger opens the ledger for the duration of fn.
func withLedger(cmd *cobra.Command, open LedgerOpener, fn func(context.Context, *services.LedgerService) error) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
	defer cancel()
	svc, closeFn, err := open(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = closeFn() }()
	return fn(ctx, svc)
}

// monthFlag parses a --month value, defaulting to the ledger's current month.
func monthFlag(svc *services.LedgerService, value string) (core.Month, error) {
	if value == "" {
		return core.MonthOf(svc.Today()), nil
	}
	m, err := core.ParseMonth(value)
	if err != nil {
		return core.Month{}, fmt.Errorf("invalid --month %q: %w", value, err)
	}
	return m, nil
}
