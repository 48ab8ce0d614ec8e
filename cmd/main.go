package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/okian/pythians/internal/adapters/repository"
	app "github.com/okian/pythians/internal/app"
	"github.com/okian/pythians/internal/config"
	"github.com/okian/pythians/pkg/logger"
	"github.com/okian/pythians/pkg/metrics"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type rootFlags struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:   "pythians",
		Short: "Pythians: read-only Olympic data as nested JSON",
		Long: `Pythians serves Olympic games, countries, events and athletes from a
relational store, folding one-to-many joins into nested JSON.

Configuration is read from defaults, the YAML file named by --config or
$PYTHIANS_CONFIG, then PYTHIANS_* environment variables.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "YAML config file (overrides $PYTHIANS_CONFIG)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(newServeCmd(flags), newScrapeCmd(flags))
	return root
}

// bootstrap loads configuration and initializes logging. Logs go to w so
// that commands printing data can keep stdout clean.
func bootstrap(ctx context.Context, flags *rootFlags, w io.Writer) (*config.Config, error) {
	if flags.configPath != "" {
		if err := os.Setenv(config.EnvConfig, flags.configPath); err != nil {
			return nil, fmt.Errorf("setting %s: %w", config.EnvConfig, err)
		}
	}
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, err
	}
	if flags.logLevel != "" {
		cfg.LogLevel = flags.logLevel
	}
	if err := logger.Init(logger.WithWriter(w), logger.WithJSON(cfg.LogJSON)); err != nil {
		return nil, fmt.Errorf("initializing logging: %w", err)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(ctx, "invalid log_level; falling back to info",
			logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	metrics.Init(
		metrics.WithNamespace(cfg.MetricsNamespace),
		metrics.WithMetricsEnabled(cfg.MetricsEnabled),
		metrics.WithRefreshInterval(cfg.MetricsRefresh()),
		metrics.WithCustomLabels(cfg.MetricsLabels),
	)
	return cfg, nil
}

// openService connects the SQL row source and starts the scrape service.
func openService(ctx context.Context, cfg *config.Config) (*app.Service, error) {
	store, err := repository.Open(ctx, cfg.Driver, cfg.DSN,
		repository.WithQueryTimeout(cfg.QueryTimeout()),
		repository.WithMaxOpenConns(cfg.MaxOpenConns),
		repository.WithMaxIdleConns(cfg.MaxIdleConns),
		repository.WithConnMaxLifetime(cfg.ConnMaxLifetime()),
	)
	if err != nil {
		return nil, err
	}
	svc := app.New(
		app.WithOpener(store),
		app.WithLogger(logger.Named("service")),
	)
	if err := svc.Start(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return svc, nil
}
