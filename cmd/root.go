// Package cmd defines and implements the CLI commands for the spider executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/performer-crawler/internal/config"
	"github.com/JakeFAU/performer-crawler/internal/logging"
)

var cfgFile string

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// App is what subcommands need from the process: loaded config, a logger and
// somewhere to print reports.
type App interface {
	Config() config.Config
	Logger() *zap.Logger
	Out() io.Writer
	Close()
}

type app struct {
	cfg    config.Config
	logger *zap.Logger
	out    io.Writer
}

func (a *app) Config() config.Config { return a.cfg }
func (a *app) Logger() *zap.Logger   { return a.logger }
func (a *app) Out() io.Writer        { return a.out }

func (a *app) Close() {
	// Sync on stderr-backed loggers fails with EINVAL on some platforms.
	_ = a.logger.Sync()
}

// newApp is the application factory. Tests swap it for one that skips disk
// and returns a quiet logger.
var newApp = func(_ context.Context, path string, out io.Writer) (App, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	zap.ReplaceGlobals(logger)
	return &app{cfg: cfg, logger: logger, out: out}, nil
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "spider",
		Short: "Affiliate performer ingestion for camming platforms.",
		Long: `spider pulls performer listings from affiliate APIs, normalizes them
onto one schema and upserts them into the performer directory. Every
run is recorded in the job ledger.`,
		SilenceErrors: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := newApp(cmd.Context(), cfgFile, cmd.OutOrStdout())
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, appInstance))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if appInstance, ok := cmd.Context().Value(appKey).(App); ok && appInstance != nil {
				appInstance.Close()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (env SPIDER_* overrides apply either way)")

	cmd.AddCommand(newCrawlCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newMigrateCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	ctx, stop := signalContext()
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(exitCode(err))
	}
}

func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}
