package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/marmos91/shadowfs/internal/logger"
	"github.com/marmos91/shadowfs/pkg/config"
	"github.com/marmos91/shadowfs/pkg/server"
	"github.com/spf13/cobra"
)

func (a *app) startCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Initialize the storage area and run background services until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return run(ctx, cfg)
		},
	}
}

// run builds every component from cfg and blocks until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config) error {
	// ========================================================================
	// Step 1: Metrics (registry must exist before the engine is built)
	// ========================================================================

	metricsResult := config.InitializeMetrics(cfg)

	// ========================================================================
	// Step 2: Storage engine (roots, fan-out)
	// ========================================================================

	if cfg.Storage.InitializeFanout {
		logger.Info("Pre-creating primary fan-out (256x256 directories)...")
	}

	engine, err := config.CreateEngine(ctx, cfg, metricsResult.Storage)
	if err != nil {
		return err
	}

	// ========================================================================
	// Step 3: Background services
	// ========================================================================

	srv := server.New(engine, cfg.Server.ShutdownTimeout)

	collector, err := config.CreateCollector(cfg, metricsResult.GC)
	if err != nil {
		return err
	}
	if err := srv.AddService(collector); err != nil {
		return err
	}

	if metricsResult.Server != nil {
		if err := srv.AddService(metricsResult.Server); err != nil {
			return err
		}
	}

	return srv.Serve(ctx)
}
