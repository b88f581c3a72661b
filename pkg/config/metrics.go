package config

import (
	"context"
	"fmt"
	"os"

	"github.com/marmos91/shadowfs/pkg/gc"
	"github.com/marmos91/shadowfs/pkg/metrics"
	"github.com/marmos91/shadowfs/pkg/storage"
)

// MetricsResult contains all metrics-related components created from configuration.
type MetricsResult struct {
	// Server is the HTTP server exposing Prometheus metrics (nil if disabled)
	Server *metrics.Server

	// Storage is the metrics collector for the storage engine (nil if disabled)
	Storage storage.Metrics

	// GC is the metrics collector for the garbage collector (nil if disabled)
	GC gc.Metrics
}

// InitializeMetrics creates and initializes all metrics components based on configuration.
//
// If metrics are enabled in the configuration:
//   - Initializes the global Prometheus registry
//   - Creates the metrics HTTP server, whose /healthz checks both storage roots
//   - Creates Prometheus-backed metrics instances for all components
//
// If metrics are disabled every field is nil and components fall back to
// their no-op implementations.
func InitializeMetrics(cfg *Config) *MetricsResult {
	if !cfg.Server.Metrics.Enabled {
		return &MetricsResult{}
	}

	metrics.InitRegistry()

	server := metrics.NewServer(metrics.ServerConfig{
		Port:        cfg.Server.Metrics.Port,
		HealthCheck: rootsHealthCheck(cfg.Storage.PrimaryRoot, cfg.Storage.ShadowRoot),
	})

	return &MetricsResult{
		Server:  server,
		Storage: metrics.NewStorageMetrics(),
		GC:      metrics.NewGCMetrics(),
	}
}

// rootsHealthCheck reports an error when a storage root is no longer a
// directory.
func rootsHealthCheck(roots ...string) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		for _, root := range roots {
			if err := ctx.Err(); err != nil {
				return err
			}
			info, err := os.Stat(root)
			if err != nil {
				return err
			}
			if !info.IsDir() {
				return fmt.Errorf("%s is not a directory", root)
			}
		}
		return nil
	}
}
