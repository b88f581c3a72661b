package config

import (
	"context"
	"fmt"

	"github.com/marmos91/shadowfs/pkg/dicom"
	"github.com/marmos91/shadowfs/pkg/gc"
	"github.com/marmos91/shadowfs/pkg/storage"
	"github.com/mitchellh/mapstructure"
)

// CreateExtractor creates a metadata extractor based on configuration.
//
// This factory function uses the Type field to determine which extractor to
// create, then decodes the type-specific configuration from the corresponding
// map.
//
// Supported types:
//   - "dicom": Uses pkg/dicom (DICOM header parser)
//   - "none": Never extracts metadata; structured content is stored without a shadow link
//
// Returns:
//   - dicom.Extractor: Configured extractor
//   - error: Configuration error
func CreateExtractor(cfg *ExtractorConfig) (dicom.Extractor, error) {
	switch cfg.Type {
	case "dicom":
		return createDICOMExtractor(cfg.DICOM)
	case "none":
		return dicom.Disabled{}, nil
	default:
		return nil, fmt.Errorf("unknown extractor type: %q", cfg.Type)
	}
}

// createDICOMExtractor creates the DICOM parser from its options map.
func createDICOMExtractor(options map[string]any) (dicom.Extractor, error) {
	opts := dicom.DefaultOptions()

	// Values may arrive as strings from environment overrides, and unknown
	// keys are almost always typos.
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &opts,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(options); err != nil {
		return nil, fmt.Errorf("failed to decode dicom extractor config: %w", err)
	}

	if opts.MaxBytes < 0 {
		return nil, fmt.Errorf("dicom extractor: max_bytes must not be negative")
	}

	return dicom.NewParser(opts), nil
}

// StorageConfigFrom converts the storage section into the engine configuration.
func StorageConfigFrom(cfg *StorageConfig) storage.Config {
	return storage.Config{
		PrimaryRoot:        cfg.PrimaryRoot,
		ShadowRoot:         cfg.ShadowRoot,
		ShadowExtension:    cfg.ShadowExtension,
		StorageCompression: cfg.StorageCompression,
		InitializeFanout:   cfg.InitializeFanout,
	}
}

// CreateEngine creates the storage engine from configuration.
//
// Parameters:
//   - ctx: Context for the startup I/O (root creation, fan-out)
//   - cfg: The complete configuration
//   - metrics: Optional storage metrics (nil = no metrics)
//
// Returns:
//   - *storage.Engine: Ready-to-use engine
//   - error: Extractor configuration or engine initialization error
func CreateEngine(ctx context.Context, cfg *Config, metrics storage.Metrics) (*storage.Engine, error) {
	extractor, err := CreateExtractor(&cfg.Extractor)
	if err != nil {
		return nil, err
	}

	engine, err := storage.New(ctx, StorageConfigFrom(&cfg.Storage),
		storage.WithExtractor(extractor),
		storage.WithMetrics(metrics),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage engine: %w", err)
	}

	return engine, nil
}

// CreateCollector creates the shadow-tree garbage collector from configuration.
//
// The shadow root must already exist (CreateEngine creates it).
func CreateCollector(cfg *Config, metrics gc.Metrics) (*gc.Collector, error) {
	collector, err := gc.NewCollector(cfg.Storage.ShadowRoot, gc.Config{
		Enabled:   cfg.GC.Enabled,
		Interval:  cfg.GC.Interval,
		DryRun:    cfg.GC.DryRun,
		RateLimit: cfg.GC.RateLimit,
		Burst:     cfg.GC.Burst,
	}, metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to create garbage collector: %w", err)
	}

	return collector, nil
}
