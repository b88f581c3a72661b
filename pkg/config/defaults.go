package config

import (
	"strings"
	"time"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// This function is called after loading configuration from file and environment
// variables to fill in any missing values with sensible defaults.
//
// Default Strategy:
//   - Zero values (0, "", nil) are replaced with defaults
//   - Explicit values are preserved
//   - Boolean switches keep their zero value (false) unless set
//   - Storage roots have no default: an empty root fails validation
//   - Extractor-specific defaults are handled by the extractor factory
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyServerDefaults(&cfg.Server)
	applyExtractorDefaults(&cfg.Extractor)
	applyGCDefaults(&cfg.GC)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyServerDefaults sets server defaults.
func applyServerDefaults(cfg *ServerConfig) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	if cfg.Metrics.Port == 0 {
		cfg.Metrics.Port = 9090
	}
}

// applyExtractorDefaults sets extractor defaults.
func applyExtractorDefaults(cfg *ExtractorConfig) {
	if cfg.Type == "" {
		cfg.Type = "dicom"
	}
	cfg.Type = strings.ToLower(cfg.Type)

	if cfg.DICOM == nil {
		cfg.DICOM = make(map[string]any)
	}
	if _, ok := cfg.DICOM["skip_pixel_data"]; !ok {
		cfg.DICOM["skip_pixel_data"] = true
	}
	if _, ok := cfg.DICOM["max_bytes"]; !ok {
		cfg.DICOM["max_bytes"] = int64(0) // unlimited
	}
}

// applyGCDefaults sets garbage collector defaults.
func applyGCDefaults(cfg *GCConfig) {
	if cfg.Interval == 0 {
		cfg.Interval = time.Hour
	}
	if cfg.RateLimit > 0 && cfg.Burst == 0 {
		cfg.Burst = cfg.RateLimit
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
//   - Documentation
//
// The storage roots are sample values written into generated files only;
// Load never falls back to them.
func GetDefaultConfig() *Config {
	cfg := &Config{
		Storage: StorageConfig{
			PrimaryRoot:      "/var/lib/shadowfs/primary",
			ShadowRoot:       "/var/lib/shadowfs/shadow",
			InitializeFanout: true,
		},
		GC: GCConfig{
			Enabled:   true,
			RateLimit: 1000,
		},
	}

	ApplyDefaults(cfg)
	return cfg
}
