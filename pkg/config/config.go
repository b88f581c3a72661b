package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete shadowfs configuration.
//
// This structure captures all configurable aspects of the storage area:
//   - Logging configuration
//   - Server-wide settings (shutdown, metrics endpoint)
//   - Primary and shadow storage roots
//   - Metadata extractor selection and configuration (extractor-specific)
//   - Shadow-tree garbage collection
//
// Configuration sources (in order of precedence):
//  1. Environment variables (SHADOWFS_*)
//  2. Configuration file (YAML or TOML)
//  3. Default values (lowest priority)
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Server contains server-wide settings
	Server ServerConfig `mapstructure:"server" yaml:"server"`

	// Storage configures the primary store and the shadow tree
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`

	// Extractor specifies how metadata is extracted from structured content
	Extractor ExtractorConfig `mapstructure:"extractor" yaml:"extractor"`

	// GC configures the shadow-tree garbage collector
	GC GCConfig `mapstructure:"gc" yaml:"gc"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" yaml:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" yaml:"format" validate:"required,oneof=text json"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" yaml:"output" validate:"required"`
}

// ServerConfig contains server-wide settings.
type ServerConfig struct {
	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" validate:"required,gt=0"`

	// Metrics configures the Prometheus endpoint
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// MetricsConfig configures the Prometheus metrics HTTP server.
type MetricsConfig struct {
	// Enabled turns metrics collection and the HTTP endpoint on
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the TCP port of the metrics server
	Port int `mapstructure:"port" yaml:"port" validate:"omitempty,min=1,max=65535"`
}

// StorageConfig configures the storage engine.
type StorageConfig struct {
	// PrimaryRoot is the root of the identifier-sharded primary store
	PrimaryRoot string `mapstructure:"primary_root" yaml:"primary_root" validate:"required"`

	// ShadowRoot is the root of the patient/study/series shadow tree
	ShadowRoot string `mapstructure:"shadow_root" yaml:"shadow_root" validate:"required"`

	// ShadowExtension is appended to shadow leaf names (e.g. ".dcm")
	ShadowExtension string `mapstructure:"shadow_extension" yaml:"shadow_extension" validate:"omitempty,startswith=.,excludesall=/\\"`

	// StorageCompression must mirror the host's compression setting. Shadow
	// links expose raw primary bytes, so compressed storage is refused.
	StorageCompression bool `mapstructure:"storage_compression" yaml:"storage_compression"`

	// InitializeFanout pre-creates the 256x256 primary shard directories at startup
	InitializeFanout bool `mapstructure:"initialize_fanout" yaml:"initialize_fanout"`
}

// ExtractorConfig specifies the metadata extractor.
//
// The Type field determines which extractor is used. Only the corresponding
// type-specific configuration section is used.
type ExtractorConfig struct {
	// Type specifies which extractor implementation to use
	// Valid values: dicom, none
	Type string `mapstructure:"type" yaml:"type" validate:"required,oneof=dicom none"`

	// DICOM contains DICOM parser configuration
	// Only used when Type = "dicom"
	DICOM map[string]any `mapstructure:"dicom" yaml:"dicom"`
}

// GCConfig configures the shadow-tree garbage collector.
type GCConfig struct {
	// Enabled turns periodic sweeps on
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Interval is the time between sweeps
	Interval time.Duration `mapstructure:"interval" yaml:"interval" validate:"required,gt=0"`

	// DryRun logs stale entries without removing them
	DryRun bool `mapstructure:"dry_run" yaml:"dry_run"`

	// RateLimit caps inspected entries per second (0 = unlimited)
	RateLimit uint `mapstructure:"rate_limit" yaml:"rate_limit"`

	// Burst is the number of entries that may be inspected at once
	Burst uint `mapstructure:"burst" yaml:"burst"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (SHADOWFS_*)
//  2. Configuration file
//  3. Default values
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Configuration loading or validation error
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// envKeys lists the keys that can be set from the environment without
// appearing in the configuration file. Viper's AutomaticEnv only resolves
// keys it already knows about during Unmarshal.
var envKeys = []string{
	"logging.level",
	"logging.format",
	"logging.output",
	"server.shutdown_timeout",
	"server.metrics.enabled",
	"server.metrics.port",
	"storage.primary_root",
	"storage.shadow_root",
	"storage.shadow_extension",
	"storage.storage_compression",
	"storage.initialize_fanout",
	"extractor.type",
	"gc.enabled",
	"gc.interval",
	"gc.dry_run",
	"gc.rate_limit",
	"gc.burst",
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use SHADOWFS_ prefix and underscores
	// Example: SHADOWFS_STORAGE_PRIMARY_ROOT=/srv/orthanc/primary
	v.SetEnvPrefix("SHADOWFS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default location: $XDG_CONFIG_HOME/shadowfs/config.{yaml,toml}
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		// An explicit path that does not exist is reported as a plain
		// filesystem error rather than ConfigFileNotFoundError.
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	return nil
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to current
// directory (.) if home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "shadowfs")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "shadowfs")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// ConfigExists checks if a config file exists at the default location.
func ConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}
