package storage

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrInvalidConfig is returned by New when the configuration cannot be used.
var ErrInvalidConfig = errors.New("invalid storage configuration")

// Config is the immutable configuration of an Engine.
type Config struct {
	// PrimaryRoot is the root of the identifier-sharded primary store.
	PrimaryRoot string

	// ShadowRoot is the root of the shadow tree.
	ShadowRoot string

	// ShadowExtension is appended to shadow leaf names (e.g. ".dcm").
	ShadowExtension string

	// StorageCompression reports whether the host compresses content before
	// handing it to the storage area. Shadow links expose the primary bytes
	// directly, so they only make sense for uncompressed content; New rejects
	// a configuration with compression enabled.
	StorageCompression bool

	// InitializeFanout pre-creates the 256x256 primary shard skeleton in New.
	InitializeFanout bool
}

// Validate checks the configuration.
//
// Returns an error wrapping ErrInvalidConfig when a root is empty, when the
// roots overlap, or when storage compression is enabled.
func (c Config) Validate() error {
	if c.PrimaryRoot == "" {
		return fmt.Errorf("primary root is not set: %w", ErrInvalidConfig)
	}
	if c.ShadowRoot == "" {
		return fmt.Errorf("shadow root is not set: %w", ErrInvalidConfig)
	}
	if c.StorageCompression {
		return fmt.Errorf("storage compression is switched on, shadow links would expose compressed bytes: %w", ErrInvalidConfig)
	}
	if overlaps(c.PrimaryRoot, c.ShadowRoot) {
		return fmt.Errorf("primary root %q and shadow root %q overlap: %w", c.PrimaryRoot, c.ShadowRoot, ErrInvalidConfig)
	}
	if strings.ContainsAny(c.ShadowExtension, "/\\") {
		return fmt.Errorf("shadow extension %q contains a path separator: %w", c.ShadowExtension, ErrInvalidConfig)
	}
	return nil
}

// overlaps reports whether one root equals or contains the other.
func overlaps(a, b string) bool {
	a, errA := filepath.Abs(a)
	b, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return false
	}
	if a == b {
		return true
	}
	sep := string(filepath.Separator)
	return strings.HasPrefix(a, strings.TrimSuffix(b, sep)+sep) ||
		strings.HasPrefix(b, strings.TrimSuffix(a, sep)+sep)
}
