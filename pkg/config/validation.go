package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom rules.
//
// This function uses go-playground/validator for declarative validation
// via struct tags, with additional custom validation for rules that span
// several fields.
//
// Note: Log level normalization is handled in ApplyDefaults, not here.
// Validation accepts both uppercase and lowercase log levels.
//
// Returns an error describing validation failures.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	if err := validateCustomRules(cfg); err != nil {
		return err
	}

	return nil
}

// validateCustomRules performs custom validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	if cfg.Storage.StorageCompression {
		return fmt.Errorf("storage.storage_compression: shadow links require uncompressed storage")
	}

	primary, err := filepath.Abs(cfg.Storage.PrimaryRoot)
	if err != nil {
		return fmt.Errorf("storage.primary_root: %w", err)
	}
	shadow, err := filepath.Abs(cfg.Storage.ShadowRoot)
	if err != nil {
		return fmt.Errorf("storage.shadow_root: %w", err)
	}

	if primary == shadow {
		return fmt.Errorf("storage: primary_root and shadow_root must differ (both %q)", primary)
	}
	if nested(primary, shadow) || nested(shadow, primary) {
		return fmt.Errorf("storage: primary_root %q and shadow_root %q must not be nested", primary, shadow)
	}

	if cfg.GC.RateLimit > 0 && cfg.GC.Burst == 0 {
		return fmt.Errorf("gc.burst: must be positive when gc.rate_limit is set")
	}

	return nil
}

// nested reports whether child lies strictly inside parent.
func nested(parent, child string) bool {
	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		// Return the first validation error with context
		if len(validationErrs) > 0 {
			e := validationErrs[0]
			return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
				e.Namespace(), e.Tag(), e.Value())
		}
	}
	return err
}
