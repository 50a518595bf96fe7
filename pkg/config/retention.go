package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Retention environment variable names.
const (
	EnvRetentionEnabled       = "RETENTION_ENABLED"
	EnvRetentionMaxAge        = "RETENTION_MAX_AGE"
	EnvRetentionMaxRecords    = "RETENTION_MAX_RECORDS"
	EnvRetentionSweepInterval = "RETENTION_SWEEP_INTERVAL"
)

// RetentionConfig controls data retention and cleanup behavior.
type RetentionConfig struct {
	// Enabled toggles the background retention sweeper.
	Enabled bool

	// MaxAge is how long terminal incidents are kept before pruning.
	MaxAge time.Duration

	// MaxRecords caps the total number of stored incidents; the oldest
	// terminal incidents are pruned first when over the cap.
	MaxRecords int

	// SweepInterval is how often the cleanup loop runs.
	SweepInterval time.Duration
}

// DefaultRetentionConfig returns the built-in retention defaults.
func DefaultRetentionConfig() *RetentionConfig {
	return &RetentionConfig{
		Enabled:       true,
		MaxAge:        24 * time.Hour,
		MaxRecords:    1000,
		SweepInterval: 10 * time.Minute,
	}
}

// LoadRetentionConfig reads retention settings from the environment,
// falling back to defaults for anything unset.
func LoadRetentionConfig() (*RetentionConfig, error) {
	cfg := DefaultRetentionConfig()

	if raw := os.Getenv(EnvRetentionEnabled); raw != "" {
		enabled, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, NewValidationError("retention", "retention", EnvRetentionEnabled,
				fmt.Errorf("%w: %q", ErrInvalidValue, raw))
		}
		cfg.Enabled = enabled
	}
	if raw := os.Getenv(EnvRetentionMaxAge); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return nil, NewValidationError("retention", "retention", EnvRetentionMaxAge,
				fmt.Errorf("%w: %q", ErrInvalidValue, raw))
		}
		cfg.MaxAge = d
	}
	if raw := os.Getenv(EnvRetentionMaxRecords); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return nil, NewValidationError("retention", "retention", EnvRetentionMaxRecords,
				fmt.Errorf("%w: %q", ErrInvalidValue, raw))
		}
		cfg.MaxRecords = n
	}
	if raw := os.Getenv(EnvRetentionSweepInterval); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return nil, NewValidationError("retention", "retention", EnvRetentionSweepInterval,
				fmt.Errorf("%w: %q", ErrInvalidValue, raw))
		}
		cfg.SweepInterval = d
	}

	return cfg, nil
}
