package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Scheduler environment variable names.
const (
	EnvSchedulerMaxConcurrent   = "SCHEDULER_MAX_CONCURRENT"
	EnvSchedulerTimeout         = "SCHEDULER_INVESTIGATION_TIMEOUT"
	EnvSchedulerMaxIterations   = "SCHEDULER_MAX_ITERATIONS"
	EnvSchedulerShutdownTimeout = "SCHEDULER_SHUTDOWN_TIMEOUT"
)

// SchedulerConfig controls background investigation execution.
type SchedulerConfig struct {
	// MaxConcurrentInvestigations bounds the number of investigations
	// running at once; submissions beyond it queue for a slot.
	MaxConcurrentInvestigations int

	// InvestigationTimeout is the per-incident wall clock budget.
	InvestigationTimeout time.Duration

	// MaxIterations caps agent reasoning loop turns per investigation.
	MaxIterations int

	// GracefulShutdownTimeout bounds how long Stop waits for active
	// investigations before cancelling them.
	GracefulShutdownTimeout time.Duration
}

// DefaultSchedulerConfig returns production defaults.
func DefaultSchedulerConfig() *SchedulerConfig {
	return &SchedulerConfig{
		MaxConcurrentInvestigations: 10,
		InvestigationTimeout:        10 * time.Minute,
		MaxIterations:               20,
		GracefulShutdownTimeout:     30 * time.Second,
	}
}

// LoadSchedulerConfig reads scheduler settings from the environment,
// falling back to defaults for anything unset.
func LoadSchedulerConfig() (*SchedulerConfig, error) {
	cfg := DefaultSchedulerConfig()

	if raw := os.Getenv(EnvSchedulerMaxConcurrent); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return nil, NewValidationError("scheduler", "scheduler", EnvSchedulerMaxConcurrent,
				fmt.Errorf("%w: %q", ErrInvalidValue, raw))
		}
		cfg.MaxConcurrentInvestigations = n
	}
	if raw := os.Getenv(EnvSchedulerTimeout); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return nil, NewValidationError("scheduler", "scheduler", EnvSchedulerTimeout,
				fmt.Errorf("%w: %q", ErrInvalidValue, raw))
		}
		cfg.InvestigationTimeout = d
	}
	if raw := os.Getenv(EnvSchedulerMaxIterations); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return nil, NewValidationError("scheduler", "scheduler", EnvSchedulerMaxIterations,
				fmt.Errorf("%w: %q", ErrInvalidValue, raw))
		}
		cfg.MaxIterations = n
	}
	if raw := os.Getenv(EnvSchedulerShutdownTimeout); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return nil, NewValidationError("scheduler", "scheduler", EnvSchedulerShutdownTimeout,
				fmt.Errorf("%w: %q", ErrInvalidValue, raw))
		}
		cfg.GracefulShutdownTimeout = d
	}

	return cfg, nil
}
