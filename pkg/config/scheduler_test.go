package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSchedulerConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := LoadSchedulerConfig()
		require.NoError(t, err)
		assert.Equal(t, 10, cfg.MaxConcurrentInvestigations)
		assert.Equal(t, 10*time.Minute, cfg.InvestigationTimeout)
		assert.Equal(t, 20, cfg.MaxIterations)
		assert.Equal(t, 30*time.Second, cfg.GracefulShutdownTimeout)
	})

	t.Run("overrides", func(t *testing.T) {
		t.Setenv(EnvSchedulerMaxConcurrent, "2")
		t.Setenv(EnvSchedulerTimeout, "30s")
		t.Setenv(EnvSchedulerMaxIterations, "5")
		t.Setenv(EnvSchedulerShutdownTimeout, "5s")

		cfg, err := LoadSchedulerConfig()
		require.NoError(t, err)
		assert.Equal(t, 2, cfg.MaxConcurrentInvestigations)
		assert.Equal(t, 30*time.Second, cfg.InvestigationTimeout)
		assert.Equal(t, 5, cfg.MaxIterations)
		assert.Equal(t, 5*time.Second, cfg.GracefulShutdownTimeout)
	})

	t.Run("invalid values rejected", func(t *testing.T) {
		tests := []struct {
			env   string
			value string
		}{
			{EnvSchedulerMaxConcurrent, "0"},
			{EnvSchedulerMaxConcurrent, "many"},
			{EnvSchedulerTimeout, "-1s"},
			{EnvSchedulerTimeout, "soon"},
			{EnvSchedulerMaxIterations, "0"},
			{EnvSchedulerShutdownTimeout, "0s"},
		}
		for _, tt := range tests {
			t.Run(tt.env+"="+tt.value, func(t *testing.T) {
				t.Setenv(tt.env, tt.value)
				_, err := LoadSchedulerConfig()
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidValue)
			})
		}
	})
}

func TestLoadRetentionConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := LoadRetentionConfig()
		require.NoError(t, err)
		assert.True(t, cfg.Enabled)
		assert.Equal(t, 24*time.Hour, cfg.MaxAge)
		assert.Equal(t, 1000, cfg.MaxRecords)
		assert.Equal(t, 10*time.Minute, cfg.SweepInterval)
	})

	t.Run("overrides", func(t *testing.T) {
		t.Setenv(EnvRetentionEnabled, "false")
		t.Setenv(EnvRetentionMaxAge, "1h")
		t.Setenv(EnvRetentionMaxRecords, "50")
		t.Setenv(EnvRetentionSweepInterval, "1m")

		cfg, err := LoadRetentionConfig()
		require.NoError(t, err)
		assert.False(t, cfg.Enabled)
		assert.Equal(t, time.Hour, cfg.MaxAge)
		assert.Equal(t, 50, cfg.MaxRecords)
		assert.Equal(t, time.Minute, cfg.SweepInterval)
	})

	t.Run("invalid enabled flag", func(t *testing.T) {
		t.Setenv(EnvRetentionEnabled, "yes please")
		_, err := LoadRetentionConfig()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidValue)
	})
}
