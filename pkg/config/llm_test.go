package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadLLMConfig(t *testing.T) {
	setRequired := func(t *testing.T) {
		t.Setenv(EnvLLMBaseURL, "https://llm.example.com/v1")
		t.Setenv(EnvLLMAPIKey, "test-key")
	}

	t.Run("defaults applied", func(t *testing.T) {
		setRequired(t)
		t.Setenv(EnvLLMModelName, "")
		t.Setenv(EnvLLMTemperature, "")
		t.Setenv(EnvLLMMaxTokens, "")

		cfg, err := LoadLLMConfig()
		require.NoError(t, err)
		assert.Equal(t, "https://llm.example.com/v1", cfg.BaseURL)
		assert.Equal(t, "test-key", cfg.APIKey)
		assert.Equal(t, DefaultLLMModel, cfg.Model)
		assert.Equal(t, DefaultLLMTemperature, cfg.Temperature)
		assert.Equal(t, DefaultLLMMaxTokens, cfg.MaxTokens)
	})

	t.Run("overrides applied", func(t *testing.T) {
		setRequired(t)
		t.Setenv(EnvLLMModelName, "gpt-4o")
		t.Setenv(EnvLLMTemperature, "0.2")
		t.Setenv(EnvLLMMaxTokens, "4000")

		cfg, err := LoadLLMConfig()
		require.NoError(t, err)
		assert.Equal(t, "gpt-4o", cfg.Model)
		assert.InDelta(t, 0.2, float64(cfg.Temperature), 1e-6)
		assert.Equal(t, 4000, cfg.MaxTokens)
	})

	t.Run("missing base url", func(t *testing.T) {
		t.Setenv(EnvLLMBaseURL, "")
		t.Setenv(EnvLLMAPIKey, "test-key")

		_, err := LoadLLMConfig()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMissingEnv)
		assert.Contains(t, err.Error(), EnvLLMBaseURL)
	})

	t.Run("missing api key", func(t *testing.T) {
		t.Setenv(EnvLLMBaseURL, "https://llm.example.com/v1")
		t.Setenv(EnvLLMAPIKey, "")

		_, err := LoadLLMConfig()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMissingEnv)
		assert.Contains(t, err.Error(), EnvLLMAPIKey)
	})

	t.Run("invalid temperature", func(t *testing.T) {
		setRequired(t)
		t.Setenv(EnvLLMTemperature, "hot")

		_, err := LoadLLMConfig()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidValue)
	})

	t.Run("invalid max tokens", func(t *testing.T) {
		setRequired(t)
		t.Setenv(EnvLLMMaxTokens, "-5")

		_, err := LoadLLMConfig()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidValue)
	})
}
