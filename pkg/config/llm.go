package config

import (
	"fmt"
	"os"
	"strconv"
)

// LLM environment variable names and defaults.
const (
	EnvLLMBaseURL     = "LLM_BASE_URL"
	EnvLLMAPIKey      = "LLM_API_KEY"
	EnvLLMModelName   = "LLM_MODEL_NAME"
	EnvLLMTemperature = "LLM_TEMPERATURE"
	EnvLLMMaxTokens   = "LLM_MAX_TOKENS"

	DefaultLLMModel       = "gpt-4"
	DefaultLLMTemperature = float32(0.7)
	DefaultLLMMaxTokens   = 2000
)

// LLMConfig holds the connection settings for the OpenAI-compatible
// chat completions endpoint that drives investigations.
type LLMConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float32
	MaxTokens   int
}

// LoadLLMConfig reads LLM settings from the environment.
// BaseURL and APIKey are required; the rest fall back to defaults.
func LoadLLMConfig() (*LLMConfig, error) {
	cfg := &LLMConfig{
		BaseURL:     os.Getenv(EnvLLMBaseURL),
		APIKey:      os.Getenv(EnvLLMAPIKey),
		Model:       os.Getenv(EnvLLMModelName),
		Temperature: DefaultLLMTemperature,
		MaxTokens:   DefaultLLMMaxTokens,
	}

	if cfg.BaseURL == "" {
		return nil, NewValidationError("llm", "llm", EnvLLMBaseURL, ErrMissingEnv)
	}
	if cfg.APIKey == "" {
		return nil, NewValidationError("llm", "llm", EnvLLMAPIKey, ErrMissingEnv)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultLLMModel
	}

	if raw := os.Getenv(EnvLLMTemperature); raw != "" {
		t, err := strconv.ParseFloat(raw, 32)
		if err != nil {
			return nil, NewValidationError("llm", "llm", EnvLLMTemperature,
				fmt.Errorf("%w: %q", ErrInvalidValue, raw))
		}
		cfg.Temperature = float32(t)
	}
	if raw := os.Getenv(EnvLLMMaxTokens); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return nil, NewValidationError("llm", "llm", EnvLLMMaxTokens,
				fmt.Errorf("%w: %q", ErrInvalidValue, raw))
		}
		cfg.MaxTokens = n
	}

	return cfg, nil
}
