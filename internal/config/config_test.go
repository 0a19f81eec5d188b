package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("MAX_TOOL_CALLS_PER_TURN", "")
	t.Setenv("PHASE_TIMEOUT", "")
	t.Setenv("STORAGE_BACKEND", "")

	cfg := Load()

	assert.Equal(t, ProviderOpenAI, cfg.LLMProvider)
	assert.Equal(t, "gpt-4o", cfg.ActionModel)
	assert.Equal(t, "gpt-4o-mini", cfg.ObservationModel)
	assert.Equal(t, 24, cfg.MaxToolCallsPerTurn)
	assert.Equal(t, 60*time.Second, cfg.PhaseTimeout)
	assert.Equal(t, 30.0, cfg.InventoryMaxWeight)
	assert.Equal(t, BackendRedis, cfg.StorageBackend)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "Gemini")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("MAX_TOOL_CALLS_PER_TURN", "5")
	t.Setenv("PHASE_TIMEOUT", "15s")
	t.Setenv("ENFORCE_MAX_WEIGHT", "true")
	t.Setenv("OBSERVATION_MODEL", "tiny")

	cfg := Load()

	assert.Equal(t, ProviderGemini, cfg.LLMProvider)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, "gemini-1.5-pro", cfg.ActionModel)
	assert.Equal(t, "tiny", cfg.ObservationModel)
	assert.Equal(t, 5, cfg.MaxToolCallsPerTurn)
	assert.Equal(t, 15*time.Second, cfg.PhaseTimeout)
	assert.True(t, cfg.EnforceMaxWeight)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			LLMProvider:         ProviderOpenAI,
			OpenAIAPIKey:        "sk-test",
			StorageBackend:      BackendRedis,
			RedisURL:            "redis://localhost:6379",
			MaxToolCallsPerTurn: 24,
			PhaseTimeout:        time.Minute,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "missing key", mutate: func(c *Config) { c.OpenAIAPIKey = "" }, wantErr: "OPENAI_API_KEY"},
		{name: "unknown provider", mutate: func(c *Config) { c.LLMProvider = "bard" }, wantErr: "unknown LLM_PROVIDER"},
		{name: "unknown backend", mutate: func(c *Config) { c.StorageBackend = "files" }, wantErr: "unknown STORAGE_BACKEND"},
		{name: "zero budget", mutate: func(c *Config) { c.MaxToolCallsPerTurn = 0 }, wantErr: "MAX_TOOL_CALLS_PER_TURN"},
		{name: "ollama needs no key", mutate: func(c *Config) { c.LLMProvider = ProviderOllama; c.OllamaBaseURL = "http://x" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelWarn, parseLogLevel("WARNING"))
	assert.Equal(t, slog.LevelInfo, parseLogLevel("nonsense"))
}
