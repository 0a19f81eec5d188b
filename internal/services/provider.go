package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jwebster45206/gamemaster-agent/internal/config"
)

// NewLLMService builds the client for the configured provider
func NewLLMService(ctx context.Context, cfg *config.Config, logger *slog.Logger) (LLMService, error) {
	switch cfg.LLMProvider {
	case config.ProviderOpenAI:
		return NewOpenAIService(OpenAIBaseURL, cfg.OpenAIAPIKey, logger), nil
	case config.ProviderVenice:
		return NewOpenAIService(VeniceBaseURL, cfg.VeniceAPIKey, logger), nil
	case config.ProviderOllama:
		return NewOllamaService(cfg.OllamaBaseURL, logger), nil
	case config.ProviderGemini:
		return NewGeminiService(ctx, cfg.GeminiAPIKey, logger)
	}
	return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.LLMProvider)
}

// InitModels prepares every distinct model the agents use
func InitModels(ctx context.Context, llm LLMService, models ...string) error {
	seen := make(map[string]bool, len(models))
	for _, m := range models {
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		if err := llm.InitModel(ctx, m); err != nil {
			return fmt.Errorf("failed to initialize model %s: %w", m, err)
		}
	}
	return nil
}
