package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// OllamaService streams through Ollama's OpenAI-compatible /v1 API and
// uses the native API to make sure models are pulled before use.
type OllamaService struct {
	*OpenAIService
	baseURL    string
	httpClient *http.Client
	retryDelay time.Duration
}

// NewOllamaService creates a new Ollama service instance
func NewOllamaService(baseURL string, logger *slog.Logger) *OllamaService {
	baseURL = strings.TrimRight(baseURL, "/")
	return &OllamaService{
		OpenAIService: NewOpenAIService(baseURL+"/v1", "", logger),
		baseURL:       baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		retryDelay: 2 * time.Second,
	}
}

// InitModel waits for Ollama and pulls modelName if it is missing
func (s *OllamaService) InitModel(ctx context.Context, modelName string) error {
	s.logger.Info("Initializing LLM model", "model", modelName)

	if err := s.waitForOllamaReady(ctx); err != nil {
		return fmt.Errorf("ollama service is not ready: %w", err)
	}

	ready, err := s.isModelReady(ctx, modelName)
	if err != nil {
		return fmt.Errorf("failed to check model readiness: %w", err)
	}
	if ready {
		s.logger.Info("Model already available", "model", modelName)
		return nil
	}

	s.logger.Info("Model not found, pulling it", "model", modelName)
	if err := s.pullModel(ctx, modelName); err != nil {
		return fmt.Errorf("failed to pull model: %w", err)
	}
	s.logger.Info("Model pulled successfully", "model", modelName)
	return nil
}

// isModelReady checks if the specified model is available
func (s *OllamaService) isModelReady(ctx context.Context, modelName string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/tags", nil)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("API request failed with status: %d", resp.StatusCode)
	}

	var tagsResp struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tagsResp); err != nil {
		return false, fmt.Errorf("failed to decode response: %w", err)
	}

	for _, model := range tagsResp.Models {
		if model.Name == modelName || strings.TrimSuffix(model.Name, ":latest") == modelName {
			return true, nil
		}
	}
	return false, nil
}

// pullModel pulls a model from Ollama
func (s *OllamaService) pullModel(ctx context.Context, modelName string) error {
	jsonBody, err := json.Marshal(map[string]any{"name": modelName, "stream": false})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/pull", bytes.NewBuffer(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	// Use a longer timeout for pulling models as it can take a while
	client := &http.Client{Timeout: 10 * time.Minute}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API request failed with status: %d", resp.StatusCode)
	}
	return nil
}

// waitForOllamaReady waits for Ollama service to be ready with retries
func (s *OllamaService) waitForOllamaReady(ctx context.Context) error {
	maxRetries := 5

	for i := 0; i < maxRetries; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/tags", nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}

		resp, err := s.httpClient.Do(req)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				s.logger.Info("Ollama service is ready")
				return nil
			}
			s.logger.Debug("Ollama returned non-200 status", "status", resp.StatusCode, "attempt", i+1)
		} else {
			s.logger.Debug("Ollama not ready yet", "error", err, "attempt", i+1)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.retryDelay):
		}
	}

	return fmt.Errorf("ollama service did not become ready after %d attempts", maxRetries)
}
