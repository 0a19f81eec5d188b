package services

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jwebster45206/gamemaster-agent/pkg/chat"
)

const (
	OpenAIBaseURL = "https://api.openai.com/v1"
	VeniceBaseURL = "https://api.venice.ai/api/v1"

	DefaultTemperature = 0.7
)

// OpenAIService implements LLMService for any OpenAI-compatible chat
// completions endpoint: OpenAI, Venice and Ollama's /v1 API.
type OpenAIService struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewOpenAIService creates a client for baseURL. apiKey may be empty for
// local backends.
func NewOpenAIService(baseURL, apiKey string, logger *slog.Logger) *OpenAIService {
	return &OpenAIService{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			// no overall timeout: streams are bounded by the caller's context
			Transport: &http.Transport{ResponseHeaderTimeout: 90 * time.Second},
		},
		logger: logger,
	}
}

// InitModel is a no-op; hosted APIs need no model preparation
func (s *OpenAIService) InitModel(ctx context.Context, modelName string) error {
	return nil
}

type openAIFunctionCall struct {
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

type openAIToolCall struct {
	Index    *int               `json:"index,omitempty"`
	ID       string             `json:"id,omitempty"`
	Type     string             `json:"type,omitempty"`
	Function openAIFunctionCall `json:"function"`
}

type openAIMessage struct {
	Role       string           `json:"role"`
	Content    string           `json:"content"`
	ToolCalls  []openAIToolCall `json:"tool_calls,omitempty"`
	ToolCallID string           `json:"tool_call_id,omitempty"`
	Name       string           `json:"name,omitempty"`
}

type openAITool struct {
	Type     string `json:"type"`
	Function struct {
		Name        string         `json:"name"`
		Description string         `json:"description"`
		Parameters  map[string]any `json:"parameters"`
	} `json:"function"`
}

// OpenAIChatRequest is the chat completions request body
type OpenAIChatRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Tools       []openAITool    `json:"tools,omitempty"`
	Temperature float64         `json:"temperature,omitempty"`
	Stream      bool            `json:"stream"`
}

// OpenAIStreamChunk is one "data:" event of a streamed response
type OpenAIStreamChunk struct {
	Choices []struct {
		Index int `json:"index"`
		Delta struct {
			Content   string           `json:"content"`
			ToolCalls []openAIToolCall `json:"tool_calls"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func toOpenAIMessages(msgs []chat.Message) ([]openAIMessage, error) {
	out := make([]openAIMessage, 0, len(msgs))
	for _, m := range msgs {
		om := openAIMessage{Role: m.Role, Content: m.Content, ToolCallID: m.ToolCallID}
		if m.Role == chat.RoleTool {
			om.Name = m.Name
		}
		for _, tc := range m.ToolCalls {
			args, err := json.Marshal(tc.Arguments)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal tool arguments: %w", err)
			}
			om.ToolCalls = append(om.ToolCalls, openAIToolCall{
				ID:       tc.ID,
				Type:     "function",
				Function: openAIFunctionCall{Name: tc.Name, Arguments: string(args)},
			})
		}
		out = append(out, om)
	}
	return out, nil
}

func toOpenAITools(specs []chat.ToolSpec) []openAITool {
	out := make([]openAITool, 0, len(specs))
	for _, s := range specs {
		var t openAITool
		t.Type = "function"
		t.Function.Name = s.Name
		t.Function.Description = s.Description
		t.Function.Parameters = s.JSONSchema()
		out = append(out, t)
	}
	return out
}

// ChatStream posts a streaming chat completion and parses the SSE body
func (s *OpenAIService) ChatStream(ctx context.Context, req StreamRequest) (<-chan StreamChunk, error) {
	msgs, err := toOpenAIMessages(req.Messages)
	if err != nil {
		return nil, err
	}
	body := OpenAIChatRequest{
		Model:       req.Model,
		Messages:    msgs,
		Temperature: DefaultTemperature,
		Stream:      true,
	}
	if len(req.Tools) > 0 {
		body.Tools = toOpenAITools(req.Tools)
	}

	reqBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/chat/completions", bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	if s.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	s.logger.Debug("Sending streaming chat request",
		"model", req.Model,
		"message_count", len(req.Messages),
		"tool_count", len(req.Tools))

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer func() { _ = resp.Body.Close() }()
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(errBody))
	}

	ch := make(chan StreamChunk)
	go func() {
		defer close(ch)
		defer func() { _ = resp.Body.Close() }()
		s.readStream(ctx, resp.Body, ch)
	}()
	return ch, nil
}

func (s *OpenAIService) readStream(ctx context.Context, body io.Reader, ch chan<- StreamChunk) {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			send(ctx, ch, StreamChunk{Done: true})
			return
		}

		var chunk OpenAIStreamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			send(ctx, ch, StreamChunk{Error: fmt.Errorf("failed to parse stream chunk: %w", err)})
			return
		}
		if chunk.Error != nil {
			send(ctx, ch, StreamChunk{Error: fmt.Errorf("API error: %s", chunk.Error.Message)})
			return
		}

		for _, choice := range chunk.Choices {
			out := StreamChunk{Content: choice.Delta.Content}
			for pos, tc := range choice.Delta.ToolCalls {
				idx := pos
				if tc.Index != nil {
					idx = *tc.Index
				}
				out.ToolCalls = append(out.ToolCalls, chat.ToolCallDelta{
					Index:     idx,
					ID:        tc.ID,
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				})
			}
			if out.Content == "" && len(out.ToolCalls) == 0 {
				continue
			}
			if !send(ctx, ch, out) {
				return
			}
		}
	}

	if err := scanner.Err(); err != nil {
		send(ctx, ch, StreamChunk{Error: fmt.Errorf("stream read failed: %w", err)})
		return
	}
	// some backends close the body without a [DONE] marker
	send(ctx, ch, StreamChunk{Done: true})
}
