package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/jwebster45206/gamemaster-agent/pkg/chat"
)

// MockLLMAPI is a scripted LLMService for tests. Each ChatStream call
// replays the next entry of Responses, keyed by model name, as a stream.
type MockLLMAPI struct {
	InitModelFunc  func(ctx context.Context, modelName string) error
	ChatStreamFunc func(ctx context.Context, req StreamRequest) (<-chan StreamChunk, error)

	// Responses holds scripted replies per model; each reply is a list of
	// chunks sent in order, followed by a Done chunk.
	Responses map[string][][]StreamChunk

	// Track calls for testing
	InitModelCalls  []string
	ChatStreamCalls []StreamRequest

	mu sync.Mutex // protects all fields above
}

// NewMockLLMAPI creates a new mock LLM service
func NewMockLLMAPI() *MockLLMAPI {
	return &MockLLMAPI{
		Responses:       make(map[string][][]StreamChunk),
		InitModelCalls:  make([]string, 0),
		ChatStreamCalls: make([]StreamRequest, 0),
	}
}

// Script appends one reply for model
func (m *MockLLMAPI) Script(model string, chunks ...StreamChunk) *MockLLMAPI {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Responses[model] = append(m.Responses[model], chunks)
	return m
}

// InitModel mocks model initialization
func (m *MockLLMAPI) InitModel(ctx context.Context, modelName string) error {
	m.mu.Lock()
	m.InitModelCalls = append(m.InitModelCalls, modelName)
	fn := m.InitModelFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, modelName)
	}
	return nil
}

// ChatStream replays the next scripted reply for req.Model. With nothing
// scripted it streams "Mock response".
func (m *MockLLMAPI) ChatStream(ctx context.Context, req StreamRequest) (<-chan StreamChunk, error) {
	m.mu.Lock()
	msgs := append([]chat.Message(nil), req.Messages...)
	m.ChatStreamCalls = append(m.ChatStreamCalls, StreamRequest{Model: req.Model, Messages: msgs, Tools: req.Tools})
	fn := m.ChatStreamFunc
	var chunks []StreamChunk
	if replies := m.Responses[req.Model]; len(replies) > 0 {
		chunks = replies[0]
		m.Responses[req.Model] = replies[1:]
	} else {
		chunks = []StreamChunk{{Content: "Mock response"}}
	}
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}

	ch := make(chan StreamChunk)
	go func() {
		defer close(ch)
		for _, c := range chunks {
			if !send(ctx, ch, c) {
				return
			}
			if c.Error != nil {
				return
			}
		}
		send(ctx, ch, StreamChunk{Done: true})
	}()
	return ch, nil
}

// CallsFor returns the recorded requests sent to model
func (m *MockLLMAPI) CallsFor(model string) []StreamRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []StreamRequest
	for _, c := range m.ChatStreamCalls {
		if c.Model == model {
			out = append(out, c)
		}
	}
	return out
}

// ToolCallChunk is a helper for scripting a complete tool call in one chunk
func ToolCallChunk(index int, id, name, argsJSON string) StreamChunk {
	return StreamChunk{ToolCalls: []chat.ToolCallDelta{{Index: index, ID: id, Name: name, Arguments: argsJSON}}}
}

// ErrorChunk scripts a mid-stream failure
func ErrorChunk(format string, args ...any) StreamChunk {
	return StreamChunk{Error: fmt.Errorf(format, args...)}
}
