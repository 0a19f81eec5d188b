package services

import (
	"context"

	"github.com/jwebster45206/gamemaster-agent/pkg/chat"
)

// StreamRequest is one model invocation: a transcript and the tools the
// model may call.
type StreamRequest struct {
	Model    string
	Messages []chat.Message
	Tools    []chat.ToolSpec
}

// StreamChunk is one fragment of a streamed response. The final chunk has
// Done set; a failed stream ends with a chunk carrying Error.
type StreamChunk struct {
	Content   string
	ToolCalls []chat.ToolCallDelta
	Done      bool
	Error     error
}

// Fragment returns the chunk's payload for accumulation
func (c StreamChunk) Fragment() chat.Fragment {
	return chat.Fragment{Content: c.Content, ToolCalls: c.ToolCalls}
}

// LLMService defines the interface for interacting with the LLM API
type LLMService interface {
	// InitModel prepares a model for use (pulls it for local backends)
	InitModel(ctx context.Context, modelName string) error

	// ChatStream streams a response. The channel is closed after the Done
	// or Error chunk, or when ctx ends.
	ChatStream(ctx context.Context, req StreamRequest) (<-chan StreamChunk, error)
}

// send delivers a chunk unless ctx has ended
func send(ctx context.Context, ch chan<- StreamChunk, c StreamChunk) bool {
	select {
	case ch <- c:
		return true
	case <-ctx.Done():
		return false
	}
}
