package chat

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// MaxMessageLength caps a single player message
const MaxMessageLength = 2000

// ChatRequest is a player message submitted to a story
type ChatRequest struct {
	StoryID uuid.UUID `json:"story_id"`
	Message string    `json:"message"`
}

// ChatResponse acknowledges a queued chat request
type ChatResponse struct {
	StoryID   uuid.UUID `json:"story_id,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	Message   string    `json:"message,omitempty"`
}

func (cr *ChatRequest) Validate() error {
	if strings.TrimSpace(cr.Message) == "" {
		return fmt.Errorf("message cannot be empty")
	}
	if len(cr.Message) > MaxMessageLength {
		return fmt.Errorf("message exceeds maximum length of %d characters", MaxMessageLength)
	}
	if cr.StoryID == uuid.Nil {
		return fmt.Errorf("story_id is required")
	}
	return nil
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ToolCall is a model request to run a named tool.
// ID correlates the request with its tool-result message.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// Message is one entry in an agent transcript
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"` // set on tool-result messages
	Name       string     `json:"name,omitempty"`         // tool name on tool-result messages
}

// HasToolCalls reports whether the message requests any tool
func (m Message) HasToolCalls() bool {
	return len(m.ToolCalls) > 0
}

func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// ToolResult builds the tool-role reply for call
func ToolResult(call ToolCall, content string) Message {
	return Message{
		Role:       RoleTool,
		Content:    content,
		ToolCallID: call.ID,
		Name:       call.Name,
	}
}

// Entry is the persisted {role, content} form of a transcript message.
// Tool calls are not persisted.
type Entry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Entries flattens a transcript for storage
func Entries(msgs []Message) []Entry {
	out := make([]Entry, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, Entry{Role: m.Role, Content: m.Content})
	}
	return out
}
