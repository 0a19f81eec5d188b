package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RequestType identifies the type of request in the queue
type RequestType string

const (
	// RequestTypeCreateStory runs character creation and the opening scene
	RequestTypeCreateStory RequestType = "create_story"

	// RequestTypeChat is a player message for an existing story
	RequestTypeChat RequestType = "chat"
)

// Request is one unit of work for the worker pool
type Request struct {
	RequestID string      `json:"request_id"`
	Type      RequestType `json:"type"`
	StoryID   uuid.UUID   `json:"story_id"`
	Owner     string      `json:"owner,omitempty"`

	// Chat-specific fields
	Message string `json:"message,omitempty"`

	EnqueuedAt time.Time `json:"enqueued_at"`
}

// NewRequest stamps a request with a fresh id and the current time
func NewRequest(t RequestType, storyID uuid.UUID, owner, message string) *Request {
	return &Request{
		RequestID:  uuid.New().String(),
		Type:       t,
		StoryID:    storyID,
		Owner:      owner,
		Message:    message,
		EnqueuedAt: time.Now().UTC(),
	}
}

func (r *Request) Validate() error {
	if r.RequestID == "" {
		return fmt.Errorf("request_id is required")
	}
	if r.StoryID == uuid.Nil {
		return fmt.Errorf("story_id is required")
	}
	switch r.Type {
	case RequestTypeCreateStory:
	case RequestTypeChat:
		if r.Message == "" {
			return fmt.Errorf("chat request requires a message")
		}
	default:
		return fmt.Errorf("unknown request type: %q", r.Type)
	}
	return nil
}

// ToJSON converts the request to JSON bytes for Redis
func (r *Request) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

// FromJSON parses a request from JSON bytes
func FromJSON(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, err
	}
	return &req, nil
}
