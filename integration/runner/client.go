package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/gamemaster-agent/pkg/chat"
	"github.com/jwebster45206/gamemaster-agent/pkg/story"
)

const (
	// PollInterval is how often to check the story for updates
	PollInterval = 1 * time.Second
	// CreateTimeout is max time to wait for character creation to finish
	CreateTimeout = 90 * time.Second
	// ChatTimeout is max time to wait for a chat turn to be saved
	ChatTimeout = 60 * time.Second
)

type acceptedResponse struct {
	StoryID   uuid.UUID `json:"story_id"`
	RequestID string    `json:"request_id"`
}

func doJSON(ctx context.Context, client *http.Client, method, url string, body any, want int, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != want {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s %s returned %d (expected %d): %s", method, url, resp.StatusCode, want, string(errBody))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// CreateStory posts a new story and returns its id
func CreateStory(ctx context.Context, client *http.Client, baseURL string, suite TestSuite) (uuid.UUID, error) {
	body := map[string]string{
		"owner":                 suite.Owner,
		"title":                 suite.Title,
		"world_description":     suite.WorldDescription,
		"character_description": suite.CharacterDescription,
	}
	var resp acceptedResponse
	if err := doJSON(ctx, client, http.MethodPost, baseURL+"/v1/stories", body, http.StatusAccepted, &resp); err != nil {
		return uuid.Nil, err
	}
	return resp.StoryID, nil
}

// PostChat queues a player message and returns the request_id
func PostChat(ctx context.Context, client *http.Client, baseURL string, storyID uuid.UUID, message string) (string, error) {
	var resp acceptedResponse
	url := fmt.Sprintf("%s/v1/stories/%s/chat", baseURL, storyID)
	if err := doJSON(ctx, client, http.MethodPost, url, map[string]string{"message": message}, http.StatusAccepted, &resp); err != nil {
		return "", err
	}
	return resp.RequestID, nil
}

// GetStory fetches the persisted story
func GetStory(ctx context.Context, client *http.Client, baseURL string, storyID uuid.UUID) (*story.Record, error) {
	var rec story.Record
	url := fmt.Sprintf("%s/v1/stories/%s", baseURL, storyID)
	if err := doJSON(ctx, client, http.MethodGet, url, nil, http.StatusOK, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// DeleteStory removes a story created by the runner
func DeleteStory(ctx context.Context, client *http.Client, baseURL string, storyID uuid.UUID) error {
	url := fmt.Sprintf("%s/v1/stories/%s", baseURL, storyID)
	return doJSON(ctx, client, http.MethodDelete, url, nil, http.StatusNoContent, nil)
}

// PollForStory re-fetches the story until done reports true or timeout passes
func PollForStory(ctx context.Context, client *http.Client, baseURL string, storyID uuid.UUID, timeout time.Duration, done func(*story.Record) bool) (*story.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()

	for {
		rec, err := GetStory(ctx, client, baseURL, storyID)
		if err == nil && done(rec) {
			return rec, nil
		}
		select {
		case <-ctx.Done():
			if err != nil {
				return nil, fmt.Errorf("timed out waiting for story %s: %w", storyID, err)
			}
			return nil, fmt.Errorf("timed out waiting for story %s", storyID)
		case <-ticker.C:
		}
	}
}

// CharacterCreated reports whether creation has finished
func CharacterCreated(rec *story.Record) bool {
	return rec.Character != nil && rec.Character.Created
}

// UpdatedSince returns a poll condition that holds once the story has been
// saved after prev and ends on a Game Master message.
func UpdatedSince(prev *story.Record) func(*story.Record) bool {
	return func(rec *story.Record) bool {
		if !rec.UpdatedAt.After(prev.UpdatedAt) || len(rec.ChatHistory) <= len(prev.ChatHistory) {
			return false
		}
		last := rec.ChatHistory[len(rec.ChatHistory)-1]
		return last.Role == chat.RoleAssistant
	}
}

// LastResponse returns the most recent non-empty Game Master message
func LastResponse(rec *story.Record) string {
	for i := len(rec.ChatHistory) - 1; i >= 0; i-- {
		e := rec.ChatHistory[i]
		if e.Role == chat.RoleAssistant && e.Content != "" {
			return e.Content
		}
	}
	return ""
}
