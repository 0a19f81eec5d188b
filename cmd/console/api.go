package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/jwebster45206/gamemaster-agent/pkg/character"
	"github.com/jwebster45206/gamemaster-agent/pkg/chat"
	"github.com/jwebster45206/gamemaster-agent/pkg/events"
	"github.com/jwebster45206/gamemaster-agent/pkg/story"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// APIClient talks to the game master API
type APIClient struct {
	baseURL string
	client  *http.Client
	// stream has no timeout; the SSE connection stays open
	stream *http.Client
}

func NewAPIClient(cfg *ConsoleConfig) *APIClient {
	return &APIClient{
		baseURL: strings.TrimRight(cfg.APIBaseURL, "/"),
		client:  &http.Client{Timeout: cfg.Timeout},
		stream:  &http.Client{},
	}
}

func (c *APIClient) testConnection() bool {
	resp, err := c.client.Get(c.baseURL + "/health")
	if err != nil {
		return false
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()
	return resp.StatusCode == http.StatusOK
}

// do sends a JSON request and decodes a JSON reply into out when out is non-nil
func (c *APIClient) do(method, path string, in any, wantStatus int, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewBuffer(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != wantStatus {
		var errorResp ErrorResponse
		if err := json.Unmarshal(respBody, &errorResp); err != nil || errorResp.Error == "" {
			return fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(respBody))
		}
		return fmt.Errorf("%s", errorResp.Error)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func (c *APIClient) listStories(owner string) ([]story.Summary, error) {
	var out []story.Summary
	err := c.do(http.MethodGet, "/v1/stories?owner="+url.QueryEscape(owner), nil, http.StatusOK, &out)
	return out, err
}

func (c *APIClient) getStory(id uuid.UUID) (*story.Record, error) {
	var rec story.Record
	if err := c.do(http.MethodGet, "/v1/stories/"+id.String(), nil, http.StatusOK, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// CreateStoryRequest matches the API request structure
type CreateStoryRequest struct {
	Owner                string `json:"owner"`
	WorldDescription     string `json:"world_description"`
	CharacterDescription string `json:"character_description"`
}

type createStoryResponse struct {
	StoryID   uuid.UUID `json:"story_id"`
	RequestID string    `json:"request_id"`
}

func (c *APIClient) createStory(owner, world, characterDesc string) (uuid.UUID, error) {
	var out createStoryResponse
	err := c.do(http.MethodPost, "/v1/stories", CreateStoryRequest{
		Owner:                owner,
		WorldDescription:     world,
		CharacterDescription: characterDesc,
	}, http.StatusAccepted, &out)
	return out.StoryID, err
}

// sendChat queues a message and returns the request ID
func (c *APIClient) sendChat(id uuid.UUID, message string) (string, error) {
	var out chat.ChatResponse
	err := c.do(http.MethodPost, "/v1/stories/"+id.String()+"/chat", map[string]string{"message": message}, http.StatusAccepted, &out)
	return out.RequestID, err
}

func (c *APIClient) renameCharacter(id uuid.UUID, name string) (*character.Snapshot, error) {
	var snap character.Snapshot
	if err := c.do(http.MethodPut, "/v1/stories/"+id.String()+"/character", map[string]string{"name": name}, http.StatusOK, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// exportStory downloads the PDF rendering into dir and returns the file path
func (c *APIClient) exportStory(id uuid.UUID, dir string) (string, error) {
	resp, err := c.client.Get(c.baseURL + "/v1/stories/" + id.String() + "/export")
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("export failed with status %d", resp.StatusCode)
	}

	path := fmt.Sprintf("%s/story-%s.pdf", strings.TrimRight(dir, "/"), id.String()[:8])
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()
	if _, err := io.Copy(f, resp.Body); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	return path, nil
}

// listenToSSE streams the story's events into eventChan until ctx ends or
// the connection drops. eventChan is closed on return.
func (c *APIClient) listenToSSE(ctx context.Context, id uuid.UUID, eventChan chan<- events.Event) error {
	defer close(eventChan)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/stories/"+id.String()+"/events", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.stream.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to SSE: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("SSE connection failed with status %d: %s", resp.StatusCode, string(body))
	}

	return readSSE(ctx, resp.Body, eventChan)
}

// readSSE parses "event:"/"data:" frames. The event name wins over any
// type carried in the payload.
func readSSE(ctx context.Context, r io.Reader, eventChan chan<- events.Event) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var name, data string
	for scanner.Scan() {
		line := scanner.Text()

		if line == "" {
			// Empty line signals end of event
			if name != "" {
				var e events.Event
				if data != "" {
					_ = json.Unmarshal([]byte(data), &e)
				}
				e.Type = events.Kind(name)
				select {
				case eventChan <- e:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			name, data = "", ""
			continue
		}

		switch {
		case strings.HasPrefix(line, "event: "):
			name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading SSE stream: %w", err)
	}
	return nil
}
