package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/gamemaster-agent/pkg/events"
)

// DefaultKeepalive is how often an idle stream gets a comment line
const DefaultKeepalive = 30 * time.Second

// Subscriber opens a pub/sub subscription to one story's events
type Subscriber interface {
	Subscribe(ctx context.Context, storyID uuid.UUID) *redis.PubSub
}

// EventsHandler handles Server-Sent Events (SSE) for real-time story updates
type EventsHandler struct {
	subscriber Subscriber
	logger     *slog.Logger
	keepalive  time.Duration
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(subscriber Subscriber, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{
		subscriber: subscriber,
		logger:     logger,
		keepalive:  DefaultKeepalive,
	}
}

// ServeHTTP handles GET /v1/stories/{id}/events
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, h.logger, "GET")
		return
	}

	id, ok := storyID(w, r, h.logger)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, h.logger, http.StatusInternalServerError, "Streaming is not supported.")
		return
	}

	pubsub := h.subscriber.Subscribe(r.Context(), id)
	defer func() {
		if err := pubsub.Close(); err != nil {
			h.logger.Error("Failed to close pubsub", "error", err)
		}
	}()
	// wait for the subscription so nothing published after "connected" is missed
	if _, err := pubsub.Receive(r.Context()); err != nil {
		h.logger.Error("Failed to subscribe to story events", "error", err, "story_id", id.String())
		writeError(w, h.logger, http.StatusServiceUnavailable, "Event stream unavailable.")
		return
	}

	h.logger.Info("SSE connection established",
		"story_id", id.String(),
		"remote_addr", r.RemoteAddr)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	msgChan := pubsub.Channel()

	keepaliveTicker := time.NewTicker(h.keepalive)
	defer keepaliveTicker.Stop()

	if err := h.sendSSE(w, flusher, "connected", map[string]any{
		"story_id": id.String(),
		"message":  "Connected to event stream",
	}); err != nil {
		return
	}

	for {
		select {
		case <-r.Context().Done():
			h.logger.Info("SSE client disconnected", "story_id", id.String())
			return

		case msg, ok := <-msgChan:
			if !ok {
				return
			}
			var event events.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				h.logger.Error("Failed to unmarshal event", "error", err, "payload", msg.Payload)
				continue
			}
			if err := h.sendSSE(w, flusher, string(event.Type), event); err != nil {
				return
			}

		case <-keepaliveTicker.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				h.logger.Error("Failed to write keepalive", "error", err)
				return
			}
			flusher.Flush()
		}
	}
}

// sendSSE writes one named event with a JSON payload
func (h *EventsHandler) sendSSE(w http.ResponseWriter, flusher http.Flusher, eventType string, data any) error {
	dataJSON, err := json.Marshal(data)
	if err != nil {
		h.logger.Error("Failed to marshal SSE data", "error", err)
		return nil
	}

	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, dataJSON); err != nil {
		h.logger.Error("Failed to write event", "error", err, "event_type", eventType)
		return err
	}
	flusher.Flush()
	return nil
}
