package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/gamemaster-agent/pkg/events"
)

// Channel is the pub/sub channel carrying a story's events
func Channel(storyID uuid.UUID) string {
	return fmt.Sprintf("story-events:%s", storyID.String())
}

// Broadcaster publishes events to Redis Pub/Sub for SSE distribution
type Broadcaster struct {
	redisClient *redis.Client
	logger      *slog.Logger
}

// NewBroadcaster creates a new event broadcaster
func NewBroadcaster(redisClient *redis.Client, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		redisClient: redisClient,
		logger:      logger,
	}
}

// Subscribe opens a subscription to the story's channel. The caller closes it.
func (b *Broadcaster) Subscribe(ctx context.Context, storyID uuid.UUID) *redis.PubSub {
	return b.redisClient.Subscribe(ctx, Channel(storyID))
}

// Sink returns an events.Sink publishing to the story's channel with
// requestID stamped on every event.
func (b *Broadcaster) Sink(storyID uuid.UUID, requestID string) events.Sink {
	return events.SinkFunc(func(ctx context.Context, e events.Event) error {
		if e.RequestID == "" {
			e.RequestID = requestID
		}
		return b.Publish(ctx, storyID, e)
	})
}

// PublishRequestQueued publishes a request.queued event
func (b *Broadcaster) PublishRequestQueued(ctx context.Context, storyID uuid.UUID, requestID string, requestType string) error {
	return b.Publish(ctx, storyID, events.Event{
		Type:      events.KindRequestQueued,
		RequestID: requestID,
		Data: map[string]any{
			"status": "queued",
			"type":   requestType,
		},
	})
}

// PublishRequestProcessing publishes a request.processing event
func (b *Broadcaster) PublishRequestProcessing(ctx context.Context, storyID uuid.UUID, requestID string, requestType string, userMessage string) error {
	return b.Publish(ctx, storyID, events.Event{
		Type:      events.KindRequestProcessing,
		RequestID: requestID,
		Data: map[string]any{
			"status":       "processing",
			"type":         requestType,
			"user_message": userMessage,
		},
	})
}

// PublishRequestCompleted publishes a request.completed event
func (b *Broadcaster) PublishRequestCompleted(ctx context.Context, storyID uuid.UUID, requestID string, result map[string]any) error {
	return b.Publish(ctx, storyID, events.Event{
		Type:      events.KindRequestCompleted,
		RequestID: requestID,
		Data: map[string]any{
			"status": "completed",
			"result": result,
		},
	})
}

// PublishRequestFailed publishes a request.failed event
func (b *Broadcaster) PublishRequestFailed(ctx context.Context, storyID uuid.UUID, requestID string, errorMsg string) error {
	return b.Publish(ctx, storyID, events.Event{
		Type:      events.KindRequestFailed,
		RequestID: requestID,
		Data: map[string]any{
			"status": "failed",
			"error":  errorMsg,
		},
	})
}

// Publish sends event to the story-specific channel
func (b *Broadcaster) Publish(ctx context.Context, storyID uuid.UUID, event events.Event) error {
	channel := Channel(storyID)
	event.StoryID = storyID.String()

	data, err := json.Marshal(event)
	if err != nil {
		b.logger.Error("Failed to marshal event", "error", err, "event_type", event.Type)
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.redisClient.Publish(ctx, channel, data).Err(); err != nil {
		b.logger.Error("Failed to publish event", "error", err, "channel", channel)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	b.logger.Debug("Event published",
		"channel", channel,
		"event_type", event.Type,
		"request_id", event.RequestID,
	)

	return nil
}
