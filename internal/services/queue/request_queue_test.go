package queue

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/gamemaster-agent/pkg/queue"
)

func setupTestRedis(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	client, err := NewClient("redis://"+mr.Addr(), logger)
	if err != nil {
		mr.Close()
		t.Fatalf("Failed to create queue client: %v", err)
	}

	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return client, mr
}

func TestRequestQueue_FIFO(t *testing.T) {
	client, _ := setupTestRedis(t)
	q := NewRequestQueue(client)
	ctx := context.Background()
	storyID := uuid.New()

	first := queue.NewRequest(queue.RequestTypeCreateStory, storyID, "alice", "")
	second := queue.NewRequest(queue.RequestTypeChat, storyID, "alice", "I look around.")
	require.NoError(t, q.EnqueueRequest(ctx, first))
	require.NoError(t, q.EnqueueRequest(ctx, second))

	depth, err := q.RequestQueueDepth(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, depth)

	got, err := q.DequeueRequest(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.RequestID, got.RequestID)
	assert.Equal(t, queue.RequestTypeCreateStory, got.Type)

	got, err = q.BlockingDequeueRequest(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "I look around.", got.Message)
	assert.Equal(t, storyID, got.StoryID)
}

func TestRequestQueue_EmptyReturnsNil(t *testing.T) {
	client, _ := setupTestRedis(t)
	q := NewRequestQueue(client)

	got, err := q.DequeueRequest(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRequestQueue_CorruptEntry(t *testing.T) {
	client, mr := setupTestRedis(t)
	q := NewRequestQueue(client)
	_, err := mr.RPush(requestsKey, "{not json")
	require.NoError(t, err)

	_, err = q.DequeueRequest(context.Background())
	assert.Error(t, err)
}
