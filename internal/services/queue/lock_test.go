package queue

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoryLocks(t *testing.T) {
	client, mr := setupTestRedis(t)
	locks := client.StoryLocks(time.Minute)
	ctx := context.Background()
	storyID := uuid.New()

	ok, err := locks.Acquire(ctx, storyID, "worker-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, time.Minute, mr.TTL(StoryLockKey(storyID)))

	ok, err = locks.Acquire(ctx, storyID, "api-edit")
	require.NoError(t, err)
	assert.False(t, ok, "second holder is refused")

	// only the owner can release
	require.NoError(t, locks.Release(ctx, storyID, "api-edit"))
	owner, err := mr.Get(StoryLockKey(storyID))
	require.NoError(t, err)
	assert.Equal(t, "worker-1", owner)

	require.NoError(t, locks.Release(ctx, storyID, "worker-1"))
	assert.False(t, mr.Exists(StoryLockKey(storyID)))

	ok, err = locks.Acquire(ctx, storyID, "api-edit")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStoryLocks_Expire(t *testing.T) {
	client, mr := setupTestRedis(t)
	locks := NewStoryLocks(client.GetRedisClient(), 0)
	ctx := context.Background()
	storyID := uuid.New()

	ok, err := locks.Acquire(ctx, storyID, "crashed-worker")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, DefaultLockTTL, mr.TTL(StoryLockKey(storyID)))

	mr.FastForward(DefaultLockTTL + time.Second)
	ok, err = locks.Acquire(ctx, storyID, "worker-2")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestClient_Ping(t *testing.T) {
	client, mr := setupTestRedis(t)
	require.NoError(t, client.Ping(context.Background()))

	mr.Close()
	assert.Error(t, client.Ping(context.Background()))
}
