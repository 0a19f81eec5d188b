package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/gamemaster-agent/pkg/storage"
	"github.com/jwebster45206/gamemaster-agent/pkg/story"
)

const (
	storyKeyPrefix = "story:"
	ownerKeyPrefix = "owner:"
)

// RedisStorage keeps each story as a JSON string under story:<id> and an
// owner index as a sorted set scored by update time.
type RedisStorage struct {
	client *redis.Client
	logger *slog.Logger
	ttl    time.Duration
}

// Ensure RedisStorage implements Storage interface
var _ storage.Storage = (*RedisStorage)(nil)

// NewRedisStorage connects to redisURL. A zero ttl keeps stories forever.
func NewRedisStorage(redisURL string, ttl time.Duration, logger *slog.Logger) (*RedisStorage, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	return NewRedisStorageWithClient(redis.NewClient(opt), ttl, logger), nil
}

// NewRedisStorageWithClient wraps an existing client
func NewRedisStorageWithClient(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisStorage {
	return &RedisStorage{client: client, logger: logger, ttl: ttl}
}

func storyKey(id uuid.UUID) string {
	return storyKeyPrefix + id.String()
}

func ownerKey(owner string) string {
	return ownerKeyPrefix + owner + ":stories"
}

// Health and lifecycle methods

func (r *RedisStorage) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStorage) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	r.logger.Info("Redis connection closed")
	return nil
}

// WaitForConnection waits for Redis to become available (used during startup)
func (r *RedisStorage) WaitForConnection(ctx context.Context) error {
	maxRetries := 30
	retryDelay := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		if err := r.Ping(ctx); err != nil {
			r.logger.Debug("Redis not ready yet", "error", err, "attempt", i+1)

			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
			case <-time.After(retryDelay):
				continue
			}
		}

		r.logger.Info("Redis connection established")
		return nil
	}

	return fmt.Errorf("redis did not become available after %d attempts", maxRetries)
}

// Story operations

func (r *RedisStorage) SaveStory(ctx context.Context, rec *story.Record) error {
	if rec == nil {
		return errors.New("story cannot be nil")
	}
	if err := rec.Validate(); err != nil {
		return err
	}

	data, err := json.Marshal(rec)
	if err != nil {
		r.logger.Error("Failed to marshal story", "story_id", rec.ID, "error", err)
		return fmt.Errorf("failed to marshal story: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, storyKey(rec.ID), data, r.ttl)
		pipe.ZAdd(ctx, ownerKey(rec.Owner), redis.Z{
			Score:  float64(rec.UpdatedAt.UnixMilli()),
			Member: rec.ID.String(),
		})
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to save story", "story_id", rec.ID, "error", err)
		return fmt.Errorf("failed to save story: %w", err)
	}
	return nil
}

func (r *RedisStorage) LoadStory(ctx context.Context, id uuid.UUID) (*story.Record, error) {
	data, err := r.client.Get(ctx, storyKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, storage.ErrStoryNotFound
	}
	if err != nil {
		r.logger.Error("Failed to load story", "story_id", id, "error", err)
		return nil, fmt.Errorf("failed to load story: %w", err)
	}

	var rec story.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		r.logger.Error("Failed to unmarshal story", "story_id", id, "error", err)
		return nil, fmt.Errorf("failed to unmarshal story: %w", err)
	}
	return &rec, nil
}

func (r *RedisStorage) DeleteStory(ctx context.Context, id uuid.UUID) error {
	rec, err := r.LoadStory(ctx, id)
	if err != nil {
		return err
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, storyKey(id))
		pipe.ZRem(ctx, ownerKey(rec.Owner), id.String())
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to delete story", "story_id", id, "error", err)
		return fmt.Errorf("failed to delete story: %w", err)
	}
	return nil
}

// ListStories reads the owner index newest first. Index entries whose
// story has expired are pruned on the way.
func (r *RedisStorage) ListStories(ctx context.Context, owner string) ([]story.Summary, error) {
	ids, err := r.client.ZRevRange(ctx, ownerKey(owner), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list stories: %w", err)
	}
	out := []story.Summary{}
	if len(ids) == 0 {
		return out, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = storyKeyPrefix + id
	}
	vals, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load stories: %w", err)
	}

	var stale []any
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			stale = append(stale, ids[i])
			continue
		}
		var rec story.Record
		if err := json.Unmarshal([]byte(s), &rec); err != nil {
			r.logger.Warn("Skipping unreadable story", "story_id", ids[i], "error", err)
			continue
		}
		out = append(out, rec.Summary())
	}

	if len(stale) > 0 {
		if err := r.client.ZRem(ctx, ownerKey(owner), stale...).Err(); err != nil {
			r.logger.Warn("Failed to prune expired stories", "owner", owner, "error", err)
		}
	}
	storage.SortSummaries(out)
	return out, nil
}
