package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const dialTimeout = 5 * time.Second

// Client owns the Redis connection shared by the request queue, story
// locks and the event broadcaster.
type Client struct {
	rdb    *redis.Client
	logger *slog.Logger
}

// NewClient connects to redisURL and fails fast if Redis does not answer
func NewClient(redisURL string, logger *slog.Logger) (*Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis at %s is unreachable: %w", opt.Addr, err)
	}

	logger.Info("Connected to Redis", "addr", opt.Addr, "db", opt.DB)
	return &Client{rdb: rdb, logger: logger}, nil
}

// Ping checks the connection; it backs the queue health component
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// StoryLocks returns story locks sharing this connection
func (c *Client) StoryLocks(ttl time.Duration) *StoryLocks {
	return NewStoryLocks(c.rdb, ttl)
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

// GetRedisClient exposes the connection for pub/sub
func (c *Client) GetRedisClient() *redis.Client {
	return c.rdb
}
