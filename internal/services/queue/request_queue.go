package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/gamemaster-agent/pkg/queue"
)

const requestsKey = "requests"

// RequestQueue is the global FIFO of story requests shared by all workers
type RequestQueue struct {
	client *Client
}

func NewRequestQueue(client *Client) *RequestQueue {
	return &RequestQueue{client: client}
}

// EnqueueRequest adds a request to the end of the queue
func (q *RequestQueue) EnqueueRequest(ctx context.Context, req *queue.Request) error {
	data, err := req.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize request: %w", err)
	}

	if err := q.client.rdb.RPush(ctx, requestsKey, data).Err(); err != nil {
		return fmt.Errorf("failed to enqueue request: %w", err)
	}
	return nil
}

// DequeueRequest removes and returns the next request.
// Returns nil if queue is empty
func (q *RequestQueue) DequeueRequest(ctx context.Context) (*queue.Request, error) {
	result, err := q.client.rdb.LPop(ctx, requestsKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to dequeue request: %w", err)
	}

	req, err := queue.FromJSON([]byte(result))
	if err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	return req, nil
}

// BlockingDequeueRequest waits up to timeout for a request. It returns nil
// without error when the wait times out or ctx ends.
func (q *RequestQueue) BlockingDequeueRequest(ctx context.Context, timeout time.Duration) (*queue.Request, error) {
	result, err := q.client.rdb.BLPop(ctx, timeout, requestsKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) || ctx.Err() != nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to dequeue request: %w", err)
	}

	// BLPop returns [key, value]
	if len(result) != 2 {
		return nil, fmt.Errorf("unexpected BLPop result: %v", result)
	}

	req, err := queue.FromJSON([]byte(result[1]))
	if err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	return req, nil
}

// RequestQueueDepth returns the number of waiting requests
func (q *RequestQueue) RequestQueueDepth(ctx context.Context) (int, error) {
	count, err := q.client.rdb.LLen(ctx, requestsKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get request queue depth: %w", err)
	}
	return int(count), nil
}
