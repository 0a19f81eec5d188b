package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/gamemaster-agent/internal/orchestrator"
	"github.com/jwebster45206/gamemaster-agent/internal/services/events"
	"github.com/jwebster45206/gamemaster-agent/internal/services/queue"
	queuePkg "github.com/jwebster45206/gamemaster-agent/pkg/queue"
)

const workerTimeout = 5 * time.Second

// Worker processes requests from the request queue, one story at a time
type Worker struct {
	id          string
	queue       *queue.RequestQueue
	processor   *Processor
	broadcaster *events.Broadcaster
	locks       *queue.StoryLocks
	log         *slog.Logger
	ctx         context.Context
	cancel      context.CancelFunc
}

// New creates a new worker instance
func New(requestQueue *queue.RequestQueue, processor *Processor, redisClient *redis.Client, log *slog.Logger, workerID string) *Worker {
	ctx, cancel := context.WithCancel(context.Background())

	if workerID == "" {
		workerID = fmt.Sprintf("worker-%s", uuid.New().String()[:8])
	}

	return &Worker{
		id:          workerID,
		queue:       requestQueue,
		processor:   processor,
		broadcaster: events.NewBroadcaster(redisClient, log),
		locks:       queue.NewStoryLocks(redisClient, queue.DefaultLockTTL),
		log:         log.With("worker_id", workerID),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// ID returns the worker's lock owner id
func (w *Worker) ID() string {
	return w.id
}

// Start begins processing requests from the queue
func (w *Worker) Start() error {
	w.log.Info("Worker starting")

	for {
		select {
		case <-w.ctx.Done():
			w.log.Info("Worker shutting down")
			return nil
		default:
			if err := w.processNextRequest(); err != nil {
				w.log.Error("Error processing request", "error", err)
				time.Sleep(1 * time.Second)
			}
		}
	}
}

// Stop gracefully shuts down the worker
func (w *Worker) Stop() {
	w.log.Info("Worker stop requested")
	w.cancel()
}

// processNextRequest pulls the next request from the queue and processes it
func (w *Worker) processNextRequest() error {
	ctx, cancel := context.WithTimeout(w.ctx, workerTimeout)
	defer cancel()

	req, err := w.queue.BlockingDequeueRequest(ctx, workerTimeout)
	if err != nil {
		return fmt.Errorf("failed to dequeue request: %w", err)
	}
	if req == nil {
		return nil
	}

	w.log.Info("Received request from queue",
		"request_id", req.RequestID,
		"type", req.Type,
		"story_id", req.StoryID.String(),
	)

	locked, err := w.acquireStoryLock(req.StoryID)
	if err != nil {
		return err
	}
	if !locked {
		// Another worker or an API edit owns this story; put the request back
		w.log.Info("Story already locked, re-queueing request",
			"request_id", req.RequestID,
			"story_id", req.StoryID.String(),
		)
		if err := w.queue.EnqueueRequest(w.ctx, req); err != nil {
			return fmt.Errorf("failed to re-queue request: %w", err)
		}
		return nil
	}

	defer w.releaseStoryLock(req.StoryID)
	return w.processRequest(req)
}

// acquireStoryLock returns false if another worker, or an API edit,
// holds the story
func (w *Worker) acquireStoryLock(storyID uuid.UUID) (bool, error) {
	return w.locks.Acquire(w.ctx, storyID, w.id)
}

// releaseStoryLock deletes the lock only if this worker still owns it
func (w *Worker) releaseStoryLock(storyID uuid.UUID) {
	if err := w.locks.Release(context.Background(), storyID, w.id); err != nil {
		w.log.Error("Failed to release story lock", "error", err, "story_id", storyID.String())
	}
}

// processRequest runs one request and publishes its lifecycle events
func (w *Worker) processRequest(req *queuePkg.Request) error {
	start := time.Now()
	log := w.log.With("request_id", req.RequestID, "story_id", req.StoryID.String())

	if err := w.broadcaster.PublishRequestProcessing(w.ctx, req.StoryID, req.RequestID, string(req.Type), req.Message); err != nil {
		log.Error("Failed to publish processing event", "error", err)
	}

	sink := w.broadcaster.Sink(req.StoryID, req.RequestID)

	var (
		res *orchestrator.TurnResult
		err error
	)
	switch req.Type {
	case queuePkg.RequestTypeCreateStory:
		res, err = w.processor.ProcessCreate(w.ctx, req.StoryID, sink)
	case queuePkg.RequestTypeChat:
		res, err = w.processor.ProcessChat(w.ctx, req.StoryID, req.Message, sink)
	default:
		err = fmt.Errorf("unknown request type: %s", req.Type)
	}

	if err != nil {
		log.Error("Request failed", "type", req.Type, "error", err)
		if pubErr := w.broadcaster.PublishRequestFailed(w.ctx, req.StoryID, req.RequestID, err.Error()); pubErr != nil {
			log.Error("Failed to publish failure event", "error", pubErr)
		}
		return fmt.Errorf("failed to process %s request: %w", req.Type, err)
	}

	log.Info("Request processed successfully",
		"type", req.Type,
		"rounds", res.Rounds,
		"tool_calls", res.ToolCalls,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	result := map[string]any{
		"message":          res.Reply,
		"rounds":           res.Rounds,
		"tool_calls":       res.ToolCalls,
		"budget_exhausted": res.BudgetExhausted,
		"duration_ms":      time.Since(start).Milliseconds(),
	}
	if err := w.broadcaster.PublishRequestCompleted(w.ctx, req.StoryID, req.RequestID, result); err != nil {
		log.Error("Failed to publish completion event", "error", err)
	}
	return nil
}
