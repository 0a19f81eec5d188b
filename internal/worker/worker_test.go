package worker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/gamemaster-agent/internal/services"
	"github.com/jwebster45206/gamemaster-agent/internal/services/events"
	"github.com/jwebster45206/gamemaster-agent/internal/services/queue"
	pkgevents "github.com/jwebster45206/gamemaster-agent/pkg/events"
	queuePkg "github.com/jwebster45206/gamemaster-agent/pkg/queue"
	"github.com/jwebster45206/gamemaster-agent/pkg/storage"
)

type workerFixture struct {
	worker *Worker
	queue  *queue.RequestQueue
	store  *storage.MockStorage
	llm    *services.MockLLMAPI
	mr     *miniredis.Miniredis
	client *queue.Client
}

func setupWorker(t *testing.T) *workerFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := queue.NewClient("redis://"+mr.Addr(), testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	store := storage.NewMockStorage()
	llm := services.NewMockLLMAPI()
	rq := queue.NewRequestQueue(client)
	w := New(rq, NewProcessor(store, newTestOrchestrator(llm), testLogger()), client.GetRedisClient(), testLogger(), "worker-test")
	t.Cleanup(w.Stop)

	return &workerFixture{worker: w, queue: rq, store: store, llm: llm, mr: mr, client: client}
}

func collectEvents(t *testing.T, f *workerFixture, req *queuePkg.Request) []pkgevents.Event {
	t.Helper()
	ctx := context.Background()
	b := events.NewBroadcaster(f.client.GetRedisClient(), testLogger())
	sub := b.Subscribe(ctx, req.StoryID)
	defer func() { _ = sub.Close() }()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)
	ch := sub.Channel()

	require.NoError(t, f.queue.EnqueueRequest(ctx, req))
	require.NoError(t, f.worker.processNextRequest())

	var out []pkgevents.Event
	for {
		select {
		case msg := <-ch:
			var e pkgevents.Event
			require.NoError(t, json.Unmarshal([]byte(msg.Payload), &e))
			out = append(out, e)
			if e.Type == pkgevents.KindRequestCompleted || e.Type == pkgevents.KindRequestFailed {
				return out
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out after %d events", len(out))
		}
	}
}

func kinds(evts []pkgevents.Event) []pkgevents.Kind {
	out := make([]pkgevents.Kind, len(evts))
	for i, e := range evts {
		out[i] = e.Type
	}
	return out
}

func TestWorker_ProcessesChatRequest(t *testing.T) {
	f := setupWorker(t)
	rec := createdRecord(t)
	require.NoError(t, f.store.SaveStory(context.Background(), rec))
	f.llm.Script(testModel, services.StreamChunk{Content: "The fog lifts."})

	req := queuePkg.NewRequest(queuePkg.RequestTypeChat, rec.ID, rec.Owner, "I wait.")
	evts := collectEvents(t, f, req)

	assert.Equal(t, []pkgevents.Kind{
		pkgevents.KindRequestProcessing,
		pkgevents.KindUserEcho,
		pkgevents.KindPartialContent,
		pkgevents.KindComplete,
		pkgevents.KindCharacterSnapshot,
		pkgevents.KindRequestCompleted,
	}, kinds(evts))
	for _, e := range evts {
		assert.Equal(t, req.RequestID, e.RequestID)
		assert.Equal(t, rec.ID.String(), e.StoryID)
	}
	assert.Equal(t, "The fog lifts.", evts[len(evts)-1].Data["result"].(map[string]any)["message"])

	// lock released
	assert.False(t, f.mr.Exists(queue.StoryLockKey(rec.ID)))
}

func TestWorker_PublishesFailure(t *testing.T) {
	f := setupWorker(t)
	rec := createdRecord(t)

	req := queuePkg.NewRequest(queuePkg.RequestTypeChat, rec.ID, rec.Owner, "hello")
	ctx := context.Background()
	b := events.NewBroadcaster(f.client.GetRedisClient(), testLogger())
	sub := b.Subscribe(ctx, rec.ID)
	defer func() { _ = sub.Close() }()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, f.queue.EnqueueRequest(ctx, req))
	err = f.worker.processNextRequest()
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrStoryNotFound)

	var failed pkgevents.Event
	for failed.Type != pkgevents.KindRequestFailed {
		select {
		case msg := <-sub.Channel():
			require.NoError(t, json.Unmarshal([]byte(msg.Payload), &failed))
		case <-time.After(2 * time.Second):
			t.Fatal("no failure event")
		}
	}
	assert.Contains(t, failed.Data["error"], "story not found")
}

func TestWorker_RequeuesLockedStory(t *testing.T) {
	f := setupWorker(t)
	rec := createdRecord(t)
	require.NoError(t, f.store.SaveStory(context.Background(), rec))

	require.NoError(t, f.mr.Set(queue.StoryLockKey(rec.ID), "other-worker"))

	ctx := context.Background()
	req := queuePkg.NewRequest(queuePkg.RequestTypeChat, rec.ID, rec.Owner, "hello")
	require.NoError(t, f.queue.EnqueueRequest(ctx, req))
	require.NoError(t, f.worker.processNextRequest())

	depth, err := f.queue.RequestQueueDepth(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, depth)
	assert.Empty(t, f.llm.CallsFor(testModel))

	// a lock owned by someone else survives release
	f.worker.releaseStoryLock(rec.ID)
	owner, err := f.mr.Get(queue.StoryLockKey(rec.ID))
	require.NoError(t, err)
	assert.Equal(t, "other-worker", owner)
}

func TestWorker_EmptyQueue(t *testing.T) {
	f := setupWorker(t)
	f.worker.Stop()

	// a stopped worker returns immediately from Start
	assert.NoError(t, f.worker.Start())
}
