package handlers

import (
	"log/slog"
	"net/http"

	"github.com/jwebster45206/gamemaster-agent/pkg/storage"
)

// Deps is everything the API routes need
type Deps struct {
	Storage    storage.Storage
	Queue      Enqueuer
	Publisher  StatusPublisher
	Subscriber Subscriber
	Locks      StoryLocker
	Health     map[string]Pinger
	Logger     *slog.Logger
}

// NewRouter registers every API route on a new mux
func NewRouter(d Deps) *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("/health", NewHealthHandler(d.Health, d.Logger))

	stories := NewStoriesHandler(d.Storage, d.Queue, d.Publisher, d.Logger)
	mux.Handle("/v1/stories", stories)
	mux.Handle("/v1/stories/{id}", stories)
	mux.Handle("/v1/stories/{id}/chat", NewChatHandler(d.Storage, d.Queue, d.Publisher, d.Logger))
	mux.Handle("/v1/stories/{id}/character", NewCharacterHandler(d.Storage, d.Locks, d.Logger))
	mux.Handle("/v1/stories/{id}/events", NewEventsHandler(d.Subscriber, d.Logger))
	mux.Handle("/v1/stories/{id}/export", NewExportHandler(d.Storage, d.Logger))

	return mux
}
