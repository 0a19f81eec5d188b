package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/jwebster45206/gamemaster-agent/pkg/queue"
	"github.com/jwebster45206/gamemaster-agent/pkg/storage"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// Enqueuer accepts work for the worker pool
type Enqueuer interface {
	EnqueueRequest(ctx context.Context, req *queue.Request) error
}

// StoryLocker guards a story record against concurrent writers. Workers
// hold the same lock for the length of a turn.
type StoryLocker interface {
	Acquire(ctx context.Context, storyID uuid.UUID, owner string) (bool, error)
	Release(ctx context.Context, storyID uuid.UUID, owner string) error
}

// StatusPublisher announces accepted requests to event subscribers
type StatusPublisher interface {
	PublishRequestQueued(ctx context.Context, storyID uuid.UUID, requestID string, requestType string) error
}

// errBadRequest marks client errors that map to 400
var errBadRequest = errors.New("bad request")

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", "error", err, "status", status)
	}
}

func writeError(w http.ResponseWriter, logger *slog.Logger, status int, msg string) {
	writeJSON(w, logger, status, ErrorResponse{Error: msg})
}

// writeStorageError maps a storage failure to a response
func writeStorageError(w http.ResponseWriter, logger *slog.Logger, err error) {
	if errors.Is(err, storage.ErrStoryNotFound) {
		writeError(w, logger, http.StatusNotFound, "Story not found.")
		return
	}
	logger.Error("Storage operation failed", "error", err)
	writeError(w, logger, http.StatusInternalServerError, "Internal server error.")
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, logger *slog.Logger, allowed string) {
	logger.Warn("Method not allowed",
		"method", r.Method,
		"path", r.URL.Path)
	w.Header().Set("Allow", allowed)
	writeError(w, logger, http.StatusMethodNotAllowed, "Method not allowed. Supported: "+allowed+".")
}

// storyID reads the {id} path segment
func storyID(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (uuid.UUID, bool) {
	raw := r.PathValue("id")
	id, err := uuid.Parse(raw)
	if err != nil {
		logger.Warn("Invalid story ID", "id", raw, "error", err)
		writeError(w, logger, http.StatusBadRequest, "Invalid story ID format.")
		return uuid.Nil, false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Join(errBadRequest, err)
	}
	return nil
}
