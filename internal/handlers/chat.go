package handlers

import (
	"log/slog"
	"net/http"

	"github.com/jwebster45206/gamemaster-agent/pkg/chat"
	"github.com/jwebster45206/gamemaster-agent/pkg/queue"
	"github.com/jwebster45206/gamemaster-agent/pkg/storage"
)

// ChatHandler queues player messages for the worker pool
type ChatHandler struct {
	storage   storage.Storage
	queue     Enqueuer
	publisher StatusPublisher
	logger    *slog.Logger
}

// NewChatHandler creates a new chat handler
func NewChatHandler(store storage.Storage, queue Enqueuer, publisher StatusPublisher, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{
		storage:   store,
		queue:     queue,
		publisher: publisher,
		logger:    logger,
	}
}

// ServeHTTP handles POST /v1/stories/{id}/chat
func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, h.logger, "POST")
		return
	}

	id, ok := storyID(w, r, h.logger)
	if !ok {
		return
	}

	h.logger.Info("Chat endpoint accessed",
		"story_id", id.String(),
		"remote_addr", r.RemoteAddr)

	var request chat.ChatRequest
	if err := decodeBody(w, r, &request); err != nil {
		h.logger.Warn("Invalid request body", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body. Expected JSON with 'message' field.")
		return
	}
	request.StoryID = id
	if err := request.Validate(); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := h.storage.LoadStory(r.Context(), id)
	if err != nil {
		writeStorageError(w, h.logger, err)
		return
	}
	if rec.Character == nil || !rec.Character.Created {
		writeError(w, h.logger, http.StatusConflict, "The story's character has not been created yet.")
		return
	}

	qr := queue.NewRequest(queue.RequestTypeChat, id, rec.Owner, request.Message)
	if err := h.queue.EnqueueRequest(r.Context(), qr); err != nil {
		h.logger.Error("Failed to enqueue chat request", "error", err, "story_id", id.String())
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to queue message.")
		return
	}
	if err := h.publisher.PublishRequestQueued(r.Context(), id, qr.RequestID, string(qr.Type)); err != nil {
		h.logger.Warn("Failed to publish queued status", "error", err, "request_id", qr.RequestID)
	}

	writeJSON(w, h.logger, http.StatusAccepted, chat.ChatResponse{
		StoryID:   id,
		RequestID: qr.RequestID,
		Message:   "queued",
	})
}
