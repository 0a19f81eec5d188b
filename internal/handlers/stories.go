package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/jwebster45206/gamemaster-agent/pkg/queue"
	"github.com/jwebster45206/gamemaster-agent/pkg/storage"
	"github.com/jwebster45206/gamemaster-agent/pkg/story"
)

// MaxDescriptionLength caps the world and character descriptions
const MaxDescriptionLength = 4000

// CreateStoryRequest starts a new story
type CreateStoryRequest struct {
	Owner                string `json:"owner"`
	Title                string `json:"title,omitempty"`
	WorldDescription     string `json:"world_description"`
	CharacterDescription string `json:"character_description"`
}

func (r *CreateStoryRequest) Validate() string {
	switch {
	case strings.TrimSpace(r.Owner) == "":
		return "owner is required."
	case strings.TrimSpace(r.CharacterDescription) == "":
		return "character_description is required."
	case len(r.WorldDescription) > MaxDescriptionLength || len(r.CharacterDescription) > MaxDescriptionLength:
		return "Descriptions are limited to 4000 characters."
	}
	return ""
}

// CreateStoryResponse acknowledges a queued story creation
type CreateStoryResponse struct {
	StoryID   uuid.UUID `json:"story_id"`
	RequestID string    `json:"request_id"`
}

// StoriesHandler serves the story collection and single stories
type StoriesHandler struct {
	storage   storage.Storage
	queue     Enqueuer
	publisher StatusPublisher
	logger    *slog.Logger
}

func NewStoriesHandler(store storage.Storage, queue Enqueuer, publisher StatusPublisher, logger *slog.Logger) *StoriesHandler {
	return &StoriesHandler{
		storage:   store,
		queue:     queue,
		publisher: publisher,
		logger:    logger,
	}
}

// ServeHTTP routes:
// POST   /v1/stories          - create a story and queue character creation
// GET    /v1/stories?owner=   - list an owner's stories
// GET    /v1/stories/{id}     - full story record
// DELETE /v1/stories/{id}     - delete a story
func (h *StoriesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.PathValue("id") == "" {
		switch r.Method {
		case http.MethodPost:
			h.create(w, r)
		case http.MethodGet:
			h.list(w, r)
		default:
			methodNotAllowed(w, r, h.logger, "GET, POST")
		}
		return
	}

	id, ok := storyID(w, r, h.logger)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		h.get(w, r, id)
	case http.MethodDelete:
		h.delete(w, r, id)
	default:
		methodNotAllowed(w, r, h.logger, "GET, DELETE")
	}
}

func (h *StoriesHandler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateStoryRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.logger.Warn("Invalid create story body", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body. Expected JSON with 'owner' and 'character_description'.")
		return
	}
	if msg := req.Validate(); msg != "" {
		writeError(w, h.logger, http.StatusBadRequest, msg)
		return
	}

	rec := story.NewRecord(strings.TrimSpace(req.Owner), req.Title, req.WorldDescription, req.CharacterDescription)
	if err := h.storage.SaveStory(r.Context(), rec); err != nil {
		writeStorageError(w, h.logger, err)
		return
	}

	qr := queue.NewRequest(queue.RequestTypeCreateStory, rec.ID, rec.Owner, "")
	if err := h.queue.EnqueueRequest(r.Context(), qr); err != nil {
		h.logger.Error("Failed to enqueue create request", "error", err, "story_id", rec.ID.String())
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to queue story creation.")
		return
	}
	if err := h.publisher.PublishRequestQueued(r.Context(), rec.ID, qr.RequestID, string(qr.Type)); err != nil {
		h.logger.Warn("Failed to publish queued status", "error", err, "request_id", qr.RequestID)
	}

	h.logger.Info("Story created",
		"story_id", rec.ID.String(),
		"owner", rec.Owner,
		"request_id", qr.RequestID)
	writeJSON(w, h.logger, http.StatusAccepted, CreateStoryResponse{StoryID: rec.ID, RequestID: qr.RequestID})
}

func (h *StoriesHandler) list(w http.ResponseWriter, r *http.Request) {
	owner := strings.TrimSpace(r.URL.Query().Get("owner"))
	if owner == "" {
		writeError(w, h.logger, http.StatusBadRequest, "owner query parameter is required.")
		return
	}
	summaries, err := h.storage.ListStories(r.Context(), owner)
	if err != nil {
		writeStorageError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, summaries)
}

func (h *StoriesHandler) get(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	rec, err := h.storage.LoadStory(r.Context(), id)
	if err != nil {
		writeStorageError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, rec)
}

func (h *StoriesHandler) delete(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	if err := h.storage.DeleteStory(r.Context(), id); err != nil {
		writeStorageError(w, h.logger, err)
		return
	}
	h.logger.Info("Story deleted", "story_id", id.String())
	w.WriteHeader(http.StatusNoContent)
}
