package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/jwebster45206/gamemaster-agent/pkg/character"
	"github.com/jwebster45206/gamemaster-agent/pkg/storage"
)

// UpdateCharacterRequest edits the narrative fields of a character. Empty
// fields are left unchanged.
type UpdateCharacterRequest struct {
	Name string `json:"name,omitempty"`
	Lore string `json:"lore,omitempty"`
}

// CharacterHandler reads and edits a story's character
type CharacterHandler struct {
	storage storage.Storage
	locks   StoryLocker
	logger  *slog.Logger
}

func NewCharacterHandler(store storage.Storage, locks StoryLocker, logger *slog.Logger) *CharacterHandler {
	return &CharacterHandler{storage: store, locks: locks, logger: logger}
}

// ServeHTTP handles GET and PUT /v1/stories/{id}/character.
// A PUT holds the story lock from load to save and is refused with 409
// while a turn is being processed.
func (h *CharacterHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, ok := storyID(w, r, h.logger)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		h.get(w, r, id)
	case http.MethodPut:
		h.update(w, r, id)
	default:
		methodNotAllowed(w, r, h.logger, "GET, PUT")
	}
}

func (h *CharacterHandler) get(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	rec, err := h.storage.LoadStory(r.Context(), id)
	if err != nil {
		writeStorageError(w, h.logger, err)
		return
	}
	if rec.Character == nil {
		writeError(w, h.logger, http.StatusConflict, "The story's character has not been created yet.")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, rec.Character)
}

func (h *CharacterHandler) update(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	var req UpdateCharacterRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.logger.Warn("Invalid character update body", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body. Expected JSON with 'name' and/or 'lore'.")
		return
	}
	if strings.TrimSpace(req.Name) == "" && strings.TrimSpace(req.Lore) == "" {
		writeError(w, h.logger, http.StatusBadRequest, "Nothing to update. Provide 'name' or 'lore'.")
		return
	}

	owner := "api-" + uuid.NewString()
	locked, err := h.locks.Acquire(r.Context(), id, owner)
	if err != nil {
		h.logger.Error("Failed to lock story", "error", err, "story_id", id.String())
		writeError(w, h.logger, http.StatusInternalServerError, "Internal server error.")
		return
	}
	if !locked {
		writeError(w, h.logger, http.StatusConflict, "The story is busy with a turn. Try again shortly.")
		return
	}
	defer func() {
		if err := h.locks.Release(context.WithoutCancel(r.Context()), id, owner); err != nil {
			h.logger.Error("Failed to unlock story", "error", err, "story_id", id.String())
		}
	}()

	rec, err := h.storage.LoadStory(r.Context(), id)
	if err != nil {
		writeStorageError(w, h.logger, err)
		return
	}
	if rec.Character == nil {
		writeError(w, h.logger, http.StatusConflict, "The story's character has not been created yet.")
		return
	}

	c := character.FromSnapshot(*rec.Character)
	c.Rename(req.Name)
	c.SetLore(req.Lore)
	snap := c.Snapshot()
	rec.Character = &snap

	if err := h.storage.SaveStory(r.Context(), rec); err != nil {
		writeStorageError(w, h.logger, err)
		return
	}
	h.logger.Info("Character updated", "story_id", id.String(), "name", snap.Name)
	writeJSON(w, h.logger, http.StatusOK, rec.Character)
}
