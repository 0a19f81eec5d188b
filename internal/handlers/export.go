package handlers

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/jwebster45206/gamemaster-agent/pkg/export"
	"github.com/jwebster45206/gamemaster-agent/pkg/storage"
)

// ExportHandler renders a story as a PDF download
type ExportHandler struct {
	storage storage.Storage
	logger  *slog.Logger
}

func NewExportHandler(store storage.Storage, logger *slog.Logger) *ExportHandler {
	return &ExportHandler{storage: store, logger: logger}
}

// ServeHTTP handles GET /v1/stories/{id}/export
func (h *ExportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, h.logger, "GET")
		return
	}
	id, ok := storyID(w, r, h.logger)
	if !ok {
		return
	}

	rec, err := h.storage.LoadStory(r.Context(), id)
	if err != nil {
		writeStorageError(w, h.logger, err)
		return
	}

	var buf bytes.Buffer
	if err := export.PDF(&buf, rec); err != nil {
		h.logger.Error("Failed to render export", "error", err, "story_id", id.String())
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to render story.")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="story-%s.pdf"`, id.String()))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Error("Failed to write export", "error", err, "story_id", id.String())
	}
}
