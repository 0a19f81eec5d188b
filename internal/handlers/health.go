package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

type HealthResponse struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Service    string            `json:"service"`
	Components map[string]string `json:"components"`
}

// Pinger is any dependency with a liveness check
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

type HealthHandler struct {
	components map[string]Pinger
	logger     *slog.Logger
}

// NewHealthHandler checks each named component on every request
func NewHealthHandler(components map[string]Pinger, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		components: components,
		logger:     logger,
	}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.logger.Debug("Health check requested",
		"method", r.Method,
		"path", r.URL.Path,
		"remote_addr", r.RemoteAddr)

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	components := make(map[string]string, len(h.components))
	overallStatus := "healthy"
	for name, c := range h.components {
		if err := c.Ping(ctx); err != nil {
			h.logger.Warn("Health check failed", "component", name, "error", err)
			components[name] = "unhealthy"
			overallStatus = "degraded"
			continue
		}
		components[name] = "healthy"
	}

	statusCode := http.StatusOK
	if overallStatus != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}
	writeJSON(w, h.logger, statusCode, HealthResponse{
		Status:     overallStatus,
		Timestamp:  time.Now(),
		Service:    "gamemaster-agent",
		Components: components,
	})
}
