package api

import (
	"context"
	"net/http"
	"time"

	"github.com/divitize/divitize-zendesk-bot/internal/store"
	"github.com/go-chi/chi/v5"
)

// StatsFunc reports component counters for the health payload.
type StatsFunc func() map[string]any

// HealthHandler serves the detailed health check.
type HealthHandler struct {
	journal store.Journal
	started time.Time
	stats   StatsFunc
}

// NewHealthHandler creates a health handler. journal and stats may be nil.
func NewHealthHandler(journal store.Journal, stats StatsFunc) *HealthHandler {
	return &HealthHandler{journal: journal, started: time.Now(), stats: stats}
}

// RegisterHealth registers the health route.
func (h *HealthHandler) RegisterHealth(r chi.Router) {
	r.Get("/healthz", h.Health)
}

// Health reports journal connectivity and uptime.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	body := map[string]interface{}{
		"status":         "ok",
		"uptime_seconds": int64(time.Since(h.started).Seconds()),
	}
	status := http.StatusOK

	if h.journal != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.journal.Ping(ctx); err != nil {
			body["status"] = "degraded"
			body["journal"] = err.Error()
			status = http.StatusServiceUnavailable
		} else {
			body["journal"] = "ok"
		}
	} else {
		body["journal"] = "disabled"
	}

	if h.stats != nil {
		for k, v := range h.stats() {
			body[k] = v
		}
	}
	JSON(w, status, body)
}
