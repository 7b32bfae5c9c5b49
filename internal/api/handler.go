// Package api provides the operator HTTP endpoints.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/divitize/divitize-zendesk-bot/internal/domain"
	"github.com/divitize/divitize-zendesk-bot/internal/store"
	"github.com/divitize/divitize-zendesk-bot/internal/triage"
	"github.com/go-chi/chi/v5"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 64 << 10

// Engine is the part of the triage engine the API drives.
type Engine interface {
	RunPass(ctx context.Context) domain.PassReport
	Preview(ctx context.Context, req triage.PreviewRequest) triage.PreviewResult
}

// Handler provides common handler utilities.
type Handler struct {
	engine  Engine
	journal store.Journal
	dryRun  bool
}

// NewHandler creates a new Handler. journal may be nil when the journal is
// disabled.
func NewHandler(engine Engine, journal store.Journal, dryRun bool) *Handler {
	return &Handler{engine: engine, journal: journal, dryRun: dryRun}
}

// RegisterRoutes registers the operator routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/api/events", h.ListEvents)
	r.Get("/api/passes", h.ListPasses)
	r.Post("/api/preview", h.Preview)
	r.Post("/api/pass", h.TriggerPass)
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
