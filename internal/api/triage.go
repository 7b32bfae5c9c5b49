package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/divitize/divitize-zendesk-bot/internal/domain"
	"github.com/divitize/divitize-zendesk-bot/internal/store"
	"github.com/divitize/divitize-zendesk-bot/internal/triage"
)

// passLock prevents concurrent operator-triggered passes.
var passLock sync.Mutex

// ListEvents returns journaled events, newest first.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	if h.journal == nil {
		Error(w, http.StatusServiceUnavailable, "journal_disabled")
		return
	}

	q := r.URL.Query()
	filter := store.EventFilter{
		Kind:   domain.EventKind(q.Get("kind")),
		PassID: q.Get("pass_id"),
	}
	var err error
	if v := q.Get("ticket_id"); v != "" {
		if filter.TicketID, err = strconv.ParseInt(v, 10, 64); err != nil || filter.TicketID <= 0 {
			Error(w, http.StatusBadRequest, "invalid ticket_id")
			return
		}
	}
	if filter.Limit, err = parseLimit(q.Get("limit")); err != nil {
		Error(w, http.StatusBadRequest, "invalid limit")
		return
	}

	events, err := h.journal.ListEvents(r.Context(), filter)
	if err != nil {
		slog.Error("Failed to list events", "error", err)
		Error(w, http.StatusInternalServerError, "failed to list events")
		return
	}
	if events == nil {
		events = []domain.TriageEvent{}
	}
	JSON(w, http.StatusOK, map[string]interface{}{"events": events})
}

// ListPasses returns recent pass reports, newest first.
func (h *Handler) ListPasses(w http.ResponseWriter, r *http.Request) {
	if h.journal == nil {
		Error(w, http.StatusServiceUnavailable, "journal_disabled")
		return
	}
	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		Error(w, http.StatusBadRequest, "invalid limit")
		return
	}
	passes, err := h.journal.ListPasses(r.Context(), limit)
	if err != nil {
		slog.Error("Failed to list passes", "error", err)
		Error(w, http.StatusInternalServerError, "failed to list passes")
		return
	}
	if passes == nil {
		passes = []domain.PassReport{}
	}
	JSON(w, http.StatusOK, map[string]interface{}{"passes": passes})
}

// Preview classifies and drafts a reply for a message without touching any ticket.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	var req triage.PreviewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		Error(w, http.StatusBadRequest, "message is required")
		return
	}
	JSON(w, http.StatusOK, h.engine.Preview(r.Context(), req))
}

// TriggerPass runs a pass synchronously and returns its report.
func (h *Handler) TriggerPass(w http.ResponseWriter, r *http.Request) {
	if !passLock.TryLock() {
		slog.Warn("Pass already in progress")
		Error(w, http.StatusConflict, "pass_in_progress")
		return
	}
	defer passLock.Unlock()

	slog.Info("Pass triggered by operator", "ip", r.RemoteAddr, "dry_run", h.dryRun)
	report := h.engine.RunPass(context.WithoutCancel(r.Context()))
	JSON(w, http.StatusOK, report)
}

func parseLimit(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, strconv.ErrSyntax
	}
	return n, nil
}
