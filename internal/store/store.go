// Package store persists the operator journal: what each pass did, for
// inspection after the fact. The engine never reads it back.
package store

import (
	"context"
	"time"

	"github.com/divitize/divitize-zendesk-bot/internal/domain"
)

// EventFilter narrows ListEvents. Zero values mean "any".
type EventFilter struct {
	TicketID int64
	Kind     domain.EventKind
	PassID   string
	Limit    int
}

// Journal defines the interface for recording and querying triage history.
type Journal interface {
	// RecordEvent appends an event. Events with an existing ID are ignored.
	RecordEvent(ctx context.Context, event *domain.TriageEvent) error

	// ListEvents returns events newest first.
	ListEvents(ctx context.Context, filter EventFilter) ([]domain.TriageEvent, error)

	// RecordPass stores a pass summary.
	RecordPass(ctx context.Context, report *domain.PassReport) error

	// ListPasses returns the most recent pass summaries, newest first.
	ListPasses(ctx context.Context, limit int) ([]domain.PassReport, error)

	// CleanupOlderThan removes events and passes older than age.
	CleanupOlderThan(ctx context.Context, age time.Duration) (int64, error)

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}

// DefaultListLimit applies when a filter has no limit.
const DefaultListLimit = 100

// MaxListLimit caps any requested limit.
const MaxListLimit = 1000

func clampLimit(n int) int {
	switch {
	case n <= 0:
		return DefaultListLimit
	case n > MaxListLimit:
		return MaxListLimit
	default:
		return n
	}
}
