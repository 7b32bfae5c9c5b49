package triage

import (
	"context"

	"github.com/divitize/divitize-zendesk-bot/internal/domain"
	"github.com/divitize/divitize-zendesk-bot/internal/store"
)

// Sink receives every event the engine emits. Errors are logged and never
// stop a pass.
type Sink interface {
	Publish(ctx context.Context, event domain.TriageEvent) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, event domain.TriageEvent) error

// Publish calls f.
func (f SinkFunc) Publish(ctx context.Context, event domain.TriageEvent) error {
	return f(ctx, event)
}

// JournalSink records events in the operator journal.
func JournalSink(j store.Journal) Sink {
	return SinkFunc(func(ctx context.Context, event domain.TriageEvent) error {
		return j.RecordEvent(ctx, &event)
	})
}
