package domain

import "time"

// EventKind names an action the engine took (or would have taken) on a ticket.
type EventKind string

// Event kinds recorded by the engine.
const (
	EventTrackingAnnounced    EventKind = "tracking_announced"
	EventTrackingCorrected    EventKind = "tracking_corrected"
	EventTrackingRetroTag     EventKind = "tracking_retro_tagged"
	EventTrackingGuardCleaned EventKind = "tracking_guard_cleaned"
	EventDraftCreated         EventKind = "draft_created"
	EventTicketFailed         EventKind = "ticket_failed"
)

// TriageEvent is a record of one action taken during a pass. Events are
// written for operators and never read back by the engine.
type TriageEvent struct {
	ID        string    `json:"id"`
	PassID    string    `json:"pass_id"`
	TicketID  int64     `json:"ticket_id"`
	Kind      EventKind `json:"kind"`
	Intent    string    `json:"intent,omitempty"`
	Origin    string    `json:"origin,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	DryRun    bool      `json:"dry_run"`
	CreatedAt time.Time `json:"created_at"`
}

// PassReport summarizes one polling pass.
type PassReport struct {
	ID            string        `json:"id"`
	StartedAt     time.Time     `json:"started_at"`
	Duration      time.Duration `json:"duration_ns"`
	TicketsSeen   int           `json:"tickets_seen"`
	TrackingSent  int           `json:"tracking_sent"`
	RetroTagged   int           `json:"retro_tagged"`
	DraftsCreated int           `json:"drafts_created"`
	Skipped       int           `json:"skipped"`
	Failures      int           `json:"failures"`
	DryRun        bool          `json:"dry_run"`
}
