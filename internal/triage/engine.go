// Package triage runs polling passes over recent tickets: tracking
// announcements first, then suggested-reply drafts.
package triage

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/divitize/divitize-zendesk-bot/internal/compose"
	"github.com/divitize/divitize-zendesk-bot/internal/domain"
	"github.com/divitize/divitize-zendesk-bot/internal/intent"
	"github.com/divitize/divitize-zendesk-bot/internal/signal"
	"github.com/divitize/divitize-zendesk-bot/internal/store"
	"github.com/divitize/divitize-zendesk-bot/internal/tracking"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// TicketSystem is the ticket-system collaborator.
type TicketSystem interface {
	ListRecentTickets(ctx context.Context, limit int) ([]domain.Ticket, error)
	GetTicket(ctx context.Context, id int64) (domain.Ticket, error)
	ListComments(ctx context.Context, ticketID int64) ([]domain.Comment, error)
	GetUserName(ctx context.Context, userID int64) (string, error)
	UpdateTicket(ctx context.Context, id int64, update domain.TicketUpdate) error
	SetTags(ctx context.Context, id int64, tags []string) error
}

// Config holds the engine's tags and switches.
type Config struct {
	TrackingFieldID    string
	ReplacementSentTag string
	DraftTag           string
	PageSize           int
	DryRun             bool
}

// Engine evaluates tickets. Passes are serialized; a pass started while
// another runs waits for it.
type Engine struct {
	tickets  TicketSystem
	composer *compose.Composer
	origins  *intent.OriginClassifier
	journal  store.Journal
	sinks    []Sink
	cfg      Config
	logger   *slog.Logger
	now      func() time.Time

	passMu sync.Mutex
}

// Options wires the engine's collaborators. Journal and Sinks are optional.
type Options struct {
	Tickets  TicketSystem
	Composer *compose.Composer
	Origins  *intent.OriginClassifier
	Journal  store.Journal
	Sinks    []Sink
	Config   Config
	Logger   *slog.Logger
}

// NewEngine creates an engine.
func NewEngine(opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Config.PageSize <= 0 {
		opts.Config.PageSize = 40
	}
	return &Engine{
		tickets:  opts.Tickets,
		composer: opts.Composer,
		origins:  opts.Origins,
		journal:  opts.Journal,
		sinks:    opts.Sinks,
		cfg:      opts.Config,
		logger:   logger,
		now:      time.Now,
	}
}

// RunPass runs one full pass and returns its report. The pass ignores
// cancellation of ctx so it always runs to completion.
func (e *Engine) RunPass(ctx context.Context) domain.PassReport {
	ctx = context.WithoutCancel(ctx)
	e.passMu.Lock()
	defer e.passMu.Unlock()

	report := domain.PassReport{ID: uuid.NewString(), StartedAt: e.now().UTC(), DryRun: e.cfg.DryRun}
	logger := e.logger.With("pass_id", report.ID)
	logger.Debug("Pass started")

	e.trackingPhase(ctx, &report, logger)
	e.draftPhase(ctx, &report, logger)

	report.Duration = e.now().Sub(report.StartedAt)
	logger.Info("Pass completed",
		"tickets", report.TicketsSeen,
		"tracking_sent", report.TrackingSent,
		"retro_tagged", report.RetroTagged,
		"drafts", report.DraftsCreated,
		"skipped", report.Skipped,
		"failures", report.Failures,
		"duration", report.Duration,
	)

	if e.journal != nil {
		if err := e.journal.RecordPass(ctx, &report); err != nil {
			logger.Warn("Failed to record pass", "error", err)
		}
	}
	return report
}

func (e *Engine) trackingPhase(ctx context.Context, report *domain.PassReport, logger *slog.Logger) {
	if e.cfg.TrackingFieldID == "" {
		return
	}
	list, err := e.tickets.ListRecentTickets(ctx, e.cfg.PageSize)
	if err != nil {
		logger.Error("Tracking scan failed to list tickets", "error", err)
		report.Failures++
		return
	}
	for _, t := range list {
		if err := e.processTracking(ctx, report, t.ID); err != nil {
			report.Failures++
			logger.Error("Tracking scan failed", "ticket_id", t.ID, "error", err)
			e.emit(ctx, domain.TriageEvent{PassID: report.ID, TicketID: t.ID, Kind: domain.EventTicketFailed, Detail: "tracking: " + err.Error()})
		}
	}
}

func (e *Engine) processTracking(ctx context.Context, report *domain.PassReport, id int64) error {
	ticket, err := e.tickets.GetTicket(ctx, id)
	if err != nil {
		return err
	}
	if ticket.Status == domain.StatusClosed {
		return nil
	}
	value := ticket.CustomFieldValue(e.cfg.TrackingFieldID)
	normalized := tracking.NormalizeValue(value)
	if normalized == "" || tracking.Guard(ticket.Tags).Settled(normalized) {
		return nil
	}

	comments, err := e.tickets.ListComments(ctx, id)
	if err != nil {
		return err
	}
	snap := domain.Snapshot{Ticket: ticket, Comments: comments}
	var lastPublic string
	if c := snap.LastPublicComment(); c != nil {
		lastPublic = c.Body
	}

	plan := tracking.Decide(tracking.Input{Tracking: value, Tags: ticket.Tags, LastPublicBody: lastPublic}, e.cfg.ReplacementSentTag)
	if plan.Noop() {
		return nil
	}

	update := domain.TicketUpdate{AddTags: plan.AddTags, RemoveTags: plan.RemoveTags, Status: plan.Status}
	kind := domain.EventTrackingRetroTag
	switch plan.Kind {
	case tracking.FirstAnnouncement:
		update.Comment, update.Public = e.composer.TrackingAnnouncement(plan.Tracking), true
		kind = domain.EventTrackingAnnounced
	case tracking.Correction:
		update.Comment, update.Public = e.composer.TrackingCorrection(plan.Tracking), true
		kind = domain.EventTrackingCorrected
	case tracking.GuardCleanup:
		kind = domain.EventTrackingGuardCleaned
	}

	if !e.cfg.DryRun {
		if err := e.tickets.UpdateTicket(ctx, id, update); err != nil {
			return fmt.Errorf("apply %s: %w", plan.Kind, err)
		}
	}
	switch {
	case plan.Public:
		report.TrackingSent++
	case plan.Kind == tracking.RetroTag:
		report.RetroTagged++
	}
	e.logger.Info("Tracking handled", "ticket_id", id, "action", plan.Kind.String(), "tracking", plan.Tracking, "dry_run", e.cfg.DryRun)
	e.emit(ctx, domain.TriageEvent{PassID: report.ID, TicketID: id, Kind: kind, Detail: plan.Tracking})
	return nil
}

func (e *Engine) draftPhase(ctx context.Context, report *domain.PassReport, logger *slog.Logger) {
	list, err := e.tickets.ListRecentTickets(ctx, e.cfg.PageSize)
	if err != nil {
		logger.Error("Draft scan failed to list tickets", "error", err)
		report.Failures++
		return
	}
	report.TicketsSeen = len(list)
	for _, t := range list {
		if err := e.processDraft(ctx, report, t); err != nil {
			report.Failures++
			logger.Error("Draft failed", "ticket_id", t.ID, "error", err)
			e.emit(ctx, domain.TriageEvent{PassID: report.ID, TicketID: t.ID, Kind: domain.EventTicketFailed, Detail: "draft: " + err.Error()})
		}
	}
}

func (e *Engine) processDraft(ctx context.Context, report *domain.PassReport, t domain.Ticket) error {
	if t.Status.IsTerminal() {
		report.Skipped++
		return nil
	}

	snap, err := e.loadSnapshot(ctx, t)
	if err != nil {
		return err
	}
	if len(snap.Comments) == 0 {
		report.Skipped++
		return nil
	}

	thread := snap.ThreadText()
	origin := e.origins.Classify(t.Via, t.Subject, thread)
	if err := e.mirrorOrigin(ctx, t, origin); err != nil {
		e.logger.Warn("Failed to mirror origin tag", "ticket_id", t.ID, "origin", string(origin), "error", err)
	}

	if reason := Gate(snap, e.cfg.DraftTag); reason != "" {
		e.logger.Debug("Draft skipped", "ticket_id", t.ID, "reason", reason)
		report.Skipped++
		return nil
	}

	last := snap.LastComment()
	signals := signal.Extract(signal.Input{
		Subject:         t.Subject,
		Thread:          thread,
		RequesterText:   snap.RequesterText(),
		Message:         last.Body,
		LastAttachments: last.Attachments,
		Comments:        snap.RequesterComments(),
	})
	in, rule := intent.Explain(intent.Input{Message: last.Body, Origin: origin, Signals: signals})
	draft := e.composer.Compose(ctx, compose.Request{
		Intent:        in,
		Origin:        origin,
		Signals:       signals,
		RequesterName: snap.RequesterName,
	})

	if !e.cfg.DryRun {
		update := domain.TicketUpdate{Comment: e.composer.Note(draft), Public: false}
		if e.cfg.DraftTag != "" {
			update.AddTags = []string{e.cfg.DraftTag}
		}
		if err := e.tickets.UpdateTicket(ctx, t.ID, update); err != nil {
			return fmt.Errorf("post draft: %w", err)
		}
	}
	report.DraftsCreated++
	e.logger.Info("Draft created", "ticket_id", t.ID, "intent", in.String(), "rule", rule, "origin", string(origin), "backend", draft.Backend, "dry_run", e.cfg.DryRun)
	e.emit(ctx, domain.TriageEvent{
		PassID:   report.ID,
		TicketID: t.ID,
		Kind:     domain.EventDraftCreated,
		Intent:   in.String(),
		Origin:   string(origin),
		Detail:   draft.Backend,
	})
	return nil
}

// loadSnapshot fetches the thread and the requester's name concurrently.
// A failed name lookup degrades to the generic salutation.
func (e *Engine) loadSnapshot(ctx context.Context, t domain.Ticket) (*domain.Snapshot, error) {
	snap := &domain.Snapshot{Ticket: t}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		comments, err := e.tickets.ListComments(gctx, t.ID)
		if err != nil {
			return fmt.Errorf("list comments: %w", err)
		}
		snap.Comments = comments
		return nil
	})
	g.Go(func() error {
		name, err := e.tickets.GetUserName(gctx, t.RequesterID)
		if err != nil {
			e.logger.Debug("Requester name unavailable", "ticket_id", t.ID, "error", err)
			return nil
		}
		snap.RequesterName = name
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snap, nil
}

// mirrorOrigin replaces stale origin tags with the current one.
func (e *Engine) mirrorOrigin(ctx context.Context, t domain.Ticket, origin intent.Origin) error {
	want := origin.Tag()
	tags := make([]string, 0, len(t.Tags)+1)
	changed := false
	for _, tag := range t.Tags {
		if tag != want && isOriginTag(tag) {
			changed = true
			continue
		}
		tags = append(tags, tag)
	}
	if !slices.Contains(tags, want) {
		tags = append(tags, want)
		changed = true
	}
	if !changed || e.cfg.DryRun {
		return nil
	}
	return e.tickets.SetTags(ctx, t.ID, tags)
}

func isOriginTag(tag string) bool {
	for _, o := range intent.Origins {
		if tag == o.Tag() {
			return true
		}
	}
	return false
}

func (e *Engine) emit(ctx context.Context, event domain.TriageEvent) {
	event.ID = uuid.NewString()
	event.DryRun = e.cfg.DryRun
	event.CreatedAt = e.now().UTC()
	for _, s := range e.sinks {
		if err := s.Publish(ctx, event); err != nil {
			e.logger.Warn("Event sink failed", "ticket_id", event.TicketID, "kind", string(event.Kind), "error", err)
		}
	}
}
