package triage

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/divitize/divitize-zendesk-bot/internal/compose"
	"github.com/divitize/divitize-zendesk-bot/internal/domain"
	"github.com/divitize/divitize-zendesk-bot/internal/intent"
	"github.com/divitize/divitize-zendesk-bot/internal/store"
)

const (
	trackingField = "360001"
	sentTag       = "replacement_sent"
	notePrefix    = "[bot draft]"
)

type recordedUpdate struct {
	id     int64
	update domain.TicketUpdate
}

// fakeTickets is an in-memory ticket system that applies updates.
type fakeTickets struct {
	mu          sync.Mutex
	tickets     map[int64]*domain.Ticket
	comments    map[int64][]domain.Comment
	names       map[int64]string
	failList    error
	failComment map[int64]error
	updates     []recordedUpdate
	setTags     map[int64]int
}

func newFakeTickets() *fakeTickets {
	return &fakeTickets{
		tickets:     make(map[int64]*domain.Ticket),
		comments:    make(map[int64][]domain.Comment),
		names:       make(map[int64]string),
		failComment: make(map[int64]error),
		setTags:     make(map[int64]int),
	}
}

func (f *fakeTickets) add(t domain.Ticket, comments ...domain.Comment) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tickets[t.ID] = &t
	f.comments[t.ID] = comments
}

func (f *fakeTickets) ListRecentTickets(_ context.Context, limit int) ([]domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failList != nil {
		return nil, f.failList
	}
	ids := make([]int64, 0, len(f.tickets))
	for id := range f.tickets {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	out := make([]domain.Ticket, 0, len(ids))
	for _, id := range ids {
		if len(out) == limit {
			break
		}
		t := *f.tickets[id]
		t.Tags = slices.Clone(t.Tags)
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeTickets) GetTicket(_ context.Context, id int64) (domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tickets[id]
	if !ok {
		return domain.Ticket{}, errors.New("not found")
	}
	out := *t
	out.Tags = slices.Clone(t.Tags)
	return out, nil
}

func (f *fakeTickets) ListComments(_ context.Context, id int64) ([]domain.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failComment[id]; err != nil {
		return nil, err
	}
	return slices.Clone(f.comments[id]), nil
}

func (f *fakeTickets) GetUserName(_ context.Context, id int64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name, ok := f.names[id]
	if !ok {
		return "", errors.New("no such user")
	}
	return name, nil
}

func (f *fakeTickets) UpdateTicket(_ context.Context, id int64, u domain.TicketUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tickets[id]
	if !ok {
		return errors.New("not found")
	}
	f.updates = append(f.updates, recordedUpdate{id: id, update: u})
	if u.Comment != "" {
		f.comments[id] = append(f.comments[id], domain.Comment{AuthorID: agentID, Public: u.Public, Body: u.Comment})
	}
	tags := make([]string, 0, len(t.Tags)+len(u.AddTags))
	for _, tag := range t.Tags {
		if !slices.Contains(u.RemoveTags, tag) {
			tags = append(tags, tag)
		}
	}
	for _, tag := range u.AddTags {
		if !slices.Contains(tags, tag) {
			tags = append(tags, tag)
		}
	}
	t.Tags = tags
	if u.Status != "" {
		t.Status = u.Status
	}
	return nil
}

func (f *fakeTickets) SetTags(_ context.Context, id int64, tags []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tickets[id]
	if !ok {
		return errors.New("not found")
	}
	t.Tags = slices.Clone(tags)
	f.setTags[id]++
	return nil
}

func (f *fakeTickets) updatesFor(id int64) []domain.TicketUpdate {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.TicketUpdate
	for _, u := range f.updates {
		if u.id == id {
			out = append(out, u.update)
		}
	}
	return out
}

func (f *fakeTickets) ticket(id int64) domain.Ticket {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.tickets[id]
}

type eventRecorder struct {
	mu     sync.Mutex
	events []domain.TriageEvent
}

func (r *eventRecorder) Publish(_ context.Context, e domain.TriageEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *eventRecorder) kinds() []domain.EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.EventKind, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Kind)
	}
	return out
}

func newTestEngine(t *testing.T, fake *fakeTickets, dryRun bool, sinks ...Sink) *Engine {
	t.Helper()
	return NewEngine(Options{
		Tickets: fake,
		Composer: compose.New(compose.Config{
			Brand:               "Divitize",
			Persona:             "Noe",
			DraftPrefix:         notePrefix,
			CarrierLinkTemplate: "https://track.example/%s",
		}, nil, nil),
		Origins: intent.NewOriginClassifier(intent.OriginRules{
			StorefrontSources: []string{"web_form"},
			StorefrontPhrase:  "sent from the divitize contact form",
			MarketplaceTokens: []string{"amazon"},
		}),
		Sinks: sinks,
		Config: Config{
			TrackingFieldID:    trackingField,
			ReplacementSentTag: sentTag,
			DraftTag:           draftTag,
			PageSize:           50,
			DryRun:             dryRun,
		},
	})
}

func trackingTicket(id int64, value string, tags ...string) domain.Ticket {
	return domain.Ticket{
		ID:           id,
		Status:       domain.StatusPending,
		RequesterID:  requester,
		Subject:      "Replacement insert",
		Via:          "email",
		Tags:         tags,
		CustomFields: []domain.CustomField{{ID: trackingField, Value: value}},
	}
}

func TestRunPassAnnouncesTrackingOnce(t *testing.T) {
	fake := newFakeTickets()
	fake.add(trackingTicket(1, "UK123456789"),
		pub(requester, "My insert is too big"),
		pub(agentID, "We are sending a smaller one"),
	)
	rec := &eventRecorder{}
	e := newTestEngine(t, fake, false, rec)

	report := e.RunPass(context.Background())
	if report.TrackingSent != 1 {
		t.Fatalf("TrackingSent = %d, want 1", report.TrackingSent)
	}

	updates := fake.updatesFor(1)
	if len(updates) != 1 {
		t.Fatalf("updates = %d, want 1", len(updates))
	}
	u := updates[0]
	if !u.Public || !strings.Contains(u.Comment, "UK123456789") || !strings.Contains(u.Comment, "https://track.example/UK123456789") {
		t.Errorf("announcement = %+v", u)
	}
	got := fake.ticket(1)
	if got.Status != domain.StatusSolved {
		t.Errorf("status = %q, want solved", got.Status)
	}
	for _, tag := range []string{sentTag, "tracking_sent_uk123456789"} {
		if !slices.Contains(got.Tags, tag) {
			t.Errorf("tags %v missing %q", got.Tags, tag)
		}
	}

	second := e.RunPass(context.Background())
	if second.TrackingSent != 0 || second.RetroTagged != 0 {
		t.Errorf("second pass = %+v, want no tracking actions", second)
	}
	if n := len(fake.updatesFor(1)); n != 1 {
		t.Errorf("updates after second pass = %d, want 1", n)
	}
	if !slices.Contains(rec.kinds(), domain.EventTrackingAnnounced) {
		t.Errorf("events = %v, want tracking_announced", rec.kinds())
	}
}

func TestRunPassCorrectsChangedTracking(t *testing.T) {
	fake := newFakeTickets()
	fake.add(trackingTicket(1, "NEW-222", sentTag, "tracking_sent_old_111"),
		pub(agentID, "Here is the tracking number: OLD-111"),
	)
	e := newTestEngine(t, fake, false)

	report := e.RunPass(context.Background())
	if report.TrackingSent != 1 {
		t.Fatalf("TrackingSent = %d, want 1", report.TrackingSent)
	}
	u := fake.updatesFor(1)[0]
	if !strings.Contains(u.Comment, "disregard") || !strings.Contains(u.Comment, "NEW-222") {
		t.Errorf("correction comment = %q", u.Comment)
	}
	tags := fake.ticket(1).Tags
	if slices.Contains(tags, "tracking_sent_old_111") || !slices.Contains(tags, "tracking_sent_new_222") {
		t.Errorf("tags = %v", tags)
	}
}

func TestRunPassRetroTagsWithoutPosting(t *testing.T) {
	fake := newFakeTickets()
	fake.add(trackingTicket(1, "UK123456789"),
		pub(agentID, "Your tracking number is uk123456789."),
	)
	e := newTestEngine(t, fake, false)

	report := e.RunPass(context.Background())
	if report.RetroTagged != 1 || report.TrackingSent != 0 {
		t.Fatalf("report = %+v, want one retro tag", report)
	}
	u := fake.updatesFor(1)[0]
	if u.Comment != "" || u.Public {
		t.Errorf("retro tag posted a comment: %+v", u)
	}
	if !slices.Contains(fake.ticket(1).Tags, "tracking_sent_uk123456789") {
		t.Errorf("tags = %v", fake.ticket(1).Tags)
	}
}

func TestRunPassDropsStaleGuardSilently(t *testing.T) {
	fake := newFakeTickets()
	fake.add(trackingTicket(1, "B2", sentTag, "tracking_sent_a1", "tracking_sent_b2"),
		pub(agentID, "Here is the tracking number: B2"),
	)
	rec := &eventRecorder{}
	e := newTestEngine(t, fake, false, rec)

	report := e.RunPass(context.Background())
	if report.TrackingSent != 0 || report.RetroTagged != 0 || report.Failures != 0 {
		t.Errorf("report = %+v, want no announcement", report)
	}
	u := fake.updatesFor(1)
	if len(u) != 1 || u[0].Comment != "" || u[0].Status != "" {
		t.Fatalf("updates = %+v, want one tags-only update", u)
	}
	tags := fake.ticket(1).Tags
	if slices.Contains(tags, "tracking_sent_a1") || !slices.Contains(tags, "tracking_sent_b2") {
		t.Errorf("tags = %v", tags)
	}
	if !slices.Contains(rec.kinds(), domain.EventTrackingGuardCleaned) {
		t.Errorf("events = %v", rec.kinds())
	}

	e.RunPass(context.Background())
	if n := len(fake.updatesFor(1)); n != 1 {
		t.Errorf("updates after second pass = %d, want 1", n)
	}
}

func TestRunPassLeavesClosedTicketsAlone(t *testing.T) {
	fake := newFakeTickets()
	closed := trackingTicket(1, "UK123456789")
	closed.Status = domain.StatusClosed
	fake.add(closed, pub(requester, "My insert is too big"))
	e := newTestEngine(t, fake, false)

	report := e.RunPass(context.Background())
	if report.TrackingSent != 0 || report.Failures != 0 {
		t.Errorf("report = %+v", report)
	}
	if n := len(fake.updatesFor(1)); n != 0 {
		t.Errorf("updates = %d, want 0", n)
	}
}

func TestRunPassDraftsOnceAndMirrorsOrigin(t *testing.T) {
	fake := newFakeTickets()
	fake.names[requester] = "Anna Smith"
	fake.add(domain.Ticket{ID: 7, Status: domain.StatusOpen, RequesterID: requester, Subject: "Question", Via: "email"},
		pub(requester, "Thank you so much!"),
	)
	rec := &eventRecorder{}
	e := newTestEngine(t, fake, false, rec)

	report := e.RunPass(context.Background())
	if report.DraftsCreated != 1 || report.Failures != 0 {
		t.Fatalf("report = %+v, want one draft", report)
	}
	updates := fake.updatesFor(7)
	if len(updates) != 1 {
		t.Fatalf("updates = %d, want 1", len(updates))
	}
	u := updates[0]
	if u.Public {
		t.Error("draft posted publicly")
	}
	if !strings.HasPrefix(u.Comment, notePrefix+"\n\nHi Anna,") {
		t.Errorf("draft note = %q", u.Comment)
	}
	tags := fake.ticket(7).Tags
	if !slices.Contains(tags, draftTag) || !slices.Contains(tags, intent.OriginGeneric.Tag()) {
		t.Errorf("tags = %v", tags)
	}

	second := e.RunPass(context.Background())
	if second.DraftsCreated != 0 {
		t.Errorf("second pass drafted again: %+v", second)
	}
	if n := fake.setTags[7]; n != 1 {
		t.Errorf("SetTags calls = %d, want 1", n)
	}

	var draftEvent *domain.TriageEvent
	for i := range rec.events {
		if rec.events[i].Kind == domain.EventDraftCreated {
			draftEvent = &rec.events[i]
		}
	}
	if draftEvent == nil {
		t.Fatal("no draft_created event")
	}
	if draftEvent.Intent != "pure_thanks" || draftEvent.Origin != string(intent.OriginGeneric) || draftEvent.PassID != report.ID {
		t.Errorf("draft event = %+v", draftEvent)
	}
}

func TestRunPassReplacesStaleOriginTag(t *testing.T) {
	fake := newFakeTickets()
	fake.add(domain.Ticket{ID: 8, Status: domain.StatusOpen, RequesterID: requester, Subject: "Question", Via: "web_form",
		Tags: []string{"vip", intent.OriginGeneric.Tag()}},
		pub(requester, "Thank you!"),
	)
	e := newTestEngine(t, fake, false)

	e.RunPass(context.Background())
	e.RunPass(context.Background())

	tags := fake.ticket(8).Tags
	if slices.Contains(tags, intent.OriginGeneric.Tag()) || !slices.Contains(tags, intent.OriginStorefront.Tag()) || !slices.Contains(tags, "vip") {
		t.Errorf("tags = %v", tags)
	}
	if n := fake.setTags[8]; n != 1 {
		t.Errorf("SetTags calls = %d, want 1", n)
	}
}

func TestRunPassDraftsAgainAfterNewRequesterMessage(t *testing.T) {
	fake := newFakeTickets()
	fake.add(domain.Ticket{ID: 7, Status: domain.StatusOpen, RequesterID: requester, Subject: "Question", Via: "email"},
		pub(requester, "Hello, my insert does not fit"),
	)
	e := newTestEngine(t, fake, false)
	e.RunPass(context.Background())

	fake.mu.Lock()
	fake.comments[7] = append(fake.comments[7], pub(requester, "Any update?"))
	fake.mu.Unlock()

	report := e.RunPass(context.Background())
	if report.DraftsCreated != 1 {
		t.Errorf("DraftsCreated = %d, want 1", report.DraftsCreated)
	}
}

func TestRunPassAsksForModelDespiteCarrierLink(t *testing.T) {
	fake := newFakeTickets()
	fake.add(domain.Ticket{ID: 9, Status: domain.StatusOpen, RequesterID: requester, Subject: "Insert", Via: "email"},
		pub(agentID, "Here is the tracking number: UK1\nhttps://t.17track.net/en#nums=UK1"),
		pub(requester, "The new insert does not sit right in my bag either."),
	)
	rec := &eventRecorder{}
	e := newTestEngine(t, fake, false, rec)

	if report := e.RunPass(context.Background()); report.DraftsCreated != 1 {
		t.Fatalf("report = %+v, want one draft", report)
	}
	u := fake.updatesFor(9)
	if len(u) != 1 || !strings.Contains(u[0].Comment, "direct link to the one you own") {
		t.Errorf("draft does not ask for the bag model: %+v", u)
	}
	for _, ev := range rec.events {
		if ev.Kind == domain.EventDraftCreated && !strings.Contains(ev.Intent, "model_link") {
			t.Errorf("intent = %q, want model_link missing", ev.Intent)
		}
	}
}

func TestRunPassFallbackNameWhenLookupFails(t *testing.T) {
	fake := newFakeTickets()
	fake.add(domain.Ticket{ID: 3, Status: domain.StatusNew, RequesterID: requester, Subject: "Hi", Via: "email"},
		pub(requester, "Thanks a lot"),
	)
	e := newTestEngine(t, fake, false)
	e.RunPass(context.Background())

	u := fake.updatesFor(3)
	if len(u) != 1 || !strings.Contains(u[0].Comment, "Hi there,") {
		t.Errorf("updates = %+v", u)
	}
}

func TestRunPassDryRunMutatesNothing(t *testing.T) {
	fake := newFakeTickets()
	fake.add(trackingTicket(1, "UK123456789"), pub(agentID, "shipping soon"))
	fake.add(domain.Ticket{ID: 2, Status: domain.StatusOpen, RequesterID: requester, Subject: "Hi", Via: "email"},
		pub(requester, "Thank you!"),
	)
	rec := &eventRecorder{}
	e := newTestEngine(t, fake, true, rec)

	report := e.RunPass(context.Background())
	if !report.DryRun || report.TrackingSent != 1 || report.DraftsCreated != 1 {
		t.Fatalf("report = %+v", report)
	}
	if len(fake.updates) != 0 || len(fake.setTags) != 0 {
		t.Errorf("dry run mutated: updates=%d setTags=%d", len(fake.updates), len(fake.setTags))
	}
	for _, ev := range rec.events {
		if !ev.DryRun {
			t.Errorf("event %+v not marked dry run", ev)
		}
	}
}

func TestRunPassIsolatesTicketFailures(t *testing.T) {
	fake := newFakeTickets()
	fake.add(domain.Ticket{ID: 1, Status: domain.StatusOpen, RequesterID: requester, Subject: "Hi", Via: "email"},
		pub(requester, "Thank you!"),
	)
	fake.add(domain.Ticket{ID: 2, Status: domain.StatusOpen, RequesterID: requester, Subject: "Hi", Via: "email"},
		pub(requester, "Thank you!"),
	)
	fake.failComment[1] = errors.New("boom")
	rec := &eventRecorder{}
	e := newTestEngine(t, fake, false, rec)

	report := e.RunPass(context.Background())
	if report.Failures != 1 || report.DraftsCreated != 1 {
		t.Fatalf("report = %+v, want 1 failure and 1 draft", report)
	}
	if len(fake.updatesFor(2)) != 1 {
		t.Error("ticket 2 did not get a draft")
	}
	if !slices.Contains(rec.kinds(), domain.EventTicketFailed) {
		t.Errorf("events = %v, want ticket_failed", rec.kinds())
	}
}

func TestRunPassListFailure(t *testing.T) {
	fake := newFakeTickets()
	fake.failList = errors.New("unavailable")
	e := newTestEngine(t, fake, false)

	report := e.RunPass(context.Background())
	if report.Failures != 2 {
		t.Errorf("Failures = %d, want 2", report.Failures)
	}
}

func TestRunPassSkipsTerminalAndAgentLast(t *testing.T) {
	fake := newFakeTickets()
	fake.add(domain.Ticket{ID: 1, Status: domain.StatusClosed, RequesterID: requester, Via: "email"}, pub(requester, "Thanks"))
	fake.add(domain.Ticket{ID: 2, Status: domain.StatusOpen, RequesterID: requester, Via: "email"}, pub(requester, "Hi"), pub(agentID, "Hello"))
	fake.add(domain.Ticket{ID: 3, Status: domain.StatusOpen, RequesterID: requester, Via: "email"})
	e := newTestEngine(t, fake, false)

	report := e.RunPass(context.Background())
	if report.Skipped != 3 || report.DraftsCreated != 0 {
		t.Errorf("report = %+v, want 3 skipped", report)
	}
	if report.TicketsSeen != 3 {
		t.Errorf("TicketsSeen = %d, want 3", report.TicketsSeen)
	}
}

func TestRunPassIgnoresCancellation(t *testing.T) {
	fake := newFakeTickets()
	fake.add(domain.Ticket{ID: 1, Status: domain.StatusOpen, RequesterID: requester, Via: "email"}, pub(requester, "Thanks!"))
	e := newTestEngine(t, fake, false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if report := e.RunPass(ctx); report.DraftsCreated != 1 {
		t.Errorf("DraftsCreated = %d, want 1", report.DraftsCreated)
	}
}

func TestRunPassRecordsJournal(t *testing.T) {
	journal, err := store.NewSQLite(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("NewSQLite() error = %v", err)
	}
	t.Cleanup(func() { _ = journal.Close() })

	fake := newFakeTickets()
	fake.add(domain.Ticket{ID: 1, Status: domain.StatusOpen, RequesterID: requester, Via: "email"}, pub(requester, "Thanks!"))
	e := NewEngine(Options{
		Tickets:  fake,
		Composer: compose.New(compose.Config{Persona: "Noe", DraftPrefix: notePrefix}, nil, nil),
		Origins:  intent.NewOriginClassifier(intent.OriginRules{}),
		Journal:  journal,
		Sinks:    []Sink{JournalSink(journal)},
		Config:   Config{DraftTag: draftTag},
	})

	report := e.RunPass(context.Background())
	ctx := context.Background()
	passes, err := journal.ListPasses(ctx, 10)
	if err != nil {
		t.Fatalf("ListPasses() error = %v", err)
	}
	if len(passes) != 1 || passes[0].ID != report.ID || passes[0].DraftsCreated != 1 {
		t.Errorf("passes = %+v", passes)
	}
	events, err := journal.ListEvents(ctx, store.EventFilter{PassID: report.ID})
	if err != nil {
		t.Fatalf("ListEvents() error = %v", err)
	}
	if len(events) != 1 || events[0].Kind != domain.EventDraftCreated {
		t.Errorf("events = %+v", events)
	}
}

func TestPreview(t *testing.T) {
	e := newTestEngine(t, newFakeTickets(), false)
	got := e.Preview(context.Background(), PreviewRequest{
		Subject:       "Hello",
		Message:       "Thank you so much!",
		Via:           "email",
		RequesterName: "Anna",
	})
	if got.Intent != "pure_thanks" || got.Origin != intent.OriginGeneric || got.Rule != "pure_thanks" {
		t.Errorf("Preview() = %+v", got)
	}
	if !strings.HasPrefix(got.Draft.Text, "Hi Anna,") || got.Draft.Backend != compose.BackendTemplate {
		t.Errorf("draft = %+v", got.Draft)
	}
}

func TestStartWorkerRunsImmediately(t *testing.T) {
	fake := newFakeTickets()
	fake.add(domain.Ticket{ID: 1, Status: domain.StatusOpen, RequesterID: requester, Via: "email"}, pub(requester, "Thanks!"))
	e := newTestEngine(t, fake, false)

	ctx, cancel := context.WithCancel(context.Background())
	reports := make(chan domain.PassReport, 1)
	done := StartWorker(ctx, e, WorkerConfig{
		Interval: time.Hour,
		OnPass:   func(r domain.PassReport) { reports <- r },
	})

	select {
	case r := <-reports:
		if r.DraftsCreated != 1 {
			t.Errorf("DraftsCreated = %d, want 1", r.DraftsCreated)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not run a pass")
	}
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop")
	}
}
