package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/divitize/divitize-zendesk-bot/internal/domain"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Journal using SQLite.
type SQLiteStore struct {
	db      *sql.DB
	writeMu sync.Mutex // serializes writers to avoid SQLITE_BUSY
}

// NewSQLite creates a new SQLite-backed journal.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS triage_events (
		id TEXT PRIMARY KEY,
		pass_id TEXT NOT NULL,
		ticket_id INTEGER NOT NULL,
		kind TEXT NOT NULL,
		intent TEXT,
		origin TEXT,
		detail TEXT,
		dry_run INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_events_ticket ON triage_events(ticket_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_events_created ON triage_events(created_at);

	CREATE TABLE IF NOT EXISTS passes (
		id TEXT PRIMARY KEY,
		started_at INTEGER NOT NULL,
		duration_ns INTEGER NOT NULL,
		tickets_seen INTEGER NOT NULL,
		tracking_sent INTEGER NOT NULL,
		retro_tagged INTEGER NOT NULL,
		drafts_created INTEGER NOT NULL,
		skipped INTEGER NOT NULL,
		failures INTEGER NOT NULL,
		dry_run INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_passes_started ON passes(started_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// RecordEvent appends an event, assigning an ID and timestamp when missing.
func (s *SQLiteStore) RecordEvent(ctx context.Context, event *domain.TriageEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	query := `
	INSERT INTO triage_events (id, pass_id, ticket_id, kind, intent, origin, detail, dry_run, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO NOTHING`

	return withRetry(ctx, "record event", func() error {
		s.writeMu.Lock()
		defer s.writeMu.Unlock()
		_, err := s.db.ExecContext(ctx, query,
			event.ID, event.PassID, event.TicketID, string(event.Kind),
			event.Intent, event.Origin, event.Detail, event.DryRun,
			event.CreatedAt.UnixMilli(),
		)
		return err
	})
}

// ListEvents returns events newest first.
func (s *SQLiteStore) ListEvents(ctx context.Context, filter EventFilter) ([]domain.TriageEvent, error) {
	var where []string
	var args []any
	if filter.TicketID != 0 {
		where = append(where, "ticket_id = ?")
		args = append(args, filter.TicketID)
	}
	if filter.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, string(filter.Kind))
	}
	if filter.PassID != "" {
		where = append(where, "pass_id = ?")
		args = append(args, filter.PassID)
	}

	query := `SELECT id, pass_id, ticket_id, kind, intent, origin, detail, dry_run, created_at FROM triage_events`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, rowid DESC LIMIT ?"
	args = append(args, clampLimit(filter.Limit))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []domain.TriageEvent
	for rows.Next() {
		var ev domain.TriageEvent
		var kind string
		var intent, origin, detail sql.NullString
		var createdAt int64
		if err := rows.Scan(&ev.ID, &ev.PassID, &ev.TicketID, &kind, &intent, &origin, &detail, &ev.DryRun, &createdAt); err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}
		ev.Kind = domain.EventKind(kind)
		ev.Intent = intent.String
		ev.Origin = origin.String
		ev.Detail = detail.String
		ev.CreatedAt = time.UnixMilli(createdAt).UTC()
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// RecordPass stores a pass summary, replacing one with the same ID.
func (s *SQLiteStore) RecordPass(ctx context.Context, r *domain.PassReport) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	query := `
	INSERT INTO passes (id, started_at, duration_ns, tickets_seen, tracking_sent, retro_tagged, drafts_created, skipped, failures, dry_run)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		duration_ns = excluded.duration_ns,
		tickets_seen = excluded.tickets_seen,
		tracking_sent = excluded.tracking_sent,
		retro_tagged = excluded.retro_tagged,
		drafts_created = excluded.drafts_created,
		skipped = excluded.skipped,
		failures = excluded.failures`

	return withRetry(ctx, "record pass", func() error {
		s.writeMu.Lock()
		defer s.writeMu.Unlock()
		_, err := s.db.ExecContext(ctx, query,
			r.ID, r.StartedAt.UnixMilli(), int64(r.Duration), r.TicketsSeen, r.TrackingSent,
			r.RetroTagged, r.DraftsCreated, r.Skipped, r.Failures, r.DryRun,
		)
		return err
	})
}

// ListPasses returns the most recent pass summaries, newest first.
func (s *SQLiteStore) ListPasses(ctx context.Context, limit int) ([]domain.PassReport, error) {
	query := `
		SELECT id, started_at, duration_ns, tickets_seen, tracking_sent, retro_tagged,
		       drafts_created, skipped, failures, dry_run
		FROM passes ORDER BY started_at DESC, rowid DESC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query passes: %w", err)
	}
	defer rows.Close()

	var out []domain.PassReport
	for rows.Next() {
		var r domain.PassReport
		var startedAt, duration int64
		if err := rows.Scan(&r.ID, &startedAt, &duration, &r.TicketsSeen, &r.TrackingSent,
			&r.RetroTagged, &r.DraftsCreated, &r.Skipped, &r.Failures, &r.DryRun); err != nil {
			return nil, fmt.Errorf("scan pass row: %w", err)
		}
		r.StartedAt = time.UnixMilli(startedAt).UTC()
		r.Duration = time.Duration(duration)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate passes: %w", err)
	}
	return out, nil
}

// CleanupOlderThan removes events and passes older than age.
func (s *SQLiteStore) CleanupOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	threshold := time.Now().Add(-age).UnixMilli()
	var total int64
	err := withRetry(ctx, "cleanup journal", func() error {
		s.writeMu.Lock()
		defer s.writeMu.Unlock()

		total = 0
		res, err := s.db.ExecContext(ctx, `DELETE FROM triage_events WHERE created_at < ?`, threshold)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		total += n

		res, err = s.db.ExecContext(ctx, `DELETE FROM passes WHERE started_at < ?`, threshold)
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		if err != nil {
			return err
		}
		total += n
		return nil
	})
	return total, err
}

// Ensure SQLiteStore implements Journal.
var _ Journal = (*SQLiteStore)(nil)
