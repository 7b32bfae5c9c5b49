package triage

import (
	"context"
	"log/slog"
	"time"

	"github.com/divitize/divitize-zendesk-bot/internal/domain"
	"github.com/divitize/divitize-zendesk-bot/internal/store"
)

// PassCallback is called with the report of every scheduled pass.
type PassCallback func(report domain.PassReport)

// WorkerConfig controls the polling loop.
type WorkerConfig struct {
	Interval  time.Duration
	Retention time.Duration
	// Journal is swept for rows older than Retention after each pass.
	Journal store.Journal
	OnPass  PassCallback
}

// StartWorker runs a background goroutine that runs one pass immediately
// and then one per interval until ctx is done. The returned channel is
// closed once the goroutine has exited.
func StartWorker(ctx context.Context, e *Engine, cfg WorkerConfig) <-chan struct{} {
	done := make(chan struct{})
	ticker := time.NewTicker(cfg.Interval)
	go func() {
		defer close(done)
		defer ticker.Stop()
		slog.Info("Triage worker started", "interval", cfg.Interval, "dry_run", e.cfg.DryRun)

		runScheduledPass(ctx, e, cfg)
		for {
			select {
			case <-ticker.C:
				runScheduledPass(ctx, e, cfg)
			case <-ctx.Done():
				slog.Info("Triage worker shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
	return done
}

func runScheduledPass(ctx context.Context, e *Engine, cfg WorkerConfig) {
	if ctx.Err() != nil {
		return
	}
	report := e.RunPass(ctx)
	if cfg.OnPass != nil {
		cfg.OnPass(report)
	}
	sweepJournal(ctx, cfg.Journal, cfg.Retention)
}

func sweepJournal(ctx context.Context, j store.Journal, retention time.Duration) {
	if j == nil || retention <= 0 {
		return
	}
	deleted, err := j.CleanupOlderThan(ctx, retention)
	if err != nil {
		slog.Error("Triage worker failed to sweep journal", "error", err)
		return
	}
	if deleted > 0 {
		slog.Info("Triage worker swept journal", "count", deleted, "retention", retention)
	}
}
