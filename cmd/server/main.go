// Divitize draft assistant: polls the help desk, announces replacement
// tracking numbers and leaves suggested replies as internal notes.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/divitize/divitize-zendesk-bot/internal/agent"
	"github.com/divitize/divitize-zendesk-bot/internal/api"
	"github.com/divitize/divitize-zendesk-bot/internal/compose"
	"github.com/divitize/divitize-zendesk-bot/internal/config"
	"github.com/divitize/divitize-zendesk-bot/internal/domain"
	"github.com/divitize/divitize-zendesk-bot/internal/feed"
	"github.com/divitize/divitize-zendesk-bot/internal/intent"
	"github.com/divitize/divitize-zendesk-bot/internal/kafka"
	"github.com/divitize/divitize-zendesk-bot/internal/middleware"
	"github.com/divitize/divitize-zendesk-bot/internal/store"
	"github.com/divitize/divitize-zendesk-bot/internal/triage"
	"github.com/divitize/divitize-zendesk-bot/internal/zendesk"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

type options struct {
	configPath string
	once       bool
	dryRun     bool
}

func main() {
	var opts options
	flagSet := pflag.NewFlagSet("divitize-bot", pflag.ContinueOnError)
	flagSet.StringVar(&opts.configPath, "config", "", "path to YAML config file (default: $CONFIG_FILE or triage.yaml)")
	flagSet.BoolVar(&opts.once, "once", false, "run a single pass and exit")
	flagSet.BoolVar(&opts.dryRun, "dry-run", false, "decide and log but never modify tickets")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "No .env file found, using environment variables")
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load configuration:", err)
		os.Exit(1)
	}
	if opts.dryRun {
		cfg.DryRun = true
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	if err := run(cfg, opts, logger); err != nil {
		slog.Error("Fatal error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, opts options, logger *slog.Logger) error {
	slog.Info("Draft assistant starting",
		"brand", cfg.Reply.BrandName,
		"persona", cfg.Reply.SignatureName,
		"poll_interval", cfg.PollInterval(),
		"dry_run", cfg.DryRun,
		"generation", backendName(cfg.Generation.Backend),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tickets, err := zendesk.NewClient(zendesk.Config{
		Subdomain: cfg.Zendesk.Subdomain,
		Email:     cfg.Zendesk.Email,
		APIToken:  cfg.Zendesk.APIToken,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("initialize ticket client: %w", err)
	}

	var journal store.Journal
	if cfg.Journal.Enabled {
		sqlite, err := store.NewSQLite(cfg.Journal.DBPath)
		if err != nil {
			return fmt.Errorf("initialize journal: %w", err)
		}
		defer func() {
			if closeErr := sqlite.Close(); closeErr != nil {
				slog.Error("Failed to close journal", "error", closeErr)
			}
		}()
		if err := sqlite.Ping(ctx); err != nil {
			return fmt.Errorf("journal health check: %w", err)
		}
		journal = sqlite
		slog.Info("Journal connected", "path", cfg.Journal.DBPath)
	}

	var generator agent.Completer
	svc, err := agent.New(agent.Config{
		Backend:        cfg.Generation.Backend,
		OpenAIKey:      cfg.Generation.OpenAIKey,
		OpenAIModel:    cfg.Generation.OpenAIModel,
		OpenAIBaseURL:  cfg.Generation.OpenAIBaseURL,
		GrpcAddress:    cfg.Generation.GrpcAddress,
		RequestTimeout: cfg.GenerationTimeout(),
		Temperature:    agent.DefaultConfig().Temperature,
	}, logger)
	if err != nil {
		slog.Warn("Generation backend unavailable, drafts will use templates", "error", err)
	} else if svc != nil {
		defer svc.Close()
		generator = svc
		slog.Info("Generation backend ready", "backend", cfg.Generation.Backend)
	}

	composer := compose.New(compose.Config{
		Brand:               cfg.Reply.BrandName,
		Persona:             cfg.Reply.SignatureName,
		DraftPrefix:         cfg.Triage.DraftPrefix,
		CarrierLinkTemplate: cfg.Reply.CarrierLinkTemplate,
	}, generator, logger)

	hub := feed.NewHub(cfg.Ops.FeedBacklog)
	sinks := []triage.Sink{hub}
	if journal != nil {
		sinks = append(sinks, triage.JournalSink(journal))
	}

	var producer *kafka.Producer
	if len(cfg.Kafka.Brokers) > 0 {
		producer = kafka.NewProducer(kafka.Config{
			Brokers:     cfg.Kafka.Brokers,
			EventsTopic: cfg.Kafka.EventsTopic,
			PassesTopic: cfg.Kafka.PassesTopic,
		}, logger)
		defer func() {
			if closeErr := producer.Close(); closeErr != nil {
				slog.Error("Failed to close Kafka producer", "error", closeErr)
			}
		}()
		sinks = append(sinks, producer)
		slog.Info("Kafka event stream enabled", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.EventsTopic)
	}

	engine := triage.NewEngine(triage.Options{
		Tickets:  tickets,
		Composer: composer,
		Origins: intent.NewOriginClassifier(intent.OriginRules{
			StorefrontSources: cfg.Origin.StorefrontSources,
			StorefrontPhrase:  cfg.Origin.StorefrontPhrase,
			MarketplaceTokens: cfg.Origin.MarketplaceTokens,
		}),
		Journal: journal,
		Sinks:   sinks,
		Config: triage.Config{
			TrackingFieldID:    cfg.Zendesk.TrackingFieldID,
			ReplacementSentTag: cfg.Triage.ReplacementSentTag,
			DraftTag:           cfg.Triage.DraftTag,
			PageSize:           cfg.Triage.PageSize,
			DryRun:             cfg.DryRun,
		},
		Logger: logger,
	})

	publishPass := func(report domain.PassReport) {
		if producer == nil {
			return
		}
		if err := producer.PublishPass(context.WithoutCancel(ctx), report); err != nil {
			slog.Warn("Failed to publish pass report", "pass_id", report.ID, "error", err)
		}
	}

	if opts.once {
		publishPass(engine.RunPass(ctx))
		return nil
	}

	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS(cfg.Ops.AllowedOrigins))

	api.NewHealthHandler(journal, func() map[string]any {
		stats := map[string]any{
			"feed_subscribers": hub.Count(),
			"feed_dropped":     hub.Dropped(),
			"dry_run":          cfg.DryRun,
		}
		if svc != nil {
			stats["generation"] = svc.GetStats()
		}
		return stats
	}).RegisterHealth(r)

	r.Group(func(r chi.Router) {
		r.Use(middleware.BearerToken(cfg.Ops.Token))
		api.NewHandler(engine, journal, cfg.DryRun).RegisterRoutes(r)
		r.Get("/ws/events", feed.NewWebSocketHandler(hub, cfg.Ops.AllowedOrigins, cfg.IsDevelopment()).ServeHTTP)
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // passes triggered over HTTP and the feed are long-lived
		IdleTimeout:  120 * time.Second,
	}

	workerDone := triage.StartWorker(ctx, engine, triage.WorkerConfig{
		Interval:  cfg.PollInterval(),
		Retention: cfg.Retention(),
		Journal:   journal,
		OnPass:    publishPass,
	})

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		stop()
		<-workerDone
		return fmt.Errorf("server failed: %w", err)
	}
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	// An in-flight pass always runs to completion.
	<-workerDone
	slog.Info("Server stopped successfully")
	return nil
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func backendName(b string) string {
	if b == config.BackendNone {
		return "none"
	}
	return b
}
