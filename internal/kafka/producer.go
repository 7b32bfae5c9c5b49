// Package kafka streams triage events and pass summaries to Kafka topics.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/divitize/divitize-zendesk-bot/internal/domain"
	"github.com/segmentio/kafka-go"
)

// messageWriter is the part of *kafka.Writer the producer uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Config selects the brokers and topics.
type Config struct {
	Brokers      []string
	EventsTopic  string
	PassesTopic  string
	WriteTimeout time.Duration
}

// Producer sends triage events and pass reports to Kafka.
type Producer struct {
	eventsWriter messageWriter
	passesWriter messageWriter
	logger       *slog.Logger
}

// NewProducer creates a new Kafka producer. A blank PassesTopic disables
// pass reports.
func NewProducer(cfg Config, logger *slog.Logger) *Producer {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.WriteTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	p := &Producer{
		eventsWriter: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.EventsTopic,
			Balancer:     &kafka.Hash{},
			WriteTimeout: timeout,
		},
		logger: logger,
	}
	if cfg.PassesTopic != "" {
		p.passesWriter = &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.PassesTopic,
			Balancer:     &kafka.LeastBytes{},
			WriteTimeout: timeout,
		}
	}
	return p
}

// Publish sends an event keyed by ticket ID, so a ticket's events stay
// ordered within one partition.
func (p *Producer) Publish(ctx context.Context, event domain.TriageEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(event.TicketID, 10)),
		Value: data,
		Time:  event.CreatedAt,
	}
	if err := p.eventsWriter.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	p.logger.Debug("Sent event to Kafka", "ticket_id", event.TicketID, "kind", string(event.Kind))
	return nil
}

// PublishPass sends a pass report keyed by pass ID.
func (p *Producer) PublishPass(ctx context.Context, report domain.PassReport) error {
	if p.passesWriter == nil {
		return nil
	}
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal pass: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(report.ID),
		Value: data,
		Time:  report.StartedAt,
	}
	if err := p.passesWriter.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write pass: %w", err)
	}
	p.logger.Debug("Sent pass to Kafka", "pass_id", report.ID)
	return nil
}

// Close closes the Kafka writers.
func (p *Producer) Close() error {
	if err := p.eventsWriter.Close(); err != nil {
		return err
	}
	if p.passesWriter != nil {
		return p.passesWriter.Close()
	}
	return nil
}
