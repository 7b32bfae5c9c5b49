package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

// Service wraps a Completer with a per-request deadline and call counters.
type Service struct {
	completer Completer
	timeout   time.Duration

	requests atomic.Int64
	failures atomic.Int64
}

// NewServiceWithCompleter creates a new agent service around completer.
func NewServiceWithCompleter(completer Completer, timeout time.Duration) *Service {
	return &Service{
		completer: completer,
		timeout:   timeoutOrDefault(timeout),
	}
}

// New builds the backend named in cfg. It returns nil, nil when generation
// is disabled.
func New(cfg Config, logger *slog.Logger) (*Service, error) {
	switch cfg.Backend {
	case BackendNone:
		return nil, nil
	case BackendOpenAI:
		if cfg.OpenAIKey == "" {
			return nil, fmt.Errorf("openai backend: %w", ErrNotConfigured)
		}
		return NewServiceWithCompleter(NewOpenAIClient(cfg), cfg.RequestTimeout), nil
	case BackendGRPC:
		client, err := NewGrpcClient(GrpcClientConfig{
			Address:        cfg.GrpcAddress,
			RequestTimeout: cfg.RequestTimeout,
		}, logger)
		if err != nil {
			return nil, err
		}
		return NewServiceWithCompleter(client, cfg.RequestTimeout), nil
	default:
		return nil, fmt.Errorf("unknown generation backend %q", cfg.Backend)
	}
}

// Complete forwards to the wrapped completer.
func (s *Service) Complete(ctx context.Context, policy string, input map[string]any) (string, error) {
	s.requests.Add(1)
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	text, err := s.completer.Complete(ctx, policy, input)
	if err != nil {
		s.failures.Add(1)
		return "", err
	}
	return text, nil
}

// GetStats returns call counters.
func (s *Service) GetStats() Stats {
	return Stats{
		Requests: s.requests.Load(),
		Failures: s.failures.Load(),
	}
}

// Stats contains agent statistics.
type Stats struct {
	Requests int64 `json:"requests"`
	Failures int64 `json:"failures"`
}

// Close releases resources.
func (s *Service) Close() {
	if s.completer != nil {
		s.completer.Close()
	}
}
