package triage

import (
	"context"
	"strings"

	"github.com/divitize/divitize-zendesk-bot/internal/compose"
	"github.com/divitize/divitize-zendesk-bot/internal/intent"
	"github.com/divitize/divitize-zendesk-bot/internal/signal"
)

// PreviewRequest is a free-standing message to run through the cascade.
type PreviewRequest struct {
	Subject       string `json:"subject"`
	Message       string `json:"message"`
	Via           string `json:"via"`
	RequesterName string `json:"requester_name"`
}

// PreviewResult shows what a pass would draft for the message.
type PreviewResult struct {
	Origin intent.Origin `json:"origin"`
	Intent string        `json:"intent"`
	Rule   string        `json:"rule"`
	Draft  compose.Draft `json:"draft"`
}

// Preview classifies and composes without touching any ticket.
func (e *Engine) Preview(ctx context.Context, req PreviewRequest) PreviewResult {
	thread := strings.TrimSpace(req.Message + "\n" + req.Subject)
	origin := e.origins.Classify(req.Via, req.Subject, thread)
	signals := signal.Extract(signal.Input{
		Subject: req.Subject,
		Thread:  thread,
		Message: req.Message,
	})
	in, rule := intent.Explain(intent.Input{Message: req.Message, Origin: origin, Signals: signals})
	draft := e.composer.Compose(ctx, compose.Request{
		Intent:        in,
		Origin:        origin,
		Signals:       signals,
		RequesterName: req.RequesterName,
	})
	return PreviewResult{Origin: origin, Intent: in.String(), Rule: rule, Draft: draft}
}
