// Package compose turns a classified intent into reply text: customer-facing
// drafts for human review and the public tracking messages.
package compose

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/divitize/divitize-zendesk-bot/internal/agent"
	"github.com/divitize/divitize-zendesk-bot/internal/intent"
	"github.com/divitize/divitize-zendesk-bot/internal/signal"
)

// Backends a draft can come from.
const (
	BackendTemplate  = "template"
	BackendGenerated = "generated"
)

// FallbackName is the salutation used when no name is known.
const FallbackName = "there"

// ErrInvariant reports generated text that breaks the reply rules.
var ErrInvariant = errors.New("draft violates reply rules")

var parenGroup = regexp.MustCompile(`\(([^()]*)\)`)

// Config holds the composer's fixed wording.
type Config struct {
	Brand               string
	Persona             string
	DraftPrefix         string
	CarrierLinkTemplate string
}

// Request is everything a draft depends on.
type Request struct {
	Intent        intent.Intent
	Origin        intent.Origin
	Signals       signal.Set
	RequesterName string
}

// Draft is composed reply text.
type Draft struct {
	Text    string `json:"text"`
	Backend string `json:"backend"`
}

// Composer builds drafts from templates, optionally through a generation
// backend whose output must satisfy the same rules.
type Composer struct {
	cfg    Config
	gen    agent.Completer
	logger *slog.Logger
}

// New creates a Composer. gen may be nil.
func New(cfg Config, gen agent.Completer, logger *slog.Logger) *Composer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Composer{cfg: cfg, gen: gen, logger: logger}
}

// Compose returns the draft for req. Generation failures and rule
// violations fall back to the template text, so Compose always succeeds.
func (c *Composer) Compose(ctx context.Context, req Request) Draft {
	text := c.Template(req)
	if c.gen == nil {
		return Draft{Text: text, Backend: BackendTemplate}
	}

	generated, err := c.gen.Complete(ctx, Policy, c.policyInput(req, text))
	if err != nil {
		c.logger.Warn("generation failed, using template", "intent", req.Intent.Kind.String(), "error", err)
		return Draft{Text: text, Backend: BackendTemplate}
	}
	generated = strings.TrimSpace(generated)
	if err := c.Check(generated, req); err != nil {
		c.logger.Warn("generated draft rejected, using template", "intent", req.Intent.Kind.String(), "error", err)
		return Draft{Text: text, Backend: BackendTemplate}
	}
	return Draft{Text: generated, Backend: BackendGenerated}
}

// Template renders the deterministic reply for req.
func (c *Composer) Template(req Request) string {
	return fmt.Sprintf("Hi %s,\n\n%s\n\nBest regards,\n%s", ResolveName(req), c.body(req.Intent), c.cfg.Persona)
}

// Note prefixes a draft with the marker that identifies it as a suggestion.
func (c *Composer) Note(d Draft) string {
	if c.cfg.DraftPrefix == "" {
		return d.Text
	}
	return c.cfg.DraftPrefix + "\n\n" + d.Text
}

// Check validates text against the reply rules for req.
func (c *Composer) Check(text string, req Request) error {
	if greeting := "Hi " + ResolveName(req) + ","; !strings.HasPrefix(text, greeting) {
		return fmt.Errorf("%w: must open with %q", ErrInvariant, greeting)
	}
	if !strings.HasSuffix(strings.TrimSpace(text), c.cfg.Persona) {
		return fmt.Errorf("%w: must sign as %q", ErrInvariant, c.cfg.Persona)
	}
	hasNoReturn := strings.Contains(text, NoReturnSentence)
	if want := req.Intent.ArrangesReplacement(); hasNoReturn != want {
		return fmt.Errorf("%w: no-return sentence present=%v, want %v", ErrInvariant, hasNoReturn, want)
	}
	if req.Intent.Kind == intent.KindExplicitReplacement {
		for _, m := range parenGroup.FindAllStringSubmatch(text, -1) {
			if n := len(strings.Split(m[1], ",")); n > MaxEchoedKeywords {
				return fmt.Errorf("%w: %d keywords echoed", ErrInvariant, n)
			}
		}
	}
	return nil
}

// ResolveName picks the salutation: a storefront form's Name field, then the
// requester's first name, then FallbackName.
func ResolveName(req Request) string {
	if req.Origin == intent.OriginStorefront && req.Signals.FormName != "" {
		return req.Signals.FormName
	}
	if fields := strings.Fields(req.RequesterName); len(fields) > 0 {
		return fields[0]
	}
	return FallbackName
}

func (c *Composer) policyInput(req Request, template string) map[string]any {
	keywords := req.Intent.Keywords
	if len(keywords) > MaxEchoedKeywords {
		keywords = keywords[:MaxEchoedKeywords]
	}
	echo := make([]any, len(keywords))
	for i, k := range keywords {
		echo[i] = k
	}
	return map[string]any{
		"intent":             req.Intent.Kind.String(),
		"origin":             string(req.Origin),
		"first_name":         ResolveName(req),
		"persona":            c.cfg.Persona,
		"brand":              c.cfg.Brand,
		"keywords":           echo,
		"asks_about_return":  req.Intent.AsksAboutReturn,
		"missing_order":      req.Intent.Missing.Order,
		"missing_model_link": req.Intent.Missing.ModelLink,
		"photo_received":     req.Intent.PhotoReceived,
		"include_no_return":  req.Intent.ArrangesReplacement(),
		"no_return_sentence": NoReturnSentence,
		"reference_reply":    template,
	}
}
