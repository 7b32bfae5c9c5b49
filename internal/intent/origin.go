package intent

import (
	"strings"

	"github.com/divitize/divitize-zendesk-bot/internal/signal"
)

// Origin is the inferred channel a ticket arrived through.
type Origin string

const (
	OriginStorefront  Origin = "storefront-contact-form"
	OriginMarketplace Origin = "marketplace-qr-flow"
	OriginGeneric     Origin = "generic-email"
)

// Origins lists every origin, in classification priority order.
var Origins = []Origin{OriginStorefront, OriginMarketplace, OriginGeneric}

// Tag is the ticket tag mirroring this origin for human-facing automation.
func (o Origin) Tag() string {
	return "origin_" + strings.ReplaceAll(string(o), "-", "_")
}

// RequiresOrder reports whether an info request must ask for an order number.
// Storefront messages are mostly pre-sale or identified by the shop itself.
func (o Origin) RequiresOrder() bool {
	return o != OriginStorefront
}

// OriginRules configures the origin classifier.
type OriginRules struct {
	// StorefrontSources are routing-source values that mark a storefront channel.
	StorefrontSources []string
	// StorefrontPhrase is a sentence only the storefront contact form emits.
	StorefrontPhrase string
	// MarketplaceTokens are subject words that mark the marketplace QR flow.
	MarketplaceTokens []string
}

// OriginClassifier maps routing metadata and thread text to an Origin.
type OriginClassifier struct {
	sources map[string]bool
	phrase  string
	tokens  *signal.Vocabulary
}

// NewOriginClassifier compiles the rules once.
func NewOriginClassifier(rules OriginRules) *OriginClassifier {
	sources := make(map[string]bool, len(rules.StorefrontSources))
	for _, s := range rules.StorefrontSources {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			sources[s] = true
		}
	}
	var tokens []string
	for _, t := range rules.MarketplaceTokens {
		if t = signal.Normalize(t); t != "" {
			tokens = append(tokens, t)
		}
	}
	return &OriginClassifier{
		sources: sources,
		phrase:  signal.Normalize(rules.StorefrontPhrase),
		tokens:  signal.NewVocabulary("marketplace_subject", signal.WholeWord, signal.Words(tokens...)...),
	}
}

// Classify applies the rules in priority order; the first match wins.
func (c *OriginClassifier) Classify(via, subject, thread string) Origin {
	if c.sources[strings.ToLower(strings.TrimSpace(via))] {
		return OriginStorefront
	}
	normalized := signal.Normalize(thread)
	if c.phrase != "" && strings.Contains(normalized, c.phrase) {
		return OriginStorefront
	}
	if c.tokens.Match(signal.Normalize(subject)) || signal.ExtractOrderNumber(normalized) != "" {
		return OriginMarketplace
	}
	return OriginGeneric
}
