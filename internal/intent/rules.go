package intent

import (
	"regexp"
	"strings"

	"github.com/divitize/divitize-zendesk-bot/internal/signal"
)

var (
	// thankIdiom is "want to thank" and its variants, which read as a request
	// cue to the vocabulary but are gratitude.
	thankIdiom = regexp.MustCompile(`\b(?:i|we)?\s*(?:want(?:ed)?|would like|'d like|wish)\s+to\s+(?:say\s+)?thank`)

	reviewLeftPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b(?:i|we)(?:'ve| have)?\s+(?:just\s+|already\s+)?(?:left|posted|written|wrote|submitted|given|gave|added|done)\s+(?:you\s+)?(?:a|an|the|my|our)?\s*(?:\S+\s+){0,2}?(?:review|rating|feedback)\b`),
		regexp.MustCompile(`\balready\s+(?:left|posted|wrote|written|gave|given|submitted)\b.*\b(?:review|rating|feedback)\b`),
		regexp.MustCompile(`\b(?:my\s+)?review\s+(?:is\s+|has been\s+)?(?:up|posted|done|submitted|live)\b`),
	}

	reviewPromisedPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b(?:i|we)(?:'ll| will| shall|'m going to| am going to|'re going to| are going to| plan to| intend to)\s+(?:definitely\s+|surely\s+|certainly\s+|gladly\s+|happily\s+|be sure to\s+)?(?:leave|write|post|give|add|do)\s+(?:you\s+)?(?:a|an|the|my|our)?\s*(?:\S+\s+){0,2}?(?:review|rating|feedback)\b`),
		regexp.MustCompile(`\b(?:review|rating|feedback)\s+(?:is\s+)?coming\b`),
	}

	conditionalReview = regexp.MustCompile(`\b(?:if|when|once|should)\s+(?:i|we)\s+(?:\S+\s+){0,2}?(?:leave|write|post|give|add|do)\b`)

	returnPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b(?:do|should|must|shall|have|need)\s+(?:i|we)\s+(?:\S+\s+){0,3}?(?:send|ship|return|mail|post)\s+(?:\S+\s+){0,3}?back\b`),
		regexp.MustCompile(`\b(?:do|should|must|shall)\s+(?:i|we)\s+(?:need\s+to\s+|have\s+to\s+)?return\b`),
		regexp.MustCompile(`\bsend\s+(?:it|them|this|the\s+\S+)\s+back\s*\?`),
	}
)

// rule is one step of the cascade. match returns the Intent and true when
// the rule applies.
type rule struct {
	name  string
	match func(in *Input) (Intent, bool)
}

// cascade is evaluated in order; the first matching rule wins and
// NeedMoreInfo is the default when none does.
var cascade = []rule{
	{"pure_thanks", matchPureThanks},
	{"review_already_left", matchReviewAlreadyLeft},
	{"review_promised", matchReviewPromised},
	{"chain", matchChain},
	{"pre_sale", matchPreSale},
	{"shade_match", matchShadeMatch},
	{"explicit_replacement", matchExplicitReplacement},
	{"return_policy", matchReturnPolicy},
}

func matchPureThanks(in *Input) (Intent, bool) {
	s := in.Signals
	if !s.Hit(signal.VocabThanks) || hasQuestionMark(in.message) || s.Hit(signal.VocabComplaint) {
		return Intent{}, false
	}
	if signal.Request.Match(thankIdiom.ReplaceAllString(in.message, " ")) {
		return Intent{}, false
	}
	return Intent{Kind: KindPureThanks}, true
}

func matchReviewAlreadyLeft(in *Input) (Intent, bool) {
	if matchAny(reviewLeftPatterns, in.message) && !conditionalReview.MatchString(in.message) {
		return Intent{Kind: KindReviewAlreadyLeft}, true
	}
	return Intent{}, false
}

func matchReviewPromised(in *Input) (Intent, bool) {
	if matchAny(reviewPromisedPatterns, in.message) && !conditionalReview.MatchString(in.message) {
		return Intent{Kind: KindReviewPromised}, true
	}
	return Intent{}, false
}

func matchChain(in *Input) (Intent, bool) {
	s := in.Signals
	if !s.Hit(signal.VocabChain) {
		return Intent{}, false
	}
	switch {
	case s.Hit(signal.VocabShort):
		return Intent{Kind: KindChainLength, Length: Shorter}, true
	case s.Hit(signal.VocabLong):
		return Intent{Kind: KindChainLength, Length: Longer}, true
	case s.HasLabel(signal.VocabColor, "gold"):
		return Intent{Kind: KindChainColor, Color: "gold"}, true
	case s.HasLabel(signal.VocabColor, "silver"):
		return Intent{Kind: KindChainColor, Color: "silver"}, true
	default:
		return Intent{Kind: KindChainGeneric}, true
	}
}

func matchPreSale(in *Input) (Intent, bool) {
	s := in.Signals
	if in.Origin != OriginStorefront || s.OrderNumber != "" || isExplicitRequest(in) {
		return Intent{}, false
	}
	switch {
	case s.Hit(signal.VocabMaterial):
		return Intent{Kind: KindPreSaleMaterial}, true
	case s.Hit(signal.VocabCustomSize):
		return Intent{Kind: KindPreSaleCustomSize}, true
	}
	return Intent{}, false
}

func matchShadeMatch(in *Input) (Intent, bool) {
	if in.Signals.Hit(signal.VocabShade) && !in.Signals.AnyHasPhoto {
		return Intent{Kind: KindShadeMatch}, true
	}
	return Intent{}, false
}

func matchExplicitReplacement(in *Input) (Intent, bool) {
	if !isExplicitRequest(in) {
		return Intent{}, false
	}
	return Intent{
		Kind:            KindExplicitReplacement,
		Keywords:        signal.UniqueLabels(in.Signals.Keywords, MaxKeywords),
		AsksAboutReturn: matchAny(returnPatterns, in.message),
	}, true
}

func matchReturnPolicy(in *Input) (Intent, bool) {
	if matchAny(returnPatterns, in.message) {
		return Intent{Kind: KindReturnPolicy}, true
	}
	return Intent{}, false
}

// needMoreInfo is the default rule. It asks only for what is missing.
func needMoreInfo(in *Input) Intent {
	s := in.Signals
	return Intent{
		Kind: KindNeedMoreInfo,
		Missing: Missing{
			Order:     in.Origin.RequiresOrder() && s.OrderNumber == "",
			ModelLink: !(s.HasURL || (s.AnyHasPhoto && s.HasMeasurements)),
		},
		PhotoReceived: s.LastHasPhoto,
	}
}

func isExplicitRequest(in *Input) bool {
	return in.Signals.Hit(signal.VocabRequest) && len(in.Signals.Keywords) > 0
}

func hasQuestionMark(text string) bool {
	return strings.ContainsAny(text, "?？¿")
}

func matchAny(patterns []*regexp.Regexp, text string) bool {
	for _, re := range patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}
