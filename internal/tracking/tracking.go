// Package tracking decides when a replacement's tracking number is announced
// to the customer. State lives in the ticket's own tags: a guard tag per
// announced value. Deciding is pure; applying the plan is the caller's job.
package tracking

import (
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/divitize/divitize-zendesk-bot/internal/domain"
)

const (
	// GuardPrefix starts every guard tag; the normalized value follows.
	GuardPrefix = "tracking_sent_"
	// LegacyGuardTag is the bare tag an earlier bot used without a value.
	LegacyGuardTag = "tracking_sent"
)

// Kind is the state the ticket is found in.
type Kind int

const (
	NoTracking Kind = iota
	AlreadyAnnounced
	RetroTag
	Correction
	FirstAnnouncement
	// GuardCleanup drops guards left for older values once the current
	// value is announced. It posts nothing and keeps the status.
	GuardCleanup
)

func (k Kind) String() string {
	switch k {
	case NoTracking:
		return "no_tracking"
	case AlreadyAnnounced:
		return "already_announced"
	case RetroTag:
		return "retro_tag"
	case Correction:
		return "correction"
	case FirstAnnouncement:
		return "first_announcement"
	case GuardCleanup:
		return "guard_cleanup"
	default:
		return "unknown"
	}
}

// GuardState is what the tag set says was announced before.
type GuardState struct {
	// Values are the normalized values of every guard tag, in tag order.
	Values []string
	// Legacy is set when the bare LegacyGuardTag is present.
	Legacy bool
}

// Announced reports whether normalized value v has a guard.
func (g GuardState) Announced(v string) bool {
	return slices.Contains(g.Values, v)
}

// Settled reports whether v is announced and no other guard remains.
func (g GuardState) Settled(v string) bool {
	return g.Announced(v) && len(g.Values) == 1 && !g.Legacy
}

// Empty reports whether no guard of any kind exists.
func (g GuardState) Empty() bool {
	return len(g.Values) == 0 && !g.Legacy
}

// Guard maps a tag set to its guard state.
func Guard(tags []string) GuardState {
	var g GuardState
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		switch {
		case tag == LegacyGuardTag:
			g.Legacy = true
		case strings.HasPrefix(tag, GuardPrefix) && len(tag) > len(GuardPrefix):
			if v := tag[len(GuardPrefix):]; !slices.Contains(g.Values, v) {
				g.Values = append(g.Values, v)
			}
		}
	}
	return g
}

// NormalizeValue folds a tracking value into tag-safe form: lower case, every
// run of characters outside [a-z0-9] collapsed to one underscore.
func NormalizeValue(v string) string {
	var b strings.Builder
	underscore := false
	for _, r := range strings.ToLower(strings.TrimSpace(v)) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			underscore = false
			continue
		}
		if !underscore && b.Len() > 0 {
			b.WriteByte('_')
			underscore = true
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}

// GuardTag returns the guard tag for a raw tracking value.
func GuardTag(value string) string {
	return GuardPrefix + NormalizeValue(value)
}

// Input is the per-ticket state the machine reads.
type Input struct {
	Tracking       string
	Tags           []string
	LastPublicBody string
}

// Plan is the decided action. A zero Plan (NoTracking) changes nothing.
type Plan struct {
	Kind     Kind
	Tracking string
	// Public is set when a customer-visible message must be posted.
	Public     bool
	AddTags    []string
	RemoveTags []string
	Status     domain.Status
}

// Noop reports whether the plan changes nothing.
func (p Plan) Noop() bool {
	return p.Kind == NoTracking || p.Kind == AlreadyAnnounced
}

// Decide computes the plan from scratch; there is no memory across calls.
func Decide(in Input, replacementSentTag string) Plan {
	tracking := strings.TrimSpace(in.Tracking)
	value := NormalizeValue(tracking)
	if value == "" {
		return Plan{Kind: NoTracking}
	}

	guard := Guard(in.Tags)
	if guard.Announced(value) {
		if stale := staleTags(guard, value); len(stale) > 0 {
			return Plan{Kind: GuardCleanup, Tracking: tracking, RemoveTags: stale}
		}
		return Plan{Kind: AlreadyAnnounced, Tracking: tracking}
	}

	plan := Plan{
		Tracking:   tracking,
		AddTags:    addTags(GuardPrefix+value, replacementSentTag),
		RemoveTags: staleTags(guard, value),
		Status:     domain.StatusSolved,
	}
	switch {
	case Mentions(in.LastPublicBody, tracking):
		plan.Kind = RetroTag
	case guard.Legacy:
		plan.Kind = RetroTag
	case len(guard.Values) > 0:
		plan.Kind = Correction
		plan.Public = true
	default:
		plan.Kind = FirstAnnouncement
		plan.Public = true
	}
	return plan
}

// Mentions reports whether body contains value as a standalone token:
// case-insensitive, with no letter or digit touching it on either side.
func Mentions(body, value string) bool {
	body, value = strings.ToLower(body), strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return false
	}
	for from := 0; from <= len(body)-len(value); {
		i := strings.Index(body[from:], value)
		if i < 0 {
			return false
		}
		start, end := from+i, from+i+len(value)
		before, _ := utf8.DecodeLastRuneInString(body[:start])
		after, _ := utf8.DecodeRuneInString(body[end:])
		if !isWordRune(before) && !isWordRune(after) {
			return true
		}
		_, size := utf8.DecodeRuneInString(body[start:])
		from = start + size
	}
	return false
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// Apply returns tags with the plan's delta applied. The input is not modified.
func Apply(tags []string, p Plan) []string {
	out := make([]string, 0, len(tags)+len(p.AddTags))
	for _, t := range tags {
		if !slices.Contains(p.RemoveTags, t) && !slices.Contains(out, t) {
			out = append(out, t)
		}
	}
	for _, t := range p.AddTags {
		if !slices.Contains(out, t) {
			out = append(out, t)
		}
	}
	return out
}

func addTags(guardTag, replacementSentTag string) []string {
	if replacementSentTag == "" {
		return []string{guardTag}
	}
	return []string{replacementSentTag, guardTag}
}

func staleTags(guard GuardState, current string) []string {
	var out []string
	for _, v := range guard.Values {
		if v != current {
			out = append(out, GuardPrefix+v)
		}
	}
	if guard.Legacy {
		out = append(out, LegacyGuardTag)
	}
	return out
}
