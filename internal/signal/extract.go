// Package signal extracts the facts the classifier works from: order
// numbers, links, measurements, photo presence and vocabulary hits.
//
// Extraction is total. Empty or malformed input yields an empty Set.
package signal

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/divitize/divitize-zendesk-bot/internal/domain"
	"golang.org/x/text/unicode/norm"
)

var (
	orderPattern       = regexp.MustCompile(`\b\d{3}-\d{7}-\d{7}\b`)
	urlPattern         = regexp.MustCompile(`(?i)https?://[^\s)\]}>]+`)
	unitWordPattern    = regexp.MustCompile(`(?i)\b(?:inches|inch)\b|(\d)"`)
	measurementPattern = regexp.MustCompile(`(?i)\b\d{1,2}(?:[.,]\d+)?\s*[x×]\s*\d{1,2}(?:[.,]\d+)?\s*[x×]\s*\d{1,2}(?:[.,]\d+)?`)
	metricUnitPattern  = regexp.MustCompile(`(?i)(\d)\s*(?:mm|cm)\b`)
	formNamePattern    = regexp.MustCompile(`(?im)^[ \t]*name[ \t]*:[ \t]*(\S[^\n]*)$`)
	whitespacePattern  = regexp.MustCompile(`\s+`)
)

// Input is everything the extractor reads. Thread is the concatenated
// thread text (every comment body plus the subject).
//
// RequesterText holds only what the customer wrote. Links and measurements
// are read from it so that a carrier link in an agent reply or a bot note
// does not count as the customer's bag link. When empty, Thread is used.
// Comments should likewise be limited to the requester's own comments.
type Input struct {
	Subject         string
	Thread          string
	RequesterText   string
	Message         string
	LastAttachments []domain.Attachment
	Comments        []domain.Comment
}

// Set is the derived, per-evaluation signal set.
type Set struct {
	OrderNumber     string
	HasURL          bool
	HasMeasurements bool
	LastHasPhoto    bool
	AnyHasPhoto     bool
	// FormName is the value of a "Name:" line from a contact-form submission.
	FormName string
	// Hits holds, per vocabulary name, the terms found in the last message.
	Hits map[string][]Match
	// Keywords are the concrete size/colour/chain mentions of the last
	// message in encounter order, overlaps removed.
	Keywords []Match
}

// Hit reports whether the named vocabulary matched the last message.
func (s Set) Hit(vocab string) bool {
	return len(s.Hits[vocab]) > 0
}

// Labels returns the distinct labels the named vocabulary matched.
func (s Set) Labels(vocab string) []string {
	return UniqueLabels(s.Hits[vocab], 0)
}

// HasLabel reports whether the named vocabulary matched a term with label.
func (s Set) HasLabel(vocab, label string) bool {
	for _, m := range s.Hits[vocab] {
		if m.Label == label {
			return true
		}
	}
	return false
}

// Extract computes the signal set. It never panics on odd input.
func Extract(in Input) Set {
	thread := Normalize(in.Subject + " " + in.Thread)
	message := Normalize(in.Message)
	sizeText := StripMetricUnits(message)
	evidence := thread
	if strings.TrimSpace(in.RequesterText) != "" {
		evidence = Normalize(in.Subject + " " + in.RequesterText)
	}

	set := Set{
		OrderNumber:     ExtractOrderNumber(thread),
		HasURL:          urlPattern.MatchString(evidence),
		HasMeasurements: HasMeasurements(evidence),
		LastHasPhoto:    HasPhoto(in.LastAttachments),
		AnyHasPhoto:     AnyCommentHasPhoto(in.Comments),
		FormName:        ExtractFormName(in.Thread),
		Hits:            make(map[string][]Match, len(classified)),
	}

	for _, v := range classified {
		text := message
		if v == Size {
			text = sizeText
		}
		if found := v.FindAll(text); len(found) > 0 {
			set.Hits[v.Name] = found
		}
	}
	set.Keywords = FindAll(sizeText, keywordVocabs...)
	return set
}

// Normalize folds text into the canonical form every matcher expects:
// NFC, straight quotes, single spaces, lower case.
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	text = norm.NFC.String(text)
	text = strings.NewReplacer("’", "'", "‘", "'", "“", `"`, "”", `"`).Replace(text)
	text = whitespacePattern.ReplaceAllString(text, " ")
	return strings.ToLower(strings.TrimSpace(text))
}

// StripMetricUnits removes "mm"/"cm" directly after a number so a
// measurement is not read as the size token "MM".
func StripMetricUnits(text string) string {
	return metricUnitPattern.ReplaceAllString(text, "$1")
}

// ExtractOrderNumber returns the first marketplace order number in text, or "".
func ExtractOrderNumber(text string) string {
	if text == "" {
		return ""
	}
	return orderPattern.FindString(strings.ReplaceAll(text, "\n", " "))
}

// HasURL reports whether text contains a link.
func HasURL(text string) bool {
	return urlPattern.MatchString(text)
}

// HasMeasurements reports whether text contains an L x W x H triple.
func HasMeasurements(text string) bool {
	if text == "" {
		return false
	}
	return measurementPattern.MatchString(unitWordPattern.ReplaceAllString(text, "$1"))
}

// IsPhoto reports whether an attachment is an image or a PDF.
func IsPhoto(a domain.Attachment) bool {
	ct := strings.ToLower(strings.TrimSpace(a.ContentType))
	return strings.HasPrefix(ct, "image/") || strings.HasPrefix(ct, "application/pdf")
}

// HasPhoto reports whether any attachment is an image or a PDF.
func HasPhoto(attachments []domain.Attachment) bool {
	for _, a := range attachments {
		if IsPhoto(a) {
			return true
		}
	}
	return false
}

// AnyCommentHasPhoto reports whether any comment in the thread carries a photo.
func AnyCommentHasPhoto(comments []domain.Comment) bool {
	for _, c := range comments {
		if HasPhoto(c.Attachments) {
			return true
		}
	}
	return false
}

// ExtractFormName returns the first word of a "Name:" line, or "".
func ExtractFormName(thread string) string {
	m := formNamePattern.FindStringSubmatch(norm.NFC.String(thread))
	if m == nil {
		return ""
	}
	fields := strings.Fields(m[1])
	if len(fields) == 0 {
		return ""
	}
	name := strings.TrimFunc(fields[0], func(r rune) bool {
		return !unicode.IsLetter(r) && r != '-' && r != '\''
	})
	return name
}
