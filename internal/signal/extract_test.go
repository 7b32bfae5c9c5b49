package signal

import (
	"slices"
	"testing"

	"github.com/divitize/divitize-zendesk-bot/internal/domain"
)

func TestExtractOrderNumber(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want string
	}{
		{"plain", "my order 123-4567890-1234567 arrived", "123-4567890-1234567"},
		{"first wins", "123-4567890-1234567 and 999-9999999-9999999", "123-4567890-1234567"},
		{"across newline", "order:\n123-4567890-1234567", "123-4567890-1234567"},
		{"too many digits", "1234-4567890-1234567", ""},
		{"glued to letters", "x123-4567890-1234567x", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ExtractOrderNumber(tt.text); got != tt.want {
				t.Errorf("ExtractOrderNumber(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestHasMeasurements(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		want bool
	}{
		{"it is 10x5x3", true},
		{"10 X 5 X 3", true},
		{"10.5 × 6 × 3,5", true},
		{"10 inches x 5 inches x 3 inches", true},
		{`10" x 5" x 3"`, true},
		{"10x5", false},
		{"123x45x6", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := HasMeasurements(tt.text); got != tt.want {
			t.Errorf("HasMeasurements(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestHasURL(t *testing.T) {
	t.Parallel()

	if !HasURL("see https://shop.example.com/bag?id=1 thanks") {
		t.Error("expected https link to be detected")
	}
	if !HasURL("(http://example.com)") {
		t.Error("expected bracketed link to be detected")
	}
	if HasURL("www.example.com") {
		t.Error("expected scheme-less text not to count as a link")
	}
}

func TestPhotoPresence(t *testing.T) {
	t.Parallel()

	comments := []domain.Comment{
		{Body: "hi", Attachments: []domain.Attachment{{ContentType: "image/jpeg"}}},
		{Body: "and again", Attachments: []domain.Attachment{{ContentType: "text/plain"}}},
	}
	set := Extract(Input{
		Thread:          "hi and again",
		Message:         "and again",
		LastAttachments: comments[1].Attachments,
		Comments:        comments,
	})
	if set.LastHasPhoto {
		t.Error("last comment carries no photo")
	}
	if !set.AnyHasPhoto {
		t.Error("first comment carries a photo")
	}
	if !IsPhoto(domain.Attachment{ContentType: "Application/PDF"}) {
		t.Error("expected PDF to count as a photo")
	}
}

func TestSizeTokenBoundaries(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		message string
		want    bool
	}{
		{"free-standing abbreviation", "i need the pm size", true},
		{"inside another word", "i sent it at 5pm yesterday", false},
		{"inside unrelated word", "smallest detail", false},
		{"millimetres are not a size", "the gap is 25 mm wide", false},
		{"plain size word", "please send a medium", true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			set := Extract(Input{Message: tt.message, Thread: tt.message})
			if got := set.Hit(VocabSize); got != tt.want {
				t.Errorf("size hit for %q = %v, want %v (hits %v)", tt.message, got, tt.want, set.Hits[VocabSize])
			}
		})
	}
}

func TestKeywordsEncounterOrderAndOverlap(t *testing.T) {
	t.Parallel()

	set := Extract(Input{Message: "Please send a dark brown MINI with a golden chain"})
	got := UniqueLabels(set.Keywords, 0)
	want := []string{"dark brown", "mini", "gold", "chain"}
	if !slices.Equal(got, want) {
		t.Fatalf("keywords = %v, want %v", got, want)
	}
	if got := UniqueLabels(set.Keywords, 3); len(got) != 3 {
		t.Fatalf("capped keywords = %v, want 3 entries", got)
	}
}

func TestUnicodeWholeWord(t *testing.T) {
	t.Parallel()

	set := Extract(Input{Message: "La tracolla è troppo corta, la vorrei più corta"})
	if !set.Hit(VocabChain) {
		t.Error("expected tracolla to hit the chain vocabulary")
	}
	if !set.HasLabel(VocabShort, "shorter") {
		t.Errorf("expected più corta to hit the short vocabulary, got %v", set.Hits[VocabShort])
	}
}

func TestExtractFormName(t *testing.T) {
	t.Parallel()

	thread := "You received a new message from your online store's contact form.\nName: Giulia Rossi\nEmail: g@example.com"
	if got := ExtractFormName(thread); got != "Giulia" {
		t.Errorf("ExtractFormName = %q, want Giulia", got)
	}
	if got := ExtractFormName("Product Name: Neverfull"); got != "" {
		t.Errorf("ExtractFormName picked up a non-name field: %q", got)
	}
}

func TestExtractEmptyInput(t *testing.T) {
	t.Parallel()

	set := Extract(Input{})
	if set.OrderNumber != "" || set.HasURL || set.HasMeasurements || set.LastHasPhoto || set.AnyHasPhoto {
		t.Errorf("expected empty signal set, got %+v", set)
	}
	if len(set.Keywords) != 0 || len(set.Hits) != 0 {
		t.Errorf("expected no vocabulary hits, got %v", set.Hits)
	}
}

func TestExtractReadsLinksFromRequesterText(t *testing.T) {
	t.Parallel()

	thread := "Here is the tracking number: https://t.17track.net/en#nums=UK1\nThe new insert does not sit right in my bag either."
	tests := []struct {
		name      string
		requester string
		wantURL   bool
	}{
		{"agent link ignored", "The new insert does not sit right in my bag either.", false},
		{"customer link counted", "This one: https://shop.example/bags/neverfull", true},
		{"falls back to thread", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set := Extract(Input{Thread: thread, RequesterText: tt.requester, Message: tt.requester})
			if set.HasURL != tt.wantURL {
				t.Errorf("HasURL = %v, want %v", set.HasURL, tt.wantURL)
			}
		})
	}
}
