// Package domain contains core domain types for the triage bot.
package domain

import (
	"slices"
	"strings"
	"time"
)

// Status is the lifecycle state of a ticket in the ticket system.
type Status string

// Ticket statuses as reported by the ticket system.
const (
	StatusNew     Status = "new"
	StatusOpen    Status = "open"
	StatusPending Status = "pending"
	StatusHold    Status = "hold"
	StatusSolved  Status = "solved"
	StatusClosed  Status = "closed"
)

// IsTerminal returns true for statuses the bot never drafts on.
func (s Status) IsTerminal() bool {
	return s == StatusSolved || s == StatusClosed
}

// CustomField is a single (id, value) custom field pair on a ticket.
type CustomField struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}

// Ticket is a read-only snapshot of ticket metadata.
type Ticket struct {
	ID           int64         `json:"id"`
	Status       Status        `json:"status"`
	RequesterID  int64         `json:"requester_id"`
	Subject      string        `json:"subject"`
	Via          string        `json:"via"`
	Tags         []string      `json:"tags"`
	CustomFields []CustomField `json:"custom_fields"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// HasTag reports whether the ticket carries tag.
func (t *Ticket) HasTag(tag string) bool {
	return slices.Contains(t.Tags, tag)
}

// CustomFieldValue returns the trimmed value of the custom field with the given
// id, or "" when the field is absent or empty.
func (t *Ticket) CustomFieldValue(id string) string {
	for _, f := range t.CustomFields {
		if f.ID == id {
			return strings.TrimSpace(f.Value)
		}
	}
	return ""
}

// Attachment is a file attached to a comment.
type Attachment struct {
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
}

// Comment is an immutable entry in a ticket thread.
type Comment struct {
	ID          int64        `json:"id"`
	AuthorID    int64        `json:"author_id"`
	Public      bool         `json:"public"`
	Body        string       `json:"body"`
	Attachments []Attachment `json:"attachments,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

// Snapshot is everything the engine needs to evaluate one ticket.
type Snapshot struct {
	Ticket        Ticket
	Comments      []Comment
	RequesterName string
}

// LastComment returns the most recent comment, or nil for an empty thread.
func (s *Snapshot) LastComment() *Comment {
	if len(s.Comments) == 0 {
		return nil
	}
	return &s.Comments[len(s.Comments)-1]
}

// LastPublicComment returns the most recent public comment, or nil.
func (s *Snapshot) LastPublicComment() *Comment {
	for i := len(s.Comments) - 1; i >= 0; i-- {
		if s.Comments[i].Public {
			return &s.Comments[i]
		}
	}
	return nil
}

// ThreadText joins every comment body and the subject, oldest first, one per line.
func (s *Snapshot) ThreadText() string {
	parts := make([]string, 0, len(s.Comments)+1)
	for _, c := range s.Comments {
		parts = append(parts, c.Body)
	}
	parts = append(parts, s.Ticket.Subject)
	return strings.Join(parts, "\n")
}

// RequesterComments returns the public comments the requester wrote, oldest first.
func (s *Snapshot) RequesterComments() []Comment {
	var out []Comment
	for _, c := range s.Comments {
		if c.Public && c.AuthorID == s.Ticket.RequesterID {
			out = append(out, c)
		}
	}
	return out
}

// RequesterText joins the requester's comment bodies, oldest first.
func (s *Snapshot) RequesterText() string {
	var parts []string
	for _, c := range s.RequesterComments() {
		parts = append(parts, c.Body)
	}
	return strings.Join(parts, "\n")
}

// TicketUpdate is a mutation proposed for one ticket: an optional comment,
// a tag delta and an optional status change.
type TicketUpdate struct {
	Comment    string
	Public     bool
	AddTags    []string
	RemoveTags []string
	Status     Status
}

// Empty reports whether the update changes nothing.
func (u TicketUpdate) Empty() bool {
	return u.Comment == "" && len(u.AddTags) == 0 && len(u.RemoveTags) == 0 && u.Status == ""
}
