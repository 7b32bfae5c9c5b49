package triage

import (
	"testing"

	"github.com/divitize/divitize-zendesk-bot/internal/domain"
)

const (
	requester = int64(10)
	agentID   = int64(99)
	draftTag  = "bot_draft"
)

func pub(author int64, body string) domain.Comment {
	return domain.Comment{AuthorID: author, Public: true, Body: body}
}

func note(body string) domain.Comment {
	return domain.Comment{AuthorID: agentID, Public: false, Body: body}
}

func TestGate(t *testing.T) {
	tests := []struct {
		name     string
		status   domain.Status
		tags     []string
		comments []domain.Comment
		want     string
	}{
		{
			name:     "requester wrote last",
			status:   domain.StatusOpen,
			comments: []domain.Comment{pub(requester, "hello")},
			want:     "",
		},
		{
			name:     "solved",
			status:   domain.StatusSolved,
			comments: []domain.Comment{pub(requester, "hello")},
			want:     SkipTerminal,
		},
		{
			name:     "closed",
			status:   domain.StatusClosed,
			comments: []domain.Comment{pub(requester, "hello")},
			want:     SkipTerminal,
		},
		{
			name:   "empty thread",
			status: domain.StatusNew,
			want:   SkipEmptyThread,
		},
		{
			name:     "agent replied last",
			status:   domain.StatusOpen,
			comments: []domain.Comment{pub(requester, "hello"), pub(agentID, "hi")},
			want:     SkipNotRequester,
		},
		{
			name:     "internal note last",
			status:   domain.StatusOpen,
			comments: []domain.Comment{pub(requester, "hello"), note("draft")},
			want:     SkipNotRequester,
		},
		{
			name:     "draft tag with requester after note",
			status:   domain.StatusOpen,
			tags:     []string{draftTag},
			comments: []domain.Comment{pub(requester, "hello"), note("draft"), pub(requester, "any news?")},
			want:     "",
		},
		{
			name:     "draft tag without any note",
			status:   domain.StatusOpen,
			tags:     []string{draftTag},
			comments: []domain.Comment{pub(requester, "hello")},
			want:     SkipDraftPending,
		},
		{
			name:     "draft tag with agent reply after note",
			status:   domain.StatusPending,
			tags:     []string{draftTag},
			comments: []domain.Comment{pub(requester, "hello"), note("draft"), pub(agentID, "done"), pub(requester, "thanks")},
			want:     "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := &domain.Snapshot{
				Ticket:   domain.Ticket{ID: 1, Status: tt.status, RequesterID: requester, Tags: tt.tags},
				Comments: tt.comments,
			}
			if got := Gate(snap, draftTag); got != tt.want {
				t.Errorf("Gate() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGateIgnoresDraftTagWhenUnset(t *testing.T) {
	snap := &domain.Snapshot{
		Ticket:   domain.Ticket{Status: domain.StatusOpen, RequesterID: requester, Tags: []string{draftTag}},
		Comments: []domain.Comment{pub(requester, "hello")},
	}
	if got := Gate(snap, ""); got != "" {
		t.Errorf("Gate() = %q, want empty", got)
	}
}
