package triage

import "github.com/divitize/divitize-zendesk-bot/internal/domain"

// Reasons a ticket gets no draft this pass.
const (
	SkipTerminal     = "terminal_status"
	SkipEmptyThread  = "empty_thread"
	SkipNotRequester = "last_comment_not_requester"
	SkipDraftPending = "draft_pending"
)

// Gate decides whether a draft should be composed for the snapshot. It
// returns "" when drafting may proceed, otherwise the skip reason.
func Gate(s *domain.Snapshot, draftTag string) string {
	if s.Ticket.Status.IsTerminal() {
		return SkipTerminal
	}
	last := s.LastComment()
	if last == nil {
		return SkipEmptyThread
	}
	if !last.Public || last.AuthorID != s.Ticket.RequesterID {
		return SkipNotRequester
	}
	if draftTag != "" && s.Ticket.HasTag(draftTag) && !requesterWroteAfterLastNote(s) {
		return SkipDraftPending
	}
	return ""
}

// requesterWroteAfterLastNote reports whether a public requester comment
// follows the most recent internal note. Without any internal note the
// existing draft tag cannot be explained, so the answer is false.
func requesterWroteAfterLastNote(s *domain.Snapshot) bool {
	lastNote := -1
	for i, c := range s.Comments {
		if !c.Public {
			lastNote = i
		}
	}
	if lastNote < 0 {
		return false
	}
	for _, c := range s.Comments[lastNote+1:] {
		if c.Public && c.AuthorID == s.Ticket.RequesterID {
			return true
		}
	}
	return false
}
