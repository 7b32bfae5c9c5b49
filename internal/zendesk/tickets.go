package zendesk

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/divitize/divitize-zendesk-bot/internal/domain"
)

// ListRecentTickets returns one page of tickets, most recently updated first.
func (c *Client) ListRecentTickets(ctx context.Context, limit int) ([]domain.Ticket, error) {
	q := url.Values{}
	q.Set("sort_by", "updated_at")
	q.Set("sort_order", "desc")
	if limit > 0 {
		q.Set("per_page", strconv.Itoa(limit))
	}

	var resp ticketListResponse
	if err := c.do(ctx, http.MethodGet, "/tickets.json?"+q.Encode(), nil, &resp); err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	out := make([]domain.Ticket, 0, len(resp.Tickets))
	for _, t := range resp.Tickets {
		out = append(out, t.toDomain())
	}
	return out, nil
}

// GetTicket fetches one ticket.
func (c *Client) GetTicket(ctx context.Context, id int64) (domain.Ticket, error) {
	var resp ticketResponse
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/tickets/%d.json", id), nil, &resp); err != nil {
		return domain.Ticket{}, fmt.Errorf("get ticket %d: %w", id, err)
	}
	return resp.Ticket.toDomain(), nil
}

// ListComments returns the whole thread, oldest first, following next_page links.
func (c *Client) ListComments(ctx context.Context, ticketID int64) ([]domain.Comment, error) {
	var out []domain.Comment
	path := fmt.Sprintf("/tickets/%d/comments.json", ticketID)
	for page := 0; path != "" && page < maxCommentPages; page++ {
		var resp commentListResponse
		if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
			return nil, fmt.Errorf("list comments for ticket %d: %w", ticketID, err)
		}
		for _, cm := range resp.Comments {
			out = append(out, cm.toDomain())
		}
		path = resp.NextPage
	}
	return out, nil
}

// GetUserName returns the display name of a user.
func (c *Client) GetUserName(ctx context.Context, userID int64) (string, error) {
	var resp userResponse
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/users/%d.json", userID), nil, &resp); err != nil {
		return "", fmt.Errorf("get user %d: %w", userID, err)
	}
	return resp.User.Name, nil
}

// UpdateTicket appends a comment, applies a tag delta and optionally changes status.
func (c *Client) UpdateTicket(ctx context.Context, id int64, u domain.TicketUpdate) error {
	var p ticketUpdatePayload
	if u.Comment != "" {
		p.Ticket.Comment = &commentPayload{Body: u.Comment, Public: u.Public}
	}
	p.Ticket.AdditionalTags = u.AddTags
	p.Ticket.RemoveTags = u.RemoveTags
	p.Ticket.Status = string(u.Status)

	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/tickets/%d.json", id), p, nil); err != nil {
		return fmt.Errorf("update ticket %d: %w", id, err)
	}
	return nil
}

// SetTags replaces the ticket's whole tag set. The tags endpoint only
// replaces on POST; PUT there appends.
func (c *Client) SetTags(ctx context.Context, id int64, tags []string) error {
	if tags == nil {
		tags = []string{}
	}
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/tickets/%d/tags.json", id), tagsPayload{Tags: tags}, nil); err != nil {
		return fmt.Errorf("set tags on ticket %d: %w", id, err)
	}
	return nil
}
