package zendesk

import (
	"fmt"
	"strconv"
	"time"

	"github.com/divitize/divitize-zendesk-bot/internal/domain"
)

type ticketWire struct {
	ID          int64    `json:"id"`
	Status      string   `json:"status"`
	RequesterID int64    `json:"requester_id"`
	Subject     string   `json:"subject"`
	Tags        []string `json:"tags"`
	Via         struct {
		Channel string `json:"channel"`
	} `json:"via"`
	CustomFields []struct {
		ID    int64 `json:"id"`
		Value any   `json:"value"`
	} `json:"custom_fields"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (w ticketWire) toDomain() domain.Ticket {
	t := domain.Ticket{
		ID:          w.ID,
		Status:      domain.Status(w.Status),
		RequesterID: w.RequesterID,
		Subject:     w.Subject,
		Via:         w.Via.Channel,
		Tags:        w.Tags,
		UpdatedAt:   w.UpdatedAt,
	}
	for _, f := range w.CustomFields {
		t.CustomFields = append(t.CustomFields, domain.CustomField{
			ID:    strconv.FormatInt(f.ID, 10),
			Value: fieldValue(f.Value),
		})
	}
	return t
}

// fieldValue renders a custom field value, which may be a string, number,
// bool or null, as text.
func fieldValue(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

type commentWire struct {
	ID          int64  `json:"id"`
	AuthorID    int64  `json:"author_id"`
	Public      bool   `json:"public"`
	Body        string `json:"body"`
	Attachments []struct {
		FileName    string `json:"file_name"`
		ContentType string `json:"content_type"`
	} `json:"attachments"`
	CreatedAt time.Time `json:"created_at"`
}

func (w commentWire) toDomain() domain.Comment {
	c := domain.Comment{
		ID:        w.ID,
		AuthorID:  w.AuthorID,
		Public:    w.Public,
		Body:      w.Body,
		CreatedAt: w.CreatedAt,
	}
	for _, a := range w.Attachments {
		c.Attachments = append(c.Attachments, domain.Attachment{FileName: a.FileName, ContentType: a.ContentType})
	}
	return c
}

type ticketListResponse struct {
	Tickets  []ticketWire `json:"tickets"`
	NextPage string       `json:"next_page"`
}

type ticketResponse struct {
	Ticket ticketWire `json:"ticket"`
}

type commentListResponse struct {
	Comments []commentWire `json:"comments"`
	NextPage string        `json:"next_page"`
}

type userResponse struct {
	User struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	} `json:"user"`
}

type commentPayload struct {
	Body   string `json:"body"`
	Public bool   `json:"public"`
}

type ticketUpdatePayload struct {
	Ticket struct {
		Comment        *commentPayload `json:"comment,omitempty"`
		AdditionalTags []string        `json:"additional_tags,omitempty"`
		RemoveTags     []string        `json:"remove_tags,omitempty"`
		Status         string          `json:"status,omitempty"`
	} `json:"ticket"`
}

type tagsPayload struct {
	Tags []string `json:"tags"`
}
