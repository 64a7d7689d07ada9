package resend

import (
	"strings"
	"time"

	"github.com/matcreates/tribe-sub001/internal/entity"
)

const EventEmailReceived = "email.received"

// WebhookEvent is the envelope Resend posts for inbound mail. Data carries
// metadata only; the body has to be fetched with FetchReceived.
type WebhookEvent struct {
	Type      string      `json:"type"`
	CreatedAt time.Time   `json:"created_at"`
	Data      WebhookData `json:"data"`
}

type WebhookData struct {
	EmailID   string   `json:"email_id"`
	From      string   `json:"from"`
	To        []string `json:"to"`
	Subject   string   `json:"subject"`
	MessageID string   `json:"message_id"`
}

// ReceivedEmail is the full inbound message returned by
// GET /emails/receiving/{id}.
type ReceivedEmail struct {
	ID        string            `json:"id"`
	From      string            `json:"from"`
	To        []string          `json:"to"`
	Subject   string            `json:"subject"`
	Text      string            `json:"text"`
	HTML      string            `json:"html"`
	Headers   map[string]string `json:"headers"`
	CreatedAt time.Time         `json:"created_at"`
}

func (e *ReceivedEmail) header(name string) string {
	for k, v := range e.Headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

// ToInboundEvent merges webhook metadata with the fetched content. Fields
// missing from the fetched message fall back to the webhook.
func ToInboundEvent(ev WebhookEvent, full *ReceivedEmail) entity.InboundEvent {
	out := entity.InboundEvent{
		ProviderID: ev.Data.EmailID,
		From:       ev.Data.From,
		To:         ev.Data.To,
		Subject:    ev.Data.Subject,
		ReceivedAt: ev.CreatedAt,
	}
	if full == nil {
		return out
	}

	if full.From != "" {
		out.From = full.From
	}
	if len(full.To) > 0 {
		out.To = full.To
	}
	if full.Subject != "" {
		out.Subject = full.Subject
	}
	if !full.CreatedAt.IsZero() {
		out.ReceivedAt = full.CreatedAt
	}
	out.Text = full.Text
	out.HTML = full.HTML
	out.InReplyTo = full.header("In-Reply-To")
	if refs := full.header("References"); refs != "" {
		out.References = strings.Fields(refs)
	}
	return out
}
