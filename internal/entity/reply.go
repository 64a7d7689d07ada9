package entity

import (
	"context"
	"strings"
	"time"
)

type Reply struct {
	ID              string    `json:"id"`
	CampaignID      string    `json:"email_id"`
	SubscriberEmail string    `json:"subscriber_email"`
	Text            string    `json:"reply_text"`
	ReceivedAt      time.Time `json:"received_at"`
}

// InboundEvent is a provider-neutral inbound message, decoded by the
// webhook receiver before it reaches the reply correlator.
type InboundEvent struct {
	ProviderID string    `json:"provider_id"`
	From       string    `json:"from"`
	To         []string  `json:"to"`
	Subject    string    `json:"subject"`
	Text       string    `json:"text"`
	HTML       string    `json:"html"`
	InReplyTo  string    `json:"in_reply_to"`
	References []string  `json:"references"`
	ReceivedAt time.Time `json:"received_at"`
}

type ReplyRepositoryInterface interface {
	Append(ctx context.Context, r *Reply) error
	RecordUnmatched(ctx context.Context, ev InboundEvent, reason string) error
	ListByCampaign(ctx context.Context, tenantID, campaignID string) ([]*Reply, error)
}

const (
	replyAddressPrefix = "reply-"
	messageIDPrefix    = "campaign."
)

// ReplyAddress is the Reply-To mailbox for one campaign. Inbound mail sent
// to it is routed back by CampaignIDFromAddress.
func ReplyAddress(campaignID, domain string) string {
	return replyAddressPrefix + campaignID + "@" + domain
}

// CampaignIDFromAddress extracts the campaign id from a reply mailbox. When
// domain is set the address must belong to it.
func CampaignIDFromAddress(addr, domain string) string {
	addr = strings.ToLower(strings.TrimSpace(addr))
	local, host, ok := strings.Cut(addr, "@")
	if !ok || !strings.HasPrefix(local, replyAddressPrefix) {
		return ""
	}
	if domain != "" && host != strings.ToLower(domain) {
		return ""
	}
	return strings.TrimPrefix(local, replyAddressPrefix)
}

// MessageID mints the Message-ID header for one delivery. The campaign id
// is embedded so In-Reply-To and References can be traced back.
func MessageID(campaignID, nonce, domain string) string {
	return "<" + messageIDPrefix + campaignID + "." + nonce + "@" + domain + ">"
}

func CampaignIDFromMessageID(id string) string {
	id = strings.Trim(strings.TrimSpace(id), "<>")
	local, _, ok := strings.Cut(id, "@")
	if !ok || !strings.HasPrefix(local, messageIDPrefix) {
		return ""
	}
	rest := strings.TrimPrefix(local, messageIDPrefix)
	i := strings.LastIndex(rest, ".")
	if i <= 0 {
		return ""
	}
	return rest[:i]
}
