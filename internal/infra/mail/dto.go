package mail

import "github.com/matcreates/tribe-sub001/internal/entity"

// Envelope is one fully addressed message handed to a Transport.
type Envelope struct {
	FromName  string
	From      string
	To        string
	ReplyTo   string
	Subject   string
	HTML      string
	Text      string
	MessageID string
	Headers   map[string]string
}

type BulkInput struct {
	CampaignID   string
	Recipients   []entity.Recipient
	Subject      string
	HTMLBody     string
	TextBody     string
	SenderName   string
	BaseURL      string
	Signature    string
	AllowReplies bool
}

type BulkResult struct {
	SentCount int
	Delivered []entity.Delivery
	Errors    []entity.SendFailure
}
