package entity

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type CampaignStatus string

const (
	StatusDraft      CampaignStatus = "draft"
	StatusScheduled  CampaignStatus = "scheduled"
	StatusProcessing CampaignStatus = "processing"
	StatusSent       CampaignStatus = "sent"
	StatusError      CampaignStatus = "error"
)

type RecipientFilter string

const (
	FilterAll         RecipientFilter = "all"
	FilterVerified    RecipientFilter = "verified"
	FilterNonVerified RecipientFilter = "non-verified"
)

func (f RecipientFilter) Valid() bool {
	switch f {
	case FilterAll, FilterVerified, FilterNonVerified:
		return true
	}
	return false
}

// Keeps reports whether a subscriber passes the filter. Unsubscribed
// subscribers never pass, whatever the filter.
func (f RecipientFilter) Keeps(s *Subscriber) bool {
	if s.Unsubscribed {
		return false
	}
	switch f {
	case FilterVerified:
		return s.Verified
	case FilterNonVerified:
		return !s.Verified
	case FilterAll:
		return true
	}
	return false
}

// transitions lists every allowed status change. processing->scheduled is
// only taken by the stale-processing watchdog and error->scheduled only by
// an explicit retry; both are bounded by the attempts counter.
var transitions = map[CampaignStatus][]CampaignStatus{
	StatusDraft:      {StatusScheduled},
	StatusScheduled:  {StatusProcessing},
	StatusProcessing: {StatusSent, StatusError, StatusScheduled},
	StatusError:      {StatusScheduled},
}

func CanTransition(from, to CampaignStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type Campaign struct {
	ID                  string          `json:"id"`
	TenantID            string          `json:"tribe_id"`
	Subject             string          `json:"subject"`
	Body                string          `json:"body"`
	Filter              RecipientFilter `json:"recipient_filter"`
	AllowReplies        bool            `json:"allow_replies"`
	Status              CampaignStatus  `json:"status"`
	ScheduledAt         *time.Time      `json:"scheduled_at,omitempty"`
	RecipientCount      int             `json:"recipient_count"`
	FailedCount         int             `json:"failed_count"`
	OpenCount           int             `json:"open_count"`
	Attempts            int             `json:"attempts"`
	LastError           string          `json:"last_error,omitempty"`
	ProcessingStartedAt *time.Time      `json:"processing_started_at,omitempty"`
	SentAt              *time.Time      `json:"sent_at,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// NewCampaign returns a draft. Scheduling is a separate transition.
func NewCampaign(tenantID, subject, body string, filter RecipientFilter, allowReplies bool) *Campaign {
	now := time.Now()
	return &Campaign{
		ID:           uuid.New().String(),
		TenantID:     tenantID,
		Subject:      subject,
		Body:         body,
		Filter:       filter,
		AllowReplies: allowReplies,
		Status:       StatusDraft,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Outcome is what the dispatcher writes back when a claimed campaign
// finishes. Status must be StatusSent or StatusError.
type Outcome struct {
	Status         CampaignStatus
	RecipientCount int
	FailedCount    int
	Error          string
}

// Reclaimed is one stale processing campaign handled by the watchdog.
type Reclaimed struct {
	ID       string         `json:"id"`
	Status   CampaignStatus `json:"status"`
	Attempts int            `json:"attempts"`
}

type CampaignRepositoryInterface interface {
	Create(ctx context.Context, c *Campaign) error
	Delete(ctx context.Context, tenantID, id string) error
	Schedule(ctx context.Context, id string, at time.Time) error
	Retry(ctx context.Context, tenantID, id string, at time.Time, maxAttempts int) error
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]*Campaign, error)
	ClaimByID(ctx context.Context, id string, now time.Time) (*Campaign, error)
	Heartbeat(ctx context.Context, id string, attempts int, at time.Time) error
	MarkOutcome(ctx context.Context, id string, attempts int, outcome Outcome) error
	ReclaimStale(ctx context.Context, startedBefore time.Time, maxAttempts int) ([]Reclaimed, error)
	FindByID(ctx context.Context, tenantID, id string) (*Campaign, error)
	Get(ctx context.Context, id string) (*Campaign, error)
	CountSentOrPendingSince(ctx context.Context, tenantID string, since time.Time) (int, error)
	IncrementOpenCount(ctx context.Context, id string) error
}

// Delivery is one accepted message, logged so a re-attempted campaign
// skips recipients that already got it.
type Delivery struct {
	Email      string
	DeliveryID string
}

type DeliveryRepositoryInterface interface {
	DeliveredEmails(ctx context.Context, campaignID string) ([]string, error)
	RecordDeliveries(ctx context.Context, campaignID string, deliveries []Delivery) error
}
