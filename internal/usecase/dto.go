package usecase

import (
	"time"

	"github.com/matcreates/tribe-sub001/internal/entity"
)

const (
	ModeDraft    = "draft"
	ModeSchedule = "schedule"
	ModeSendNow  = "send_now"
)

type CreateCampaignInput struct {
	TenantID     string     `json:"tribe_id" validate:"required"`
	Subject      string     `json:"subject" validate:"required,max=200"`
	Body         string     `json:"body" validate:"required,max=100000"`
	Filter       string     `json:"recipient_filter" validate:"omitempty,oneof=all verified non-verified"`
	AllowReplies *bool      `json:"allow_replies"`
	Mode         string     `json:"mode" validate:"required,oneof=draft schedule send_now"`
	ScheduledAt  *time.Time `json:"scheduled_at" validate:"required_if=Mode schedule"`
}

type CreateCampaignOutput struct {
	Campaign *entity.Campaign `json:"campaign"`
	Dispatch *CampaignResult  `json:"dispatch,omitempty"`
}

// TickResult is what one scheduler tick reports to its trigger.
type TickResult struct {
	Processed int              `json:"processed"`
	Results   []CampaignResult `json:"results"`
}

const StatusSkipped = "skipped"

type CampaignResult struct {
	ID             string               `json:"id"`
	Status         string               `json:"status"`
	RecipientCount *int                 `json:"recipientCount,omitempty"`
	Failed         int                  `json:"failed,omitempty"`
	Error          string               `json:"error,omitempty"`
	Failures       []entity.SendFailure `json:"failures,omitempty"`
}

type JoinTribeInput struct {
	Slug  string `json:"slug" validate:"required"`
	Email string `json:"email" validate:"required,email,max=254"`
}

type JoinTribeOutput struct {
	SubscriberID string `json:"subscriber_id"`
	Status       string `json:"status"`
}

type VerifySubscriberOutput struct {
	TenantSlug string `json:"tribe_slug"`
	Email      string `json:"email"`
}
