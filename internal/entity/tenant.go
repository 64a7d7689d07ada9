package entity

import (
	"context"
	"time"
)

// Tenant is a creator's tribe. It owns subscribers and campaigns.
type Tenant struct {
	ID                 string    `json:"id"`
	OwnerName          string    `json:"owner_name"`
	Slug               string    `json:"slug"`
	SubscriptionPlan   string    `json:"subscription_plan"`
	SubscriptionStatus string    `json:"subscription_status"`
	EmailSignature     string    `json:"email_signature"`
	CreatedAt          time.Time `json:"created_at"`
}

func (t *Tenant) Tier() Tier {
	return TierFor(t.SubscriptionPlan, t.SubscriptionStatus)
}

// SenderName is the display name used on outgoing campaign mail.
func (t *Tenant) SenderName() string {
	if t.OwnerName == "" {
		return "Anonymous"
	}
	return t.OwnerName
}

type TenantRepositoryInterface interface {
	FindByID(ctx context.Context, id string) (*Tenant, error)
	FindBySlug(ctx context.Context, slug string) (*Tenant, error)
}
