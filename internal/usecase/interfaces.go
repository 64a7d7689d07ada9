package usecase

import (
	"context"

	"github.com/matcreates/tribe-sub001/internal/entity"
	"github.com/matcreates/tribe-sub001/internal/infra/mail"
)

// BulkSender delivers one batch of a campaign.
type BulkSender interface {
	SendBulk(ctx context.Context, in mail.BulkInput) (*mail.BulkResult, error)
}

type VerificationSender interface {
	SendVerification(ctx context.Context, to, ownerName, verifyURL string) error
}

type RecipientResolver interface {
	Resolve(ctx context.Context, tenantID string, filter entity.RecipientFilter) ([]entity.Recipient, error)
}

// Dispatcher claims a single campaign by id and runs it through the same
// path as a scheduler tick.
type Dispatcher interface {
	DispatchNow(ctx context.Context, campaignID string) (*CampaignResult, error)
}
