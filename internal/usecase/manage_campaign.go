package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/matcreates/tribe-sub001/internal/entity"
)

// ManageCampaignUseCase covers the author-facing reads and the explicit
// retry of a failed campaign. Every call is scoped to one tribe.
type ManageCampaignUseCase struct {
	Campaigns   entity.CampaignRepositoryInterface
	ReplyRepo   entity.ReplyRepositoryInterface
	MaxAttempts int
	Logger      zerolog.Logger
	Now         func() time.Time
}

func NewManageCampaignUseCase(
	campaigns entity.CampaignRepositoryInterface,
	replies entity.ReplyRepositoryInterface,
	maxAttempts int,
	logger zerolog.Logger,
) *ManageCampaignUseCase {
	return &ManageCampaignUseCase{
		Campaigns:   campaigns,
		ReplyRepo:   replies,
		MaxAttempts: maxAttempts,
		Logger:      logger,
		Now:         time.Now,
	}
}

func (uc *ManageCampaignUseCase) Get(ctx context.Context, tenantID, id string) (*entity.Campaign, error) {
	c, err := uc.Campaigns.FindByID(ctx, tenantID, id)
	if errors.Is(err, entity.ErrCampaignNotFound) {
		return nil, &DomainError{Code: CodeCampaignNotFound, Message: "campaign not found"}
	}
	if err != nil {
		return nil, &TechnicalError{Code: CodeDatabase, Message: "load campaign", Err: err}
	}
	return c, nil
}

func (uc *ManageCampaignUseCase) Replies(ctx context.Context, tenantID, id string) ([]*entity.Reply, error) {
	if _, err := uc.Get(ctx, tenantID, id); err != nil {
		return nil, err
	}

	replies, err := uc.ReplyRepo.ListByCampaign(ctx, tenantID, id)
	if err != nil {
		return nil, &TechnicalError{Code: CodeDatabase, Message: "list replies", Err: err}
	}
	if replies == nil {
		replies = []*entity.Reply{}
	}
	return replies, nil
}

// Retry puts an errored campaign back on the schedule, due immediately.
// Recipients already delivered are skipped when it runs again.
func (uc *ManageCampaignUseCase) Retry(ctx context.Context, tenantID, id string) (*entity.Campaign, error) {
	err := uc.Campaigns.Retry(ctx, tenantID, id, uc.Now(), uc.MaxAttempts)
	switch {
	case errors.Is(err, entity.ErrCampaignNotFound):
		return nil, &DomainError{Code: CodeCampaignNotFound, Message: "campaign not found"}
	case errors.Is(err, entity.ErrInvalidTransition):
		return nil, &DomainError{
			Code:    CodeNotRetryable,
			Message: fmt.Sprintf("only failed campaigns with fewer than %d attempts can be retried", uc.MaxAttempts),
		}
	case err != nil:
		return nil, &TechnicalError{Code: CodeDatabase, Message: "retry campaign", Err: err}
	}

	uc.Logger.Info().Str("campaign_id", id).Str("tribe_id", tenantID).Msg("campaign rescheduled for retry")
	return uc.Get(ctx, tenantID, id)
}

// RecordOpen counts one pixel load. Unknown ids are ignored.
func (uc *ManageCampaignUseCase) RecordOpen(ctx context.Context, id string) error {
	if err := uc.Campaigns.IncrementOpenCount(ctx, id); err != nil {
		return &TechnicalError{Code: CodeDatabase, Message: "record open", Err: err}
	}
	return nil
}
