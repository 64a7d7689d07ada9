package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/matcreates/tribe-sub001/internal/entity"
)

type CreateCampaignUseCase struct {
	Campaigns   entity.CampaignRepositoryInterface
	Tenants     entity.TenantRepositoryInterface
	Resolver    RecipientResolver
	Dispatcher  Dispatcher
	WeeklyLimit int
	Logger      zerolog.Logger
	Now         func() time.Time
}

func NewCreateCampaignUseCase(
	campaigns entity.CampaignRepositoryInterface,
	tenants entity.TenantRepositoryInterface,
	resolver RecipientResolver,
	dispatcher Dispatcher,
	weeklyLimit int,
	logger zerolog.Logger,
) *CreateCampaignUseCase {
	return &CreateCampaignUseCase{
		Campaigns:   campaigns,
		Tenants:     tenants,
		Resolver:    resolver,
		Dispatcher:  dispatcher,
		WeeklyLimit: weeklyLimit,
		Logger:      logger,
		Now:         time.Now,
	}
}

func (uc *CreateCampaignUseCase) Execute(ctx context.Context, input CreateCampaignInput) (*CreateCampaignOutput, error) {
	input.Subject = strings.TrimSpace(input.Subject)
	if input.Filter == "" {
		input.Filter = string(entity.FilterVerified)
	}

	if errs := ValidateStruct(input); len(errs) > 0 {
		return nil, validationFailure(errs)
	}

	now := uc.Now()
	if input.Mode == ModeSchedule && !input.ScheduledAt.After(now) {
		return nil, validationFailure([]ValidationError{{Field: "scheduled_at", Message: "must be in the future"}})
	}

	tenant, err := uc.Tenants.FindByID(ctx, input.TenantID)
	if errors.Is(err, entity.ErrTenantNotFound) {
		return nil, &DomainError{Code: CodeTenantNotFound, Message: "tribe not found"}
	}
	if err != nil {
		return nil, &TechnicalError{Code: CodeDatabase, Message: "load tribe", Err: err}
	}

	filter := entity.RecipientFilter(input.Filter)
	allowReplies := true
	if input.AllowReplies != nil {
		allowReplies = *input.AllowReplies
	}
	campaign := entity.NewCampaign(tenant.ID, input.Subject, input.Body, filter, allowReplies)

	if input.Mode != ModeDraft {
		if err := uc.checkSendable(ctx, tenant.ID, filter, now); err != nil {
			return nil, err
		}
	}

	var scheduleAt time.Time
	switch input.Mode {
	case ModeSchedule:
		scheduleAt = *input.ScheduledAt
	case ModeSendNow:
		scheduleAt = now
	}

	txn := NewTransaction()
	txn.AddOperation("create_campaign", func(ctx context.Context) error {
		return uc.Campaigns.Create(ctx, campaign)
	})
	txn.AddCompensation("delete_campaign", func(ctx context.Context) error {
		return uc.Campaigns.Delete(ctx, campaign.TenantID, campaign.ID)
	})
	if input.Mode != ModeDraft {
		txn.AddOperation("schedule_campaign", func(ctx context.Context) error {
			return uc.Campaigns.Schedule(ctx, campaign.ID, scheduleAt)
		})
	}

	if err := txn.Execute(ctx); err != nil {
		return nil, &TechnicalError{Code: CodeDatabase, Message: "persist campaign", Err: err}
	}

	if input.Mode != ModeDraft {
		campaign.Status = entity.StatusScheduled
		campaign.ScheduledAt = &scheduleAt
	}

	uc.Logger.Info().
		Str("campaign_id", campaign.ID).
		Str("tribe_id", tenant.ID).
		Str("mode", input.Mode).
		Msg("campaign created")

	out := &CreateCampaignOutput{Campaign: campaign}
	if input.Mode != ModeSendNow {
		return out, nil
	}

	res, err := uc.Dispatcher.DispatchNow(ctx, campaign.ID)
	if err != nil {
		// The campaign stays scheduled and the next tick picks it up.
		uc.Logger.Warn().Err(err).Str("campaign_id", campaign.ID).Msg("immediate dispatch deferred to scheduler")
		return out, nil
	}
	out.Dispatch = res
	campaign.Status = entity.CampaignStatus(res.Status)
	if res.RecipientCount != nil {
		campaign.RecipientCount = *res.RecipientCount
	}
	return out, nil
}

// checkSendable applies the weekly campaign limit and refuses campaigns
// that would reach nobody right now.
func (uc *CreateCampaignUseCase) checkSendable(ctx context.Context, tenantID string, filter entity.RecipientFilter, now time.Time) error {
	if uc.WeeklyLimit > 0 {
		n, err := uc.Campaigns.CountSentOrPendingSince(ctx, tenantID, WeekStart(now))
		if err != nil {
			return &TechnicalError{Code: CodeDatabase, Message: "count campaigns this week", Err: err}
		}
		if n >= uc.WeeklyLimit {
			return &DomainError{
				Code:    CodeWeeklyLimit,
				Message: fmt.Sprintf("you can send up to %d emails per week", uc.WeeklyLimit),
			}
		}
	}

	recipients, err := uc.Resolver.Resolve(ctx, tenantID, filter)
	if err != nil {
		return &TechnicalError{Code: CodeDatabase, Message: "resolve recipients", Err: err}
	}
	if len(recipients) == 0 {
		return &DomainError{Code: CodeNoRecipients, Message: "no subscribers match this recipient filter"}
	}
	return nil
}
