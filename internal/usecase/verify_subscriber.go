package usecase

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/matcreates/tribe-sub001/internal/entity"
)

type VerifySubscriberUseCase struct {
	Tenants     entity.TenantRepositoryInterface
	Subscribers entity.SubscriberRepositoryInterface
	Policy      entity.Policy
	Logger      zerolog.Logger
}

func NewVerifySubscriberUseCase(
	tenants entity.TenantRepositoryInterface,
	subscribers entity.SubscriberRepositoryInterface,
	policy entity.Policy,
	logger zerolog.Logger,
) *VerifySubscriberUseCase {
	return &VerifySubscriberUseCase{
		Tenants:     tenants,
		Subscribers: subscribers,
		Policy:      policy,
		Logger:      logger,
	}
}

// Execute consumes a verification token. Capacity is counted again here,
// right before the subscriber becomes verified.
func (uc *VerifySubscriberUseCase) Execute(ctx context.Context, token string) (*VerifySubscriberOutput, error) {
	if token == "" {
		return nil, &DomainError{Code: CodeInvalidToken, Message: "invalid or expired verification link"}
	}

	sub, err := uc.Subscribers.FindByVerificationToken(ctx, token)
	if errors.Is(err, entity.ErrSubscriberNotFound) {
		return nil, &DomainError{Code: CodeInvalidToken, Message: "invalid or expired verification link"}
	}
	if err != nil {
		return nil, &TechnicalError{Code: CodeDatabase, Message: "load subscriber", Err: err}
	}

	tenant, err := uc.Tenants.FindByID(ctx, sub.TenantID)
	if errors.Is(err, entity.ErrTenantNotFound) {
		return nil, &DomainError{Code: CodeTenantNotFound, Message: "tribe not found"}
	}
	if err != nil {
		return nil, &TechnicalError{Code: CodeDatabase, Message: "load tribe", Err: err}
	}

	verified, err := uc.Subscribers.CountVerified(ctx, tenant.ID)
	if err != nil {
		return nil, &TechnicalError{Code: CodeDatabase, Message: "count subscribers", Err: err}
	}
	if !uc.Policy.CanJoin(tenant, verified) {
		return nil, &DomainError{Code: CodeTribeFull, Message: "this tribe is full"}
	}

	err = uc.Subscribers.ConsumeVerificationToken(ctx, sub.ID, token)
	if errors.Is(err, entity.ErrTokenConsumed) {
		return nil, &DomainError{Code: CodeInvalidToken, Message: "invalid or expired verification link"}
	}
	if err != nil {
		return nil, &TechnicalError{Code: CodeDatabase, Message: "verify subscriber", Err: err}
	}

	uc.Logger.Info().Str("tribe_id", tenant.ID).Str("subscriber_id", sub.ID).Msg("subscriber verified")
	return &VerifySubscriberOutput{TenantSlug: tenant.Slug, Email: sub.Email}, nil
}
