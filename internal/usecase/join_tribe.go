package usecase

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/matcreates/tribe-sub001/internal/entity"
	"github.com/matcreates/tribe-sub001/internal/infra/mail"
)

type JoinTribeUseCase struct {
	Tenants     entity.TenantRepositoryInterface
	Subscribers entity.SubscriberRepositoryInterface
	Mailer      VerificationSender
	Policy      entity.Policy
	BaseURL     string
	Logger      zerolog.Logger
}

func NewJoinTribeUseCase(
	tenants entity.TenantRepositoryInterface,
	subscribers entity.SubscriberRepositoryInterface,
	mailer VerificationSender,
	policy entity.Policy,
	baseURL string,
	logger zerolog.Logger,
) *JoinTribeUseCase {
	return &JoinTribeUseCase{
		Tenants:     tenants,
		Subscribers: subscribers,
		Mailer:      mailer,
		Policy:      policy,
		BaseURL:     baseURL,
		Logger:      logger,
	}
}

// Execute adds an unverified subscriber and mails the confirmation link.
// If the mail cannot be sent the subscriber row is removed again so the
// same address can retry.
func (uc *JoinTribeUseCase) Execute(ctx context.Context, input JoinTribeInput) (*JoinTribeOutput, error) {
	input.Email = entity.NormalizeEmail(input.Email)
	if errs := ValidateStruct(input); len(errs) > 0 {
		return nil, validationFailure(errs)
	}

	tenant, err := uc.Tenants.FindBySlug(ctx, input.Slug)
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

	sub, err := entity.NewSubscriber(tenant.ID, input.Email)
	if err != nil {
		return nil, &DomainError{Code: CodeValidation, Message: err.Error()}
	}

	txn := NewTransaction()
	txn.AddOperation("create_subscriber", func(ctx context.Context) error {
		return uc.Subscribers.Create(ctx, sub)
	})
	txn.AddCompensation("delete_subscriber", func(ctx context.Context) error {
		return uc.Subscribers.Delete(ctx, sub.TenantID, sub.ID)
	})
	txn.AddOperation("send_verification", func(ctx context.Context) error {
		return uc.Mailer.SendVerification(ctx, sub.Email, tenant.SenderName(), mail.VerifyURL(uc.BaseURL, sub.VerificationToken))
	})

	if err := txn.Execute(ctx); err != nil {
		if errors.Is(err, entity.ErrEmailAlreadyExists) {
			return nil, &DomainError{Code: CodeAlreadySubscribed, Message: "this email is already in the tribe"}
		}
		return nil, &TechnicalError{Code: CodeDelivery, Message: "join tribe", Err: err}
	}

	uc.Logger.Info().Str("tribe_id", tenant.ID).Str("subscriber_id", sub.ID).Msg("subscriber joined, pending verification")
	return &JoinTribeOutput{SubscriberID: sub.ID, Status: "pending_verification"}, nil
}
