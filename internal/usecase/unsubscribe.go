package usecase

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/matcreates/tribe-sub001/internal/entity"
)

type UnsubscribeUseCase struct {
	Subscribers entity.SubscriberRepositoryInterface
	Logger      zerolog.Logger
}

func NewUnsubscribeUseCase(subscribers entity.SubscriberRepositoryInterface, logger zerolog.Logger) *UnsubscribeUseCase {
	return &UnsubscribeUseCase{Subscribers: subscribers, Logger: logger}
}

// Execute is idempotent: a token that was already used still succeeds.
func (uc *UnsubscribeUseCase) Execute(ctx context.Context, token string) error {
	if token == "" {
		return &DomainError{Code: CodeInvalidToken, Message: "invalid unsubscribe link"}
	}

	sub, err := uc.Subscribers.Unsubscribe(ctx, token)
	if errors.Is(err, entity.ErrSubscriberNotFound) {
		return &DomainError{Code: CodeInvalidToken, Message: "invalid unsubscribe link"}
	}
	if err != nil {
		return &TechnicalError{Code: CodeDatabase, Message: "unsubscribe", Err: err}
	}

	uc.Logger.Info().Str("tribe_id", sub.TenantID).Str("subscriber_id", sub.ID).Msg("subscriber unsubscribed")
	return nil
}
