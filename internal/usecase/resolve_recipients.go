package usecase

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/matcreates/tribe-sub001/internal/entity"
)

type ResolveRecipientsUseCase struct {
	Subscribers entity.SubscriberRepositoryInterface
	Logger      zerolog.Logger
}

func NewResolveRecipientsUseCase(subs entity.SubscriberRepositoryInterface, logger zerolog.Logger) *ResolveRecipientsUseCase {
	return &ResolveRecipientsUseCase{Subscribers: subs, Logger: logger}
}

// Resolve returns the tribe's subscribers that pass filter, in repository
// order, with each address at most once. Unsubscribed rows never pass.
func (uc *ResolveRecipientsUseCase) Resolve(ctx context.Context, tenantID string, filter entity.RecipientFilter) ([]entity.Recipient, error) {
	if !filter.Valid() {
		return nil, &DomainError{Code: CodeValidation, Message: fmt.Sprintf("unknown recipient filter %q", filter)}
	}

	subs, err := uc.Subscribers.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("resolve recipients: %w", err)
	}

	seen := make(map[string]struct{}, len(subs))
	out := make([]entity.Recipient, 0, len(subs))
	for _, s := range subs {
		if !filter.Keeps(s) {
			continue
		}
		key := entity.NormalizeEmail(s.Email)
		if _, dup := seen[key]; dup {
			// (tribe_id, lower(email)) is unique, so this means the data is off.
			uc.Logger.Warn().Str("tribe_id", tenantID).Str("email", key).Msg("duplicate subscriber address")
			continue
		}
		seen[key] = struct{}{}
		out = append(out, entity.Recipient{Email: key, UnsubscribeToken: s.UnsubscribeToken})
	}
	return out, nil
}
