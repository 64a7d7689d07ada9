package entity

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Subscriber struct {
	ID                string    `json:"id"`
	TenantID          string    `json:"tribe_id"`
	Email             string    `json:"email"`
	Verified          bool      `json:"verified"`
	VerificationToken string    `json:"-"`
	Unsubscribed      bool      `json:"unsubscribed"`
	UnsubscribeToken  string    `json:"-"`
	GiftID            string    `json:"gift_id,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// NewSubscriber creates an unverified subscriber with fresh single-use
// verification and lifetime unsubscribe tokens.
func NewSubscriber(tenantID, email string) (*Subscriber, error) {
	s := &Subscriber{
		ID:                uuid.New().String(),
		TenantID:          tenantID,
		Email:             NormalizeEmail(email),
		VerificationToken: uuid.New().String(),
		UnsubscribeToken:  uuid.New().String(),
		CreatedAt:         time.Now(),
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Subscriber) Validate() error {
	if s.TenantID == "" {
		return errors.New("tribe_id is required")
	}
	if s.Email == "" {
		return errors.New("email is required")
	}
	if _, err := mail.ParseAddress(s.Email); err != nil {
		return errors.New("email is invalid")
	}
	if s.UnsubscribeToken == "" {
		return errors.New("unsubscribe token is required")
	}
	return nil
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Recipient is a resolved delivery target for one campaign.
type Recipient struct {
	Email            string `json:"email"`
	UnsubscribeToken string `json:"-"`
}

type SubscriberRepositoryInterface interface {
	Create(ctx context.Context, s *Subscriber) error
	Delete(ctx context.Context, tenantID, id string) error
	ListByTenant(ctx context.Context, tenantID string) ([]*Subscriber, error)
	CountVerified(ctx context.Context, tenantID string) (int, error)
	FindByVerificationToken(ctx context.Context, token string) (*Subscriber, error)
	ConsumeVerificationToken(ctx context.Context, id, token string) error
	Unsubscribe(ctx context.Context, token string) (*Subscriber, error)
}
