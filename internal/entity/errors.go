package entity

import (
	"errors"
	"fmt"
)

var (
	ErrTenantNotFound     = errors.New("tribe not found")
	ErrCampaignNotFound   = errors.New("campaign not found")
	ErrSubscriberNotFound = errors.New("subscriber not found")
	ErrEmailAlreadyExists = errors.New("email already subscribed to this tribe")
	ErrTokenConsumed      = errors.New("token already used or invalid")
	ErrInvalidTransition  = errors.New("invalid campaign status transition")
)

// TransitionError reports a status change the state machine does not allow.
// It always matches ErrInvalidTransition with errors.Is.
type TransitionError struct {
	CampaignID string
	From       CampaignStatus
	To         CampaignStatus
}

func (e *TransitionError) Error() string {
	if e.From == "" {
		return fmt.Sprintf("campaign %s: cannot move to %s from its current status", e.CampaignID, e.To)
	}
	return fmt.Sprintf("campaign %s: cannot move from %s to %s", e.CampaignID, e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// SendFailure is one recipient the transport refused. Reason is meant for
// support triage and is never shown to authors verbatim.
type SendFailure struct {
	Email  string `json:"email"`
	Reason string `json:"reason"`
}

func (f SendFailure) Error() string {
	return fmt.Sprintf("%s: %s", f.Email, f.Reason)
}
