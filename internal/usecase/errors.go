package usecase

import "errors"

// DomainError is caused by the caller's input or the tenant's state and is
// safe to show to the user.
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

func IsDomainError(err error) bool {
	var de *DomainError
	return errors.As(err, &de)
}

// TechnicalError wraps infrastructure failures. Message is meant for logs;
// callers show a generic message instead.
type TechnicalError struct {
	Code    string
	Message string
	Err     error
}

func (e *TechnicalError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *TechnicalError) Unwrap() error {
	return e.Err
}

func IsTechnicalError(err error) bool {
	var te *TechnicalError
	return errors.As(err, &te)
}

const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeTenantNotFound    = "TENANT_NOT_FOUND"
	CodeCampaignNotFound  = "CAMPAIGN_NOT_FOUND"
	CodeWeeklyLimit       = "WEEKLY_LIMIT_REACHED"
	CodeNoRecipients      = "NO_RECIPIENTS"
	CodeNotRetryable      = "NOT_RETRYABLE"
	CodeNotClaimable      = "NOT_CLAIMABLE"
	CodeTribeFull         = "TRIBE_FULL"
	CodeAlreadySubscribed = "ALREADY_SUBSCRIBED"
	CodeInvalidToken      = "INVALID_TOKEN"
	CodeDatabase          = "DATABASE_ERROR"
	CodeDelivery          = "DELIVERY_ERROR"
)
