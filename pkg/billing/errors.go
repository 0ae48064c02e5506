package billing

import (
	"errors"
	"fmt"
)

var (
	ErrSubscriptionNotFound      = errors.New("subscription not found")
	ErrSubscriptionAlreadyExists = errors.New("subscription already exists")
	ErrPlanNotFound              = errors.New("product plan not found")
	ErrInvalidPlanConfiguration  = errors.New("invalid product plan configuration")
	ErrFailedToLoadPlans         = errors.New("failed to load product plans")
	ErrNotPaidPlan               = errors.New("plan is not a paid plan")

	ErrLimitExceeded       = errors.New("usage limit exceeded")
	ErrSubscriptionBlocked = errors.New("subscription blocked")

	ErrInvalidSignature   = errors.New("webhook signature verification failed")
	ErrInvalidPayload     = errors.New("invalid webhook payload")
	ErrProviderError      = errors.New("billing provider error")
	ErrCheckoutNotEnabled = errors.New("checkout provider not configured")
	ErrWebhooksNotEnabled = errors.New("webhook verifier not configured")
	ErrExternalIDMismatch = errors.New("external subscription belongs to another subscription")
	ErrInvalidUsageDelta  = errors.New("usage delta must be positive")
)

// UsageLimitError is returned by the gate when the quota of the current
// period is used up.
type UsageLimitError struct {
	Used  int64
	Limit int64
}

func (e *UsageLimitError) Error() string {
	return fmt.Sprintf("usage limit exceeded: %d of %d used", e.Used, e.Limit)
}

func (e *UsageLimitError) Is(target error) bool {
	return target == ErrLimitExceeded
}

// SubscriptionBlockedError is returned by the gate when billing state blocks
// access regardless of quota (payment permanently failing).
type SubscriptionBlockedError struct {
	Status Status
}

func (e *SubscriptionBlockedError) Error() string {
	return fmt.Sprintf("subscription blocked (status %s): update payment method", e.Status)
}

func (e *SubscriptionBlockedError) Is(target error) bool {
	return target == ErrSubscriptionBlocked
}
