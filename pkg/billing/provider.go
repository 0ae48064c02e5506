package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Provider is the read side of the external payment provider.
// Implementations wrap the official provider SDK and normalize its statuses;
// a network, auth or decoding failure is returned as an error.
type Provider interface {
	FetchSubscription(ctx context.Context, externalID string) (*ProviderSubscription, error)
}

// ProviderSubscription is an immutable snapshot of a provider subscription.
type ProviderSubscription struct {
	ID             string
	ExternalPlanID string
	Status         ProviderStatus
	PeriodStart    *time.Time // nil when the provider has no active billing period
	PeriodEnd      *time.Time
}

// CheckoutProvider creates hosted checkout sessions.
// The provider handles all payment details, so no card data ever reaches us.
type CheckoutProvider interface {
	CreateCheckoutLink(ctx context.Context, req CheckoutRequest) (*CheckoutLink, error)
}

// CheckoutRequest contains data needed to create a checkout session.
type CheckoutRequest struct {
	PriceID    string // Provider's price identifier (ProductPlan.ExternalPlanID)
	UserID     uuid.UUID
	ProductID  string
	Email      string
	SuccessURL string
}

// CheckoutLink represents a hosted checkout session.
type CheckoutLink struct {
	URL       string
	SessionID string
	ExpiresAt time.Time
}

// WebhookVerifier checks the message authentication signature of a raw webhook body.
type WebhookVerifier interface {
	Verify(ctx context.Context, payload []byte, signature string) (bool, error)
}

// WebhookParser turns a verified raw webhook body into a normalized event.
type WebhookParser interface {
	Parse(payload []byte) (*WebhookEvent, error)
}

// EventType is the normalized billing event type.
// Each provider implementation maps its own event names to these types.
type EventType string

const (
	EventActivated     EventType = "activated"
	EventCharged       EventType = "charged"
	EventCancelled     EventType = "cancelled"
	EventPaymentFailed EventType = "payment_failed"
	EventHalted        EventType = "halted"
	EventIgnored       EventType = "ignored"
)

// WebhookEvent is a normalized provider event.
type WebhookEvent struct {
	ID                     string // provider event id, used for de-duplication
	Type                   EventType
	ProviderEvent          string // original provider event name
	ExternalSubscriptionID string
	ExternalPlanID         string
	UserID                 uuid.UUID // from checkout metadata; uuid.Nil if absent
	ProductID              string    // from checkout metadata; may be empty
	OccurredAt             time.Time
}

// EventDeduper drops exact re-deliveries of the same provider event.
// Claim returns false if the event was already claimed.
type EventDeduper interface {
	Claim(ctx context.Context, eventID string) (bool, error)
	Release(ctx context.Context, eventID string) error
}
