package billing

import "time"

// PeriodLength is the length of one billing window.
const PeriodLength = 30 * 24 * time.Hour

// Unlimited marks a usage limit without a cap (-1 chosen for SQL compatibility).
const Unlimited int64 = -1

// DefaultFreeUsageLimit is used when the catalog has no FREE entry for a product.
// A downgrade must never fail because of a catalog miss.
const DefaultFreeUsageLimit int64 = 5

// Plan is the entitlement tier of a subscription.
type Plan string

const (
	PlanFree Plan = "FREE"
	PlanPro  Plan = "PRO"
	PlanMax  Plan = "MAX"
)

// Valid reports whether p is a known plan.
func (p Plan) Valid() bool {
	switch p {
	case PlanFree, PlanPro, PlanMax:
		return true
	default:
		return false
	}
}

// IsPaid reports whether the plan is billed through the provider.
func (p Plan) IsPaid() bool {
	return p.Valid() && p != PlanFree
}

// Status is the provider-derived health of a subscription.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusCanceled Status = "CANCELED"
	StatusPastDue  Status = "PAST_DUE"
	StatusHalted   Status = "HALTED"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusCanceled, StatusPastDue, StatusHalted:
		return true
	default:
		return false
	}
}

// ProviderStatus is the provider's view of a subscription, normalized
// by the provider implementation.
type ProviderStatus string

const (
	ProviderStatusActive    ProviderStatus = "active"
	ProviderStatusCancelled ProviderStatus = "cancelled"
	ProviderStatusCompleted ProviderStatus = "completed"
	ProviderStatusExpired   ProviderStatus = "expired"
	ProviderStatusHalted    ProviderStatus = "halted"
	ProviderStatusPending   ProviderStatus = "pending"
	ProviderStatusUnknown   ProviderStatus = "unknown"
)

// ReconcileResult is the outcome of reconciling one subscription with the provider.
type ReconcileResult string

const (
	ResultRenewed    ReconcileResult = "renewed"
	ResultNoChange   ReconcileResult = "no_change"
	ResultDowngraded ReconcileResult = "downgraded"
	ResultHalted     ReconcileResult = "halted"
	ResultPastDue    ReconcileResult = "past_due"
	ResultAPIError   ReconcileResult = "api_error"
)

// GateOutcome is the admission decision of the usage gate.
type GateOutcome string

const (
	OutcomeAllow          GateOutcome = "allow"
	OutcomeDeny           GateOutcome = "deny"
	OutcomeMutateAndAllow GateOutcome = "mutate_and_allow"
)

// Decision is returned by the usage gate.
// Subscription is the state the decision was taken against, after any mutation.
type Decision struct {
	Outcome      GateOutcome
	Subscription *Subscription
}

// Allowed reports whether the metered operation may proceed.
func (d Decision) Allowed() bool {
	return d.Outcome == OutcomeAllow || d.Outcome == OutcomeMutateAndAllow
}

// CheckoutOptions contains options for creating a checkout session.
type CheckoutOptions struct {
	Email      string // Pre-fill billing email if known
	SuccessURL string // Redirect after successful payment
}
