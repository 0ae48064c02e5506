package billing

import (
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/quotagate/pkg/billing"
)

type subscriptionPath struct {
	UserID    uuid.UUID `path:"userID" json:"-"`
	ProductID string    `path:"productID" json:"-"`
}

type usageRequest struct {
	subscriptionPath
	Units int64 `json:"units"`
}

type checkoutRequest struct {
	subscriptionPath
	Plan       billing.Plan `json:"plan"`
	Email      string       `json:"email"`
	SuccessURL string       `json:"success_url"`
}

type verifyRequest struct {
	subscriptionPath
	ExternalSubscriptionID string `json:"external_subscription_id"`
}

// SubscriptionResponse is the public view of a subscription.
type SubscriptionResponse struct {
	ID                     uuid.UUID `json:"id"`
	UserID                 uuid.UUID `json:"user_id"`
	ProductID              string    `json:"product_id"`
	Plan                   string    `json:"plan"`
	Status                 string    `json:"status"`
	UsageCount             int64     `json:"usage_count"`
	UsageLimit             int64     `json:"usage_limit"` // -1 is unlimited
	CurrentPeriodStart     time.Time `json:"current_period_start"`
	CurrentPeriodEnd       time.Time `json:"current_period_end"`
	ExternalSubscriptionID string    `json:"external_subscription_id,omitempty"`
	CancelAtPeriodEnd      bool      `json:"cancel_at_period_end"`
}

func newSubscriptionResponse(sub *billing.Subscription) *SubscriptionResponse {
	if sub == nil {
		return nil
	}
	return &SubscriptionResponse{
		ID:                     sub.ID,
		UserID:                 sub.UserID,
		ProductID:              sub.ProductID,
		Plan:                   string(sub.Plan),
		Status:                 string(sub.Status),
		UsageCount:             sub.UsageCount,
		UsageLimit:             sub.UsageLimit,
		CurrentPeriodStart:     sub.CurrentPeriodStart,
		CurrentPeriodEnd:       sub.CurrentPeriodEnd,
		ExternalSubscriptionID: sub.ExternalSubscriptionID,
		CancelAtPeriodEnd:      sub.CancelAtPeriodEnd,
	}
}

// GateResponse is returned by the gate and usage endpoints.
type GateResponse struct {
	Outcome      string                `json:"outcome"`
	Subscription *SubscriptionResponse `json:"subscription,omitempty"`
	UsageCount   *int64                `json:"usage_count,omitempty"` // set after recording usage
}

// CheckoutResponse carries the hosted checkout link.
type CheckoutResponse struct {
	URL       string    `json:"url"`
	SessionID string    `json:"session_id"`
	ExpiresAt time.Time `json:"expires_at"`
}
