package billing

import (
	"time"

	"github.com/google/uuid"
)

// Subscription is the locally cached billing state of one user for one product.
// There is exactly one Subscription per (UserID, ProductID); it is reset to FREE
// in place instead of being deleted.
type Subscription struct {
	ID                     uuid.UUID
	UserID                 uuid.UUID
	ProductID              string
	Plan                   Plan
	Status                 Status
	UsageCount             int64
	UsageLimit             int64 // -1 represents unlimited
	CurrentPeriodStart     time.Time
	CurrentPeriodEnd       time.Time // exclusive
	ExternalSubscriptionID string    // provider's subscription ID (empty if never linked)
	CancelAtPeriodEnd      bool
	CreatedAt              time.Time // anchor for FREE period boundaries, never changes
	UpdatedAt              time.Time
}

// IsPaid reports whether the subscription is on a paid plan.
func (s *Subscription) IsPaid() bool {
	return s.Plan.IsPaid()
}

// IsLinked reports whether the subscription has a provider subscription attached.
func (s *Subscription) IsLinked() bool {
	return s.ExternalSubscriptionID != ""
}

// PeriodExpiredAt reports whether the current period has ended at now.
func (s *Subscription) PeriodExpiredAt(now time.Time) bool {
	return !now.Before(s.CurrentPeriodEnd)
}

// QuotaExhausted reports whether the usage counter has reached the limit.
func (s *Subscription) QuotaExhausted() bool {
	return s.UsageLimit != Unlimited && s.UsageCount >= s.UsageLimit
}

// Clone returns a copy that can be mutated without touching the original.
func (s *Subscription) Clone() *Subscription {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

// NewFreeSubscription returns a FREE subscription anchored at createdAt.
func NewFreeSubscription(userID uuid.UUID, productID string, limit int64, createdAt time.Time) *Subscription {
	start, end := NextPeriod(createdAt, createdAt)
	return &Subscription{
		ID:                 uuid.New(),
		UserID:             userID,
		ProductID:          productID,
		Plan:               PlanFree,
		Status:             StatusActive,
		UsageLimit:         limit,
		CurrentPeriodStart: start,
		CurrentPeriodEnd:   end,
		CreatedAt:          createdAt,
		UpdatedAt:          createdAt,
	}
}
