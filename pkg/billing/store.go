package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines subscription persistence.
// Implementations must provide last-write-wins single-row atomicity:
// Update writes every field of the record in one statement.
type Repository interface {
	// FindByID returns ErrSubscriptionNotFound if no row exists.
	FindByID(ctx context.Context, id uuid.UUID) (*Subscription, error)

	// FindByUserProduct returns ErrSubscriptionNotFound if no row exists.
	FindByUserProduct(ctx context.Context, userID uuid.UUID, productID string) (*Subscription, error)

	// FindByExternalID returns ErrSubscriptionNotFound if no row is linked to externalID.
	FindByExternalID(ctx context.Context, externalID string) (*Subscription, error)

	// Create returns ErrSubscriptionAlreadyExists if (UserID, ProductID) is taken.
	Create(ctx context.Context, sub *Subscription) error

	// Update overwrites the stored record identified by sub.ID.
	Update(ctx context.Context, sub *Subscription) error

	// IncrementUsage atomically adds delta to the usage counter and returns the new value.
	IncrementUsage(ctx context.Context, id uuid.UUID, delta int64) (int64, error)

	// ConsumeUsage atomically adds delta unless that would take a limited
	// counter past its limit. Then nothing changes and a *UsageLimitError
	// with the current counter is returned.
	ConsumeUsage(ctx context.Context, id uuid.UUID, delta int64) (int64, error)

	// ListExpiredPaid returns paid, provider-linked subscriptions whose period
	// ended before the given time, oldest first.
	ListExpiredPaid(ctx context.Context, endedBefore time.Time, limit int) ([]*Subscription, error)

	// ListHalted returns HALTED subscriptions last updated before the given time, oldest first.
	ListHalted(ctx context.Context, updatedBefore time.Time, limit int) ([]*Subscription, error)
}
