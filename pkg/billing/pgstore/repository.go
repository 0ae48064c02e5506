package pgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/quotagate/pkg/billing"
	"github.com/dmitrymomot/quotagate/pkg/pg"
)

const subscriptionColumns = `id, user_id, product_id, plan, status, usage_count, usage_limit,
	current_period_start, current_period_end, COALESCE(external_subscription_id, ''),
	cancel_at_period_end, created_at, updated_at`

// Repository is a PostgreSQL billing.Repository.
type Repository struct {
	db DB
}

var _ billing.Repository = (*Repository)(nil)

// NewRepository creates a Repository. Panics if db is nil.
func NewRepository(db DB) *Repository {
	if db == nil {
		panic("pgstore: DB is required")
	}
	return &Repository{db: db}
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Subscription, error) {
	return r.findOne(ctx, `SELECT `+subscriptionColumns+` FROM subscriptions WHERE id = $1`, id)
}

func (r *Repository) FindByUserProduct(ctx context.Context, userID uuid.UUID, productID string) (*billing.Subscription, error) {
	return r.findOne(ctx, `SELECT `+subscriptionColumns+` FROM subscriptions WHERE user_id = $1 AND product_id = $2`, userID, productID)
}

func (r *Repository) FindByExternalID(ctx context.Context, externalID string) (*billing.Subscription, error) {
	if externalID == "" {
		return nil, billing.ErrSubscriptionNotFound
	}
	return r.findOne(ctx, `SELECT `+subscriptionColumns+` FROM subscriptions WHERE external_subscription_id = $1`, externalID)
}

func (r *Repository) Create(ctx context.Context, sub *billing.Subscription) error {
	_, err := r.db.Exec(ctx, `
INSERT INTO subscriptions (id, user_id, product_id, plan, status, usage_count, usage_limit,
	current_period_start, current_period_end, external_subscription_id,
	cancel_at_period_end, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''), $11, $12, $13)
`,
		sub.ID, sub.UserID, sub.ProductID, string(sub.Plan), string(sub.Status), sub.UsageCount, sub.UsageLimit,
		sub.CurrentPeriodStart, sub.CurrentPeriodEnd, sub.ExternalSubscriptionID,
		sub.CancelAtPeriodEnd, sub.CreatedAt, sub.UpdatedAt,
	)
	if pg.IsDuplicateKeyError(err) {
		return billing.ErrSubscriptionAlreadyExists
	}
	if pg.IsCheckViolationError(err) {
		return errors.Join(ErrConstraintViolation, err)
	}
	if err != nil {
		return fmt.Errorf("failed to insert subscription: %w", err)
	}
	return nil
}

// Update rewrites every mutable column of the row. created_at never changes.
func (r *Repository) Update(ctx context.Context, sub *billing.Subscription) error {
	tag, err := r.db.Exec(ctx, `
UPDATE subscriptions SET
	plan = $2,
	status = $3,
	usage_count = $4,
	usage_limit = $5,
	current_period_start = $6,
	current_period_end = $7,
	external_subscription_id = NULLIF($8, ''),
	cancel_at_period_end = $9,
	updated_at = $10
WHERE id = $1
`,
		sub.ID, string(sub.Plan), string(sub.Status), sub.UsageCount, sub.UsageLimit,
		sub.CurrentPeriodStart, sub.CurrentPeriodEnd, sub.ExternalSubscriptionID,
		sub.CancelAtPeriodEnd, sub.UpdatedAt,
	)
	if pg.IsDuplicateKeyError(err) {
		return billing.ErrExternalIDMismatch
	}
	if pg.IsCheckViolationError(err) {
		return errors.Join(ErrConstraintViolation, err)
	}
	if err != nil {
		return fmt.Errorf("failed to update subscription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return billing.ErrSubscriptionNotFound
	}
	return nil
}

func (r *Repository) IncrementUsage(ctx context.Context, id uuid.UUID, delta int64) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, `
UPDATE subscriptions SET usage_count = usage_count + $2
WHERE id = $1
RETURNING usage_count
`, id, delta).Scan(&count)
	if pg.IsNotFoundError(err) {
		return 0, billing.ErrSubscriptionNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to increment usage: %w", err)
	}
	return count, nil
}

func (r *Repository) ConsumeUsage(ctx context.Context, id uuid.UUID, delta int64) (int64, error) {
	var used, limit int64
	var consumed bool
	err := r.db.QueryRow(ctx, `
WITH cur AS (
    SELECT id, usage_count, usage_limit FROM subscriptions WHERE id = $1 FOR UPDATE
), upd AS (
    UPDATE subscriptions s SET usage_count = s.usage_count + $2
    FROM cur
    WHERE s.id = cur.id AND (cur.usage_limit = -1 OR cur.usage_count + $2 <= cur.usage_limit)
    RETURNING s.id
)
SELECT cur.usage_count, cur.usage_limit, EXISTS (SELECT 1 FROM upd) FROM cur
`, id, delta).Scan(&used, &limit, &consumed)
	if pg.IsNotFoundError(err) {
		return 0, billing.ErrSubscriptionNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to consume usage: %w", err)
	}
	if !consumed {
		return used, &billing.UsageLimitError{Used: used, Limit: limit}
	}
	return used + delta, nil
}

func (r *Repository) ListExpiredPaid(ctx context.Context, endedBefore time.Time, limit int) ([]*billing.Subscription, error) {
	return r.findMany(ctx, `
SELECT `+subscriptionColumns+`
FROM subscriptions
WHERE plan <> 'FREE' AND external_subscription_id IS NOT NULL AND current_period_end < $1
ORDER BY current_period_end
LIMIT $2
`, endedBefore, limit)
}

func (r *Repository) ListHalted(ctx context.Context, updatedBefore time.Time, limit int) ([]*billing.Subscription, error) {
	return r.findMany(ctx, `
SELECT `+subscriptionColumns+`
FROM subscriptions
WHERE status = 'HALTED' AND updated_at < $1
ORDER BY updated_at
LIMIT $2
`, updatedBefore, limit)
}

func (r *Repository) findOne(ctx context.Context, query string, args ...any) (*billing.Subscription, error) {
	sub, err := scanSubscription(r.db.QueryRow(ctx, query, args...))
	if pg.IsNotFoundError(err) {
		return nil, billing.ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load subscription: %w", err)
	}
	return sub, nil
}

func (r *Repository) findMany(ctx context.Context, query string, args ...any) ([]*billing.Subscription, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	defer rows.Close()

	subs := make([]*billing.Subscription, 0)
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	return subs, nil
}

func scanSubscription(row pgx.Row) (*billing.Subscription, error) {
	var (
		sub          billing.Subscription
		plan, status string
	)
	err := row.Scan(
		&sub.ID, &sub.UserID, &sub.ProductID, &plan, &status, &sub.UsageCount, &sub.UsageLimit,
		&sub.CurrentPeriodStart, &sub.CurrentPeriodEnd, &sub.ExternalSubscriptionID,
		&sub.CancelAtPeriodEnd, &sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	sub.Plan = billing.Plan(plan)
	sub.Status = billing.Status(status)
	if !sub.Plan.Valid() || !sub.Status.Valid() {
		return nil, errors.Join(ErrCorruptRow, fmt.Errorf("subscription %s: plan %q status %q", sub.ID, plan, status))
	}
	return &sub, nil
}
