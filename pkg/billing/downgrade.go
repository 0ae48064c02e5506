package billing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrymomot/quotagate/pkg/logger"
)

// Downgrader resets subscriptions to the FREE plan.
type Downgrader struct {
	repo      Repository
	catalog   Catalog
	freeLimit int64
	logger    *slog.Logger
}

// NewDowngrader creates a Downgrader. freeLimit is used when the catalog has
// no FREE entry for the product.
func NewDowngrader(repo Repository, catalog Catalog, freeLimit int64, log *slog.Logger) *Downgrader {
	if log == nil {
		log = slog.Default()
	}
	return &Downgrader{repo: repo, catalog: catalog, freeLimit: freeLimit, logger: log}
}

// Downgrade moves sub to FREE with a fresh anchored period and zero usage,
// and clears the provider linkage. On success sub holds the persisted state.
// Calling it again rewrites the same values.
func (d *Downgrader) Downgrade(ctx context.Context, sub *Subscription, now time.Time) error {
	next := sub.Clone()
	next.Plan = PlanFree
	next.Status = StatusActive
	next.UsageLimit = d.freeLimitFor(ctx, sub.ProductID)
	next.UsageCount = 0
	next.CurrentPeriodStart, next.CurrentPeriodEnd = NextPeriod(sub.CreatedAt, now)
	next.ExternalSubscriptionID = ""
	next.CancelAtPeriodEnd = false
	next.UpdatedAt = now

	if err := d.repo.Update(ctx, next); err != nil {
		return fmt.Errorf("failed to downgrade subscription %s: %w", sub.ID, err)
	}

	d.logger.InfoContext(ctx, "subscription downgraded to free plan",
		logger.SubscriptionID(sub.ID),
		logger.UserID(sub.UserID),
		logger.ProductID(sub.ProductID),
		slog.String("previous_plan", string(sub.Plan)),
		slog.String("previous_status", string(sub.Status)),
	)

	*sub = *next
	return nil
}

func (d *Downgrader) freeLimitFor(ctx context.Context, productID string) int64 {
	plan, err := d.catalog.FindPlan(ctx, productID, PlanFree)
	if err != nil {
		d.logger.WarnContext(ctx, "free plan lookup failed, using fallback limit",
			logger.ProductID(productID),
			slog.Int64("fallback_limit", d.freeLimit),
			logger.Error(err),
		)
		return d.freeLimit
	}
	return plan.UsageLimit
}
