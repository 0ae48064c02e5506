package billing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrymomot/quotagate/pkg/logger"
)

// Reconciler brings one subscription in line with the provider's view of it.
// The provider is authoritative whenever the two disagree.
type Reconciler struct {
	repo       Repository
	catalog    Catalog
	provider   Provider
	downgrader *Downgrader
	logger     *slog.Logger
}

// NewReconciler creates a Reconciler.
func NewReconciler(repo Repository, catalog Catalog, provider Provider, downgrader *Downgrader, log *slog.Logger) *Reconciler {
	if log == nil {
		log = slog.Default()
	}
	return &Reconciler{
		repo:       repo,
		catalog:    catalog,
		provider:   provider,
		downgrader: downgrader,
		logger:     log,
	}
}

// Reconcile fetches the provider snapshot of sub and applies it.
// sub is updated in place to the persisted state.
//
// Provider failures never surface as errors: they yield ResultAPIError so
// callers can apply their own fail-open or escalation policy. A non-nil error
// means a local write failed and the result must be ignored.
func (r *Reconciler) Reconcile(ctx context.Context, sub *Subscription, now time.Time) (ReconcileResult, error) {
	if !sub.IsLinked() {
		return ResultNoChange, nil
	}

	snap, err := r.provider.FetchSubscription(ctx, sub.ExternalSubscriptionID)
	if err != nil {
		r.logger.WarnContext(ctx, "provider fetch failed",
			logger.SubscriptionID(sub.ID),
			logger.ExternalID(sub.ExternalSubscriptionID),
			logger.Error(err),
		)
		return ResultAPIError, nil
	}
	if snap == nil {
		return ResultNoChange, nil
	}

	switch snap.Status {
	case ProviderStatusActive:
		if snap.PeriodStart != nil && snap.PeriodStart.After(sub.CurrentPeriodStart) {
			return r.renew(ctx, sub, snap, now)
		}
		if sub.Status == StatusActive {
			return ResultNoChange, nil
		}
		if err := r.setStatus(ctx, sub, StatusActive, now); err != nil {
			return ResultNoChange, err
		}
		return ResultNoChange, nil

	case ProviderStatusCancelled, ProviderStatusCompleted, ProviderStatusExpired:
		if err := r.downgrader.Downgrade(ctx, sub, now); err != nil {
			return ResultNoChange, err
		}
		return ResultDowngraded, nil

	case ProviderStatusHalted:
		if sub.Status != StatusHalted {
			if err := r.setStatus(ctx, sub, StatusHalted, now); err != nil {
				return ResultNoChange, err
			}
		}
		return ResultHalted, nil

	case ProviderStatusPending:
		if sub.Status != StatusPastDue {
			if err := r.setStatus(ctx, sub, StatusPastDue, now); err != nil {
				return ResultNoChange, err
			}
		}
		return ResultPastDue, nil

	case ProviderStatusUnknown:
		return ResultNoChange, nil

	default:
		r.logger.WarnContext(ctx, "unmapped provider status",
			logger.SubscriptionID(sub.ID),
			logger.ExternalID(sub.ExternalSubscriptionID),
			slog.String("provider_status", string(snap.Status)),
		)
		return ResultNoChange, nil
	}
}

// renew applies a newer provider period. The plan follows the provider's
// plan id when the catalog knows it; otherwise the current plan is kept.
func (r *Reconciler) renew(ctx context.Context, sub *Subscription, snap *ProviderSubscription, now time.Time) (ReconcileResult, error) {
	next := sub.Clone()

	if plan, err := r.catalog.FindPlanByExternalID(ctx, snap.ExternalPlanID); err == nil && plan.ProductID == sub.ProductID {
		next.Plan = plan.Plan
		next.UsageLimit = plan.UsageLimit
	} else {
		r.logger.WarnContext(ctx, "provider plan not resolvable, keeping current plan",
			logger.SubscriptionID(sub.ID),
			slog.String("external_plan_id", snap.ExternalPlanID),
			logger.Error(err),
		)
	}

	next.Status = StatusActive
	next.UsageCount = 0
	next.CurrentPeriodStart = *snap.PeriodStart
	next.CurrentPeriodEnd = next.CurrentPeriodStart.Add(PeriodLength)
	if snap.PeriodEnd != nil && snap.PeriodEnd.After(next.CurrentPeriodStart) {
		next.CurrentPeriodEnd = *snap.PeriodEnd
	}
	next.UpdatedAt = now

	if err := r.repo.Update(ctx, next); err != nil {
		return ResultNoChange, fmt.Errorf("failed to renew subscription %s: %w", sub.ID, err)
	}

	r.logger.InfoContext(ctx, "subscription renewed from provider",
		logger.SubscriptionID(sub.ID),
		logger.ExternalID(sub.ExternalSubscriptionID),
		slog.Time("period_start", next.CurrentPeriodStart),
		slog.Time("period_end", next.CurrentPeriodEnd),
	)

	*sub = *next
	return ResultRenewed, nil
}

func (r *Reconciler) setStatus(ctx context.Context, sub *Subscription, status Status, now time.Time) error {
	next := sub.Clone()
	next.Status = status
	next.UpdatedAt = now

	if err := r.repo.Update(ctx, next); err != nil {
		return fmt.Errorf("failed to set subscription %s status to %s: %w", sub.ID, status, err)
	}

	*sub = *next
	return nil
}
