package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/quotagate/pkg/logger"
)

// Service is the entry point of the billing core: the usage gate, the webhook
// handler, the reconciliation sweep, and the provisioning and checkout helpers
// around them.
type Service struct {
	repo     Repository
	catalog  Catalog
	provider Provider
	verifier WebhookVerifier
	parser   WebhookParser
	deduper  EventDeduper
	checkout CheckoutProvider
	cfg      Config
	logger   *slog.Logger

	downgrader *Downgrader
	reconciler *Reconciler
}

// NewService creates a new Service with the given dependencies.
// Panics if repo, catalog or provider is nil to fail fast during initialization.
func NewService(repo Repository, catalog Catalog, provider Provider, opts ...ServiceOption) *Service {
	if repo == nil {
		panic("billing: Repository is required")
	}
	if catalog == nil {
		panic("billing: Catalog is required")
	}
	if provider == nil {
		panic("billing: Provider is required")
	}

	s := &Service{
		repo:     repo,
		catalog:  catalog,
		provider: provider,
		cfg:      DefaultConfig(),
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.logger = s.logger.With(logger.Component("billing"))
	s.downgrader = NewDowngrader(repo, catalog, s.cfg.FreeUsageLimit, s.logger)
	s.reconciler = NewReconciler(repo, catalog, provider, s.downgrader, s.logger)

	return s
}

// Config returns the effective configuration.
func (s *Service) Config() Config {
	return s.cfg
}

// Provision creates the FREE subscription of a user for a product.
// If one already exists it is returned unchanged.
func (s *Service) Provision(ctx context.Context, userID uuid.UUID, productID string, now time.Time) (*Subscription, error) {
	if sub, err := s.repo.FindByUserProduct(ctx, userID, productID); err == nil {
		return sub, nil
	} else if !errors.Is(err, ErrSubscriptionNotFound) {
		return nil, err
	}

	limit := s.cfg.FreeUsageLimit
	if plan, err := s.catalog.FindPlan(ctx, productID, PlanFree); err == nil {
		limit = plan.UsageLimit
	} else if !errors.Is(err, ErrPlanNotFound) {
		return nil, err
	}

	sub := NewFreeSubscription(userID, productID, limit, now)
	if err := s.repo.Create(ctx, sub); err != nil {
		// lost a race with a concurrent signup
		if errors.Is(err, ErrSubscriptionAlreadyExists) {
			return s.repo.FindByUserProduct(ctx, userID, productID)
		}
		return nil, fmt.Errorf("failed to provision subscription: %w", err)
	}

	s.logger.InfoContext(ctx, "subscription provisioned",
		logger.SubscriptionID(sub.ID),
		logger.UserID(userID),
		logger.ProductID(productID),
	)

	return sub, nil
}

// GetSubscription returns the subscription of a user for a product.
func (s *Service) GetSubscription(ctx context.Context, userID uuid.UUID, productID string) (*Subscription, error) {
	return s.repo.FindByUserProduct(ctx, userID, productID)
}

// RecordUsage atomically adds n units to the subscription's usage counter
// and returns the new value. Call it after the metered operation succeeded.
func (s *Service) RecordUsage(ctx context.Context, subscriptionID uuid.UUID, n int64) (int64, error) {
	if n <= 0 {
		return 0, ErrInvalidUsageDelta
	}
	return s.repo.IncrementUsage(ctx, subscriptionID, n)
}

// ConsumeUsage is RecordUsage with the quota enforced in the same atomic
// step: when n units do not fit into the remaining quota nothing is
// recorded and a *UsageLimitError is returned.
func (s *Service) ConsumeUsage(ctx context.Context, subscriptionID uuid.UUID, n int64) (int64, error) {
	if n <= 0 {
		return 0, ErrInvalidUsageDelta
	}
	count, err := s.repo.ConsumeUsage(ctx, subscriptionID, n)
	if err != nil {
		var limitErr *UsageLimitError
		if errors.As(err, &limitErr) {
			gateDecisionsTotal.WithLabelValues(string(OutcomeDeny), denyReason(limitErr)).Inc()
		}
		return count, err
	}
	return count, nil
}

// CreateCheckout starts a hosted checkout for a paid plan. The user and
// product ids travel in the checkout metadata so activation can find the
// local subscription even before the provider id is linked.
func (s *Service) CreateCheckout(ctx context.Context, userID uuid.UUID, productID string, plan Plan, opts CheckoutOptions) (*CheckoutLink, error) {
	if s.checkout == nil {
		return nil, ErrCheckoutNotEnabled
	}
	if !plan.IsPaid() {
		return nil, ErrNotPaidPlan
	}

	if _, err := s.repo.FindByUserProduct(ctx, userID, productID); err != nil {
		return nil, err
	}

	pp, err := s.catalog.FindPlan(ctx, productID, plan)
	if err != nil {
		return nil, err
	}

	link, err := s.checkout.CreateCheckoutLink(ctx, CheckoutRequest{
		PriceID:    pp.ExternalPlanID,
		UserID:     userID,
		ProductID:  productID,
		Email:      opts.Email,
		SuccessURL: opts.SuccessURL,
	})
	if err != nil {
		return nil, errors.Join(ErrProviderError, err)
	}
	return link, nil
}

// VerifyCheckout is the client-side counterpart of the activation webhook:
// after checkout the client reports the provider subscription id, which is
// confirmed with the provider and applied exactly like an activation event.
// Both paths end in the same state, so running both is harmless.
func (s *Service) VerifyCheckout(ctx context.Context, userID uuid.UUID, productID, externalID string, now time.Time) (*Subscription, error) {
	sub, err := s.repo.FindByUserProduct(ctx, userID, productID)
	if err != nil {
		return nil, err
	}

	// already applied by the webhook
	if sub.ExternalSubscriptionID == externalID && sub.IsPaid() && sub.Status == StatusActive {
		return sub, nil
	}

	if owner, err := s.repo.FindByExternalID(ctx, externalID); err == nil && owner.ID != sub.ID {
		return nil, ErrExternalIDMismatch
	} else if err != nil && !errors.Is(err, ErrSubscriptionNotFound) {
		return nil, err
	}

	snap, err := s.provider.FetchSubscription(ctx, externalID)
	if err != nil {
		return nil, errors.Join(ErrProviderError, err)
	}
	if snap == nil || snap.Status != ProviderStatusActive {
		return nil, errors.Join(ErrProviderError, fmt.Errorf("provider subscription %s is not active", externalID))
	}

	pp, err := s.catalog.FindPlanByExternalID(ctx, snap.ExternalPlanID)
	if err != nil {
		return nil, err
	}
	if pp.ProductID != productID {
		return nil, errors.Join(ErrInvalidPlanConfiguration,
			fmt.Errorf("plan %s belongs to product %s", snap.ExternalPlanID, pp.ProductID))
	}

	if err := s.activate(ctx, sub, pp, externalID, now); err != nil {
		return nil, err
	}
	return sub, nil
}

// activate links sub to a provider subscription on the given paid plan with a
// fresh period starting now. Paid periods follow the provider, not the anchor.
func (s *Service) activate(ctx context.Context, sub *Subscription, plan ProductPlan, externalID string, now time.Time) error {
	next := sub.Clone()
	next.Plan = plan.Plan
	next.Status = StatusActive
	next.UsageLimit = plan.UsageLimit
	next.UsageCount = 0
	next.CurrentPeriodStart = now
	next.CurrentPeriodEnd = now.Add(PeriodLength)
	next.ExternalSubscriptionID = externalID
	next.CancelAtPeriodEnd = false
	next.UpdatedAt = now

	if err := s.repo.Update(ctx, next); err != nil {
		return fmt.Errorf("failed to activate subscription %s: %w", sub.ID, err)
	}

	s.logger.InfoContext(ctx, "subscription activated",
		logger.SubscriptionID(sub.ID),
		logger.UserID(sub.UserID),
		logger.ProductID(sub.ProductID),
		logger.ExternalID(externalID),
		slog.String("plan", string(plan.Plan)),
	)

	*sub = *next
	return nil
}
