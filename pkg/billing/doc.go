// Package billing keeps a locally cached subscription state consistent with
// an external payment provider and gates metered usage against it.
//
// Each user has exactly one Subscription per product. FREE subscriptions roll
// over on fixed 30-day windows anchored at their creation time (see
// NextPeriod). Paid subscriptions follow the provider: webhooks push changes
// as they happen, the usage gate reconciles stale state on demand, and a
// periodic sweep catches what neither of them saw.
//
// # Usage gate
//
//	d, err := svc.CheckAndGate(ctx, userID, "writer", time.Now())
//	switch {
//	case errors.Is(err, billing.ErrLimitExceeded):
//	    // quota used up for this period
//	case errors.Is(err, billing.ErrSubscriptionBlocked):
//	    // payment failed permanently, ask for a new payment method
//	case err != nil:
//	    // storage failure or missing subscription
//	}
//	if d.Allowed() {
//	    generate()
//	    svc.RecordUsage(ctx, d.Subscription.ID, 1)
//	}
//
// ConsumeUsage reserves several units at once and refuses them when they do
// not fit into the remaining quota.
//
// Paid subscriptions whose period expired less than GracePeriod ago keep
// access without a provider call. After that, the gate asks the provider.
// When the provider is unreachable an ACTIVE subscription fails open, and
// RunSweepOnce downgrades it once the outage exceeds ForceDowngradeAfter.
//
// # Webhooks
//
// HandleWebhookEvent verifies the raw body with the configured
// WebhookVerifier before parsing it. Duplicate deliveries are harmless;
// an optional EventDeduper skips them early.
//
// # Persistence
//
// Repository implementations must write a whole record in one statement and
// increment usage atomically. NewMemoryStore is suitable for tests; see
// package pgstore for PostgreSQL.
package billing
