package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/quotagate/pkg/logger"
)

// CheckAndGate decides whether a metered operation may run for the user's
// subscription to productID. It may roll a FREE period over, downgrade an
// inconsistent subscription or reconcile an expired one with the provider
// before deciding.
//
// Denials are returned as *UsageLimitError or *SubscriptionBlockedError
// together with an OutcomeDeny decision. A missing subscription is a
// provisioning bug and is reported as ErrSubscriptionNotFound.
func (s *Service) CheckAndGate(ctx context.Context, userID uuid.UUID, productID string, now time.Time) (Decision, error) {
	sub, err := s.repo.FindByUserProduct(ctx, userID, productID)
	if err != nil {
		return Decision{Outcome: OutcomeDeny}, fmt.Errorf("gate user %s product %s: %w", userID, productID, err)
	}

	d, err := s.gate(ctx, sub, now)
	gateDecisionsTotal.WithLabelValues(string(d.Outcome), denyReason(err)).Inc()
	return d, err
}

func (s *Service) gate(ctx context.Context, sub *Subscription, now time.Time) (Decision, error) {
	if !sub.IsPaid() {
		return s.gateFree(ctx, sub, now)
	}

	if !sub.PeriodExpiredAt(now) {
		switch sub.Status {
		case StatusCanceled:
			// billing canceled but the period never ran out locally
			if err := s.downgrader.Downgrade(ctx, sub, now); err != nil {
				return Decision{Outcome: OutcomeDeny, Subscription: sub}, err
			}
			return Decision{Outcome: OutcomeMutateAndAllow, Subscription: sub}, nil
		case StatusHalted:
			return deny(sub, &SubscriptionBlockedError{Status: sub.Status})
		case StatusActive, StatusPastDue:
			return checkLimit(sub)
		default:
			s.logger.WarnContext(ctx, "unknown subscription status at gate",
				logger.SubscriptionID(sub.ID),
				logger.Result(string(sub.Status)),
			)
			return checkLimit(sub)
		}
	}

	if sub.Status == StatusActive && now.Sub(sub.CurrentPeriodEnd) <= s.cfg.GracePeriod {
		return checkLimit(sub)
	}

	result, err := s.reconciler.Reconcile(ctx, sub, now)
	if err != nil {
		return Decision{Outcome: OutcomeDeny, Subscription: sub}, err
	}
	reconcileResultsTotal.WithLabelValues("gate", string(result)).Inc()

	switch result {
	case ResultRenewed, ResultDowngraded:
		return Decision{Outcome: OutcomeMutateAndAllow, Subscription: sub}, nil
	case ResultHalted:
		return deny(sub, &SubscriptionBlockedError{Status: sub.Status})
	case ResultPastDue:
		return Decision{Outcome: OutcomeAllow, Subscription: sub}, nil
	case ResultAPIError:
		if sub.Status == StatusActive {
			// provider outage: fail open, the sweep escalates if it persists
			return checkLimit(sub)
		}
		return checkStale(sub)
	case ResultNoChange:
		return checkStale(sub)
	default:
		s.logger.WarnContext(ctx, "unknown reconcile result at gate",
			logger.SubscriptionID(sub.ID),
			logger.Result(string(result)),
		)
		return checkStale(sub)
	}
}

// gateFree rolls an expired FREE period over on the anchored cadence. The
// reset itself grants quota; this call is not counted against it.
func (s *Service) gateFree(ctx context.Context, sub *Subscription, now time.Time) (Decision, error) {
	if !sub.PeriodExpiredAt(now) {
		return checkLimit(sub)
	}

	next := sub.Clone()
	next.CurrentPeriodStart, next.CurrentPeriodEnd = NextPeriod(sub.CreatedAt, now)
	next.UsageCount = 0
	next.UpdatedAt = now

	if err := s.repo.Update(ctx, next); err != nil {
		return Decision{Outcome: OutcomeDeny, Subscription: sub}, fmt.Errorf("failed to roll over free period of subscription %s: %w", sub.ID, err)
	}

	s.logger.DebugContext(ctx, "free period rolled over",
		logger.SubscriptionID(sub.ID),
		logger.UserID(sub.UserID),
		logger.ProductID(sub.ProductID),
	)

	return Decision{Outcome: OutcomeMutateAndAllow, Subscription: next}, nil
}

// checkStale applies the limit check to state the provider could not refresh.
// HALTED keeps blocking even when the provider is unreachable.
func checkStale(sub *Subscription) (Decision, error) {
	if sub.Status == StatusHalted {
		return deny(sub, &SubscriptionBlockedError{Status: sub.Status})
	}
	return checkLimit(sub)
}

func checkLimit(sub *Subscription) (Decision, error) {
	if sub.QuotaExhausted() {
		return deny(sub, &UsageLimitError{Used: sub.UsageCount, Limit: sub.UsageLimit})
	}
	return Decision{Outcome: OutcomeAllow, Subscription: sub}, nil
}

func deny(sub *Subscription, err error) (Decision, error) {
	return Decision{Outcome: OutcomeDeny, Subscription: sub}, err
}

func denyReason(err error) string {
	switch err.(type) {
	case nil:
		return ""
	case *UsageLimitError:
		return "limit"
	case *SubscriptionBlockedError:
		return "blocked"
	default:
		return "error"
	}
}
