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

// HandleWebhookEvent verifies, parses and applies one provider webhook.
//
// A bad signature returns ErrInvalidSignature without touching any state.
// Events that match no local subscription are logged and acknowledged,
// since retrying them cannot help. Every branch is safe to apply twice.
func (s *Service) HandleWebhookEvent(ctx context.Context, payload []byte, signature string, now time.Time) error {
	if s.verifier == nil || s.parser == nil {
		return ErrWebhooksNotEnabled
	}

	ok, err := s.verifier.Verify(ctx, payload, signature)
	if err != nil || !ok {
		s.logger.WarnContext(ctx, "webhook signature rejected", logger.Error(err))
		webhookEventsTotal.WithLabelValues("", "invalid_signature").Inc()
		return ErrInvalidSignature
	}

	event, err := s.parser.Parse(payload)
	if err != nil {
		webhookEventsTotal.WithLabelValues("", "invalid_payload").Inc()
		return errors.Join(ErrInvalidPayload, err)
	}

	log := s.logger.With(
		logger.EventType(event.ProviderEvent),
		slog.String("event_id", event.ID),
		logger.ExternalID(event.ExternalSubscriptionID),
	)

	if s.deduper != nil && event.ID != "" {
		claimed, err := s.deduper.Claim(ctx, event.ID)
		switch {
		case err != nil:
			// dedup is an optimization; every handler is replay-safe
			log.WarnContext(ctx, "webhook dedup unavailable", logger.Error(err))
		case !claimed:
			log.DebugContext(ctx, "duplicate webhook delivery skipped")
			webhookEventsTotal.WithLabelValues(string(event.Type), "duplicate").Inc()
			return nil
		}
	}

	status, err := s.applyEvent(ctx, log, event, now)
	if err != nil {
		webhookEventsTotal.WithLabelValues(string(event.Type), "failed").Inc()
		if s.deduper != nil && event.ID != "" {
			if rerr := s.deduper.Release(ctx, event.ID); rerr != nil {
				log.WarnContext(ctx, "failed to release webhook claim", logger.Error(rerr))
			}
		}
		return err
	}

	webhookEventsTotal.WithLabelValues(string(event.Type), status).Inc()
	return nil
}

// applyEvent returns the handling status used for metrics.
func (s *Service) applyEvent(ctx context.Context, log *slog.Logger, event *WebhookEvent, now time.Time) (string, error) {
	switch event.Type {
	case EventActivated:
		return s.onActivated(ctx, log, event, now)

	case EventCharged:
		sub, found, err := s.findLinked(ctx, log, event)
		if !found {
			return "orphaned", err
		}
		next := sub.Clone()
		next.Status = StatusActive
		next.UsageCount = 0
		next.CurrentPeriodStart = now
		next.CurrentPeriodEnd = now.Add(PeriodLength)
		next.UpdatedAt = now
		if err := s.repo.Update(ctx, next); err != nil {
			return "", fmt.Errorf("failed to renew subscription %s: %w", sub.ID, err)
		}
		log.InfoContext(ctx, "subscription renewed by charge", logger.SubscriptionID(sub.ID))
		return "applied", nil

	case EventCancelled:
		sub, found, err := s.findLinked(ctx, log, event)
		if !found {
			return "orphaned", err
		}
		if err := s.downgrader.Downgrade(ctx, sub, now); err != nil {
			return "", err
		}
		return "applied", nil

	case EventPaymentFailed:
		return s.setStatusFromEvent(ctx, log, event, StatusPastDue, now)

	case EventHalted:
		return s.setStatusFromEvent(ctx, log, event, StatusHalted, now)

	case EventIgnored:
		log.DebugContext(ctx, "webhook event ignored")
		return "ignored", nil

	default:
		log.WarnContext(ctx, "unmapped webhook event type", slog.String("type", string(event.Type)))
		return "ignored", nil
	}
}

func (s *Service) onActivated(ctx context.Context, log *slog.Logger, event *WebhookEvent, now time.Time) (string, error) {
	plan, err := s.catalog.FindPlanByExternalID(ctx, event.ExternalPlanID)
	if errors.Is(err, ErrPlanNotFound) {
		log.WarnContext(ctx, "activation for unknown plan dropped", slog.String("external_plan_id", event.ExternalPlanID))
		return "unknown_plan", nil
	}
	if err != nil {
		return "", err
	}

	sub, err := s.repo.FindByExternalID(ctx, event.ExternalSubscriptionID)
	if errors.Is(err, ErrSubscriptionNotFound) && event.UserID != uuid.Nil {
		// checkout created the provider subscription before we stored the link
		productID := event.ProductID
		if productID == "" {
			productID = plan.ProductID
		}
		sub, err = s.repo.FindByUserProduct(ctx, event.UserID, productID)
	}
	if errors.Is(err, ErrSubscriptionNotFound) {
		log.WarnContext(ctx, "activation matches no local subscription",
			logger.UserID(event.UserID),
			logger.ProductID(event.ProductID),
		)
		return "orphaned", nil
	}
	if err != nil {
		return "", err
	}

	if plan.ProductID != sub.ProductID {
		log.WarnContext(ctx, "activation plan belongs to another product",
			logger.SubscriptionID(sub.ID),
			logger.ProductID(sub.ProductID),
			slog.String("plan_product_id", plan.ProductID),
		)
		return "unknown_plan", nil
	}

	if err := s.activate(ctx, sub, plan, event.ExternalSubscriptionID, now); err != nil {
		return "", err
	}
	return "applied", nil
}

// setStatusFromEvent is a no-op when the status is already set, so replays
// do not move UpdatedAt (the HALTED escalation clock).
func (s *Service) setStatusFromEvent(ctx context.Context, log *slog.Logger, event *WebhookEvent, status Status, now time.Time) (string, error) {
	sub, found, err := s.findLinked(ctx, log, event)
	if !found {
		return "orphaned", err
	}
	if !sub.IsPaid() || sub.Status == status {
		return "applied", nil
	}

	next := sub.Clone()
	next.Status = status
	next.UpdatedAt = now
	if err := s.repo.Update(ctx, next); err != nil {
		return "", fmt.Errorf("failed to set subscription %s status to %s: %w", sub.ID, status, err)
	}

	log.InfoContext(ctx, "subscription status changed by webhook",
		logger.SubscriptionID(sub.ID),
		slog.String("from", string(sub.Status)),
		slog.String("to", string(status)),
	)
	return "applied", nil
}

// findLinked looks a subscription up by the event's provider id.
// found is false with a nil error when nothing matches.
func (s *Service) findLinked(ctx context.Context, log *slog.Logger, event *WebhookEvent) (*Subscription, bool, error) {
	sub, err := s.repo.FindByExternalID(ctx, event.ExternalSubscriptionID)
	if errors.Is(err, ErrSubscriptionNotFound) {
		log.WarnContext(ctx, "webhook matches no local subscription")
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return sub, true, nil
}
