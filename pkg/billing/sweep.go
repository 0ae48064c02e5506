package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrymomot/quotagate/pkg/logger"
)

// SweepReport summarizes one RunSweepOnce call.
type SweepReport struct {
	Checked          int
	Results          map[ReconcileResult]int
	ForcedDowngrades int // provider unreachable for too long
	HaltedDowngrades int
	Failures         int
}

// RunSweepOnce reconciles subscriptions that no request or webhook has
// refreshed, and force-downgrades those the provider cannot resolve.
//
// Pass one reconciles paid subscriptions expired longer than SweepThreshold
// and downgrades them when the provider stays unreachable ForceDowngradeAfter
// past expiry. Pass two downgrades subscriptions HALTED for longer than
// HaltedDowngradeAfter. Failures on single subscriptions are logged and
// counted; only listing failures are returned.
func (s *Service) RunSweepOnce(ctx context.Context, now time.Time) (SweepReport, error) {
	report := SweepReport{Results: make(map[ReconcileResult]int)}

	errExpired := s.sweepExpired(ctx, now, &report)
	errHalted := s.sweepHalted(ctx, now, &report)

	s.logger.InfoContext(ctx, "reconciliation sweep finished",
		logger.Count(report.Checked),
		slog.Int("forced_downgrades", report.ForcedDowngrades),
		slog.Int("halted_downgrades", report.HaltedDowngrades),
		slog.Int("failures", report.Failures),
		logger.Errors(errExpired, errHalted),
	)

	return report, errors.Join(errExpired, errHalted)
}

func (s *Service) sweepExpired(ctx context.Context, now time.Time, report *SweepReport) error {
	subs, err := s.repo.ListExpiredPaid(ctx, now.Add(-s.cfg.SweepThreshold), s.cfg.SweepBatchSize)
	if err != nil {
		return fmt.Errorf("failed to list expired subscriptions: %w", err)
	}

	for _, sub := range subs {
		if err := ctx.Err(); err != nil {
			return err
		}
		report.Checked++

		result, err := s.reconciler.Reconcile(ctx, sub, now)
		if err != nil {
			report.Failures++
			sweepFailuresTotal.WithLabelValues("expired").Inc()
			s.logger.ErrorContext(ctx, "sweep reconcile failed", logger.SubscriptionID(sub.ID), logger.Error(err))
			continue
		}
		report.Results[result]++
		reconcileResultsTotal.WithLabelValues("sweep", string(result)).Inc()

		if result != ResultAPIError || now.Sub(sub.CurrentPeriodEnd) < s.cfg.ForceDowngradeAfter {
			continue
		}

		if err := s.downgrader.Downgrade(ctx, sub, now); err != nil {
			report.Failures++
			sweepFailuresTotal.WithLabelValues("expired").Inc()
			s.logger.ErrorContext(ctx, "sweep forced downgrade failed", logger.SubscriptionID(sub.ID), logger.Error(err))
			continue
		}
		report.ForcedDowngrades++
		sweepDowngradesTotal.WithLabelValues("provider_unreachable").Inc()
		s.logger.WarnContext(ctx, "provider unreachable past expiry, subscription force-downgraded",
			logger.SubscriptionID(sub.ID),
			logger.UserID(sub.UserID),
			logger.ProductID(sub.ProductID),
		)
	}
	return nil
}

func (s *Service) sweepHalted(ctx context.Context, now time.Time, report *SweepReport) error {
	subs, err := s.repo.ListHalted(ctx, now.Add(-s.cfg.HaltedDowngradeAfter), s.cfg.SweepBatchSize)
	if err != nil {
		return fmt.Errorf("failed to list halted subscriptions: %w", err)
	}

	for _, sub := range subs {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := s.downgrader.Downgrade(ctx, sub, now); err != nil {
			report.Failures++
			sweepFailuresTotal.WithLabelValues("halted").Inc()
			s.logger.ErrorContext(ctx, "sweep halted downgrade failed", logger.SubscriptionID(sub.ID), logger.Error(err))
			continue
		}
		report.HaltedDowngrades++
		sweepDowngradesTotal.WithLabelValues("halted").Inc()
	}
	return nil
}
