package billing

import "log/slog"

// ServiceOption configures a Service instance.
type ServiceOption func(*Service)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(log *slog.Logger) ServiceOption {
	return func(s *Service) {
		if log != nil {
			s.logger = log
		}
	}
}

// WithConfig overrides timing and batching settings.
// Zero fields keep their defaults.
func WithConfig(cfg Config) ServiceOption {
	return func(s *Service) {
		s.cfg = cfg.withDefaults()
	}
}

// WithWebhooks enables HandleWebhookEvent.
// The verifier runs on the raw body before the parser ever sees it.
func WithWebhooks(verifier WebhookVerifier, parser WebhookParser) ServiceOption {
	return func(s *Service) {
		if verifier != nil && parser != nil {
			s.verifier = verifier
			s.parser = parser
		}
	}
}

// WithDeduper drops duplicate webhook deliveries by provider event id.
func WithDeduper(d EventDeduper) ServiceOption {
	return func(s *Service) {
		if d != nil {
			s.deduper = d
		}
	}
}

// WithCheckout enables CreateCheckout.
func WithCheckout(p CheckoutProvider) ServiceOption {
	return func(s *Service) {
		if p != nil {
			s.checkout = p
		}
	}
}
