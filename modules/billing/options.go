package billing

import (
	"log/slog"
	"time"
)

// DefaultSignatureHeader is the header Paddle signs deliveries with.
const DefaultSignatureHeader = "Paddle-Signature"

// Option configures the router.
type Option func(*Handler)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithClock replaces time.Now as the source of "now" passed to the service.
func WithClock(now func() time.Time) Option {
	return func(h *Handler) {
		if now != nil {
			h.now = now
		}
	}
}

// WithMaxBodyBytes caps request bodies, webhook payloads included.
func WithMaxBodyBytes(n int64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxBodyBytes = n
		}
	}
}

// WithSignatureHeader changes the header the webhook signature is read from.
func WithSignatureHeader(name string) Option {
	return func(h *Handler) {
		if name != "" {
			h.signatureHeader = name
		}
	}
}
