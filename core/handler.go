package core

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/quotagate/pkg/logger"
)

// ErrNilResponse indicates a handler returned nil instead of a Response.
var ErrNilResponse = errors.New("handler returned nil response")

// HandlerFunc is a typed handler: req is populated by the configured binders.
type HandlerFunc[R any] func(r *http.Request, req R) Response

// Bind populates v from the request.
type Bind func(r *http.Request, v any) error

// Decorator wraps a HandlerFunc. The first decorator passed to Wrap is the
// outermost.
type Decorator[R any] func(HandlerFunc[R]) HandlerFunc[R]

type wrapConfig[R any] struct {
	binders    []Bind
	decorators []Decorator[R]
	logger     *slog.Logger
}

// WrapOption configures Wrap.
type WrapOption[R any] func(*wrapConfig[R])

// WithBinders appends binders, applied in order.
func WithBinders[R any](binders ...Bind) WrapOption[R] {
	return func(c *wrapConfig[R]) {
		c.binders = append(c.binders, binders...)
	}
}

// WithDecorators appends decorators.
func WithDecorators[R any](decorators ...Decorator[R]) WrapOption[R] {
	return func(c *wrapConfig[R]) {
		c.decorators = append(c.decorators, decorators...)
	}
}

// WithLogger logs binding and rendering failures.
func WithLogger[R any](l *slog.Logger) WrapOption[R] {
	return func(c *wrapConfig[R]) {
		if l != nil {
			c.logger = l
		}
	}
}

// Wrap converts a typed handler into an http.HandlerFunc. Binding failures
// are rendered with JSONError.
func Wrap[R any](h HandlerFunc[R], opts ...WrapOption[R]) http.HandlerFunc {
	cfg := &wrapConfig[R]{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(cfg)
	}

	final := h
	for i := len(cfg.decorators) - 1; i >= 0; i-- {
		final = cfg.decorators[i](final)
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req R
		for _, bind := range cfg.binders {
			if err := bind(r, &req); err != nil {
				cfg.logger.WarnContext(r.Context(), "request binding failed",
					logger.Error(err),
					slog.String("path", r.URL.Path))
				render(w, r, JSONError(err), cfg.logger)
				return
			}
		}

		resp := final(r, req)
		if resp == nil {
			cfg.logger.ErrorContext(r.Context(), "handler returned nil response", slog.String("path", r.URL.Path))
			resp = JSONError(ErrNilResponse)
		}
		render(w, r, resp, cfg.logger)
	}
}

func render(w http.ResponseWriter, r *http.Request, resp Response, log *slog.Logger) {
	if err := resp.Render(w, r); err != nil {
		log.ErrorContext(r.Context(), "failed to render response", logger.Error(err))
	}
}
