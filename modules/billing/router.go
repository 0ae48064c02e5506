package billing

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/quotagate/core"
	"github.com/dmitrymomot/quotagate/pkg/logger"
)

// Router builds the billing routes:
//
//	POST /webhooks/paddle
//	POST /subscriptions/{userID}/{productID}           provision
//	GET  /subscriptions/{userID}/{productID}           read
//	POST /subscriptions/{userID}/{productID}/gate
//	POST /subscriptions/{userID}/{productID}/usage     gate, then record
//	POST /subscriptions/{userID}/{productID}/checkout
//	POST /subscriptions/{userID}/{productID}/verify
func Router(svc Service, opts ...Option) chi.Router {
	if svc == nil {
		panic("billing: Service is required")
	}
	h := &Handler{
		svc:             svc,
		logger:          slog.Default(),
		now:             time.Now,
		maxBodyBytes:    1 << 20,
		signatureHeader: DefaultSignatureHeader,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.With(logger.Component("billing_http"))

	path := core.BindPath(chi.URLParam)
	body := core.BindJSON(h.maxBodyBytes)

	r := chi.NewRouter()
	r.Post("/webhooks/paddle", h.webhook)

	r.Route("/subscriptions/{userID}/{productID}", func(r chi.Router) {
		r.Post("/", core.Wrap(h.provision, core.WithBinders[subscriptionPath](path), core.WithLogger[subscriptionPath](h.logger)))
		r.Get("/", core.Wrap(h.get, core.WithBinders[subscriptionPath](path), core.WithLogger[subscriptionPath](h.logger)))
		r.Post("/gate", core.Wrap(h.gate, core.WithBinders[subscriptionPath](path), core.WithLogger[subscriptionPath](h.logger)))
		r.Post("/usage", core.Wrap(h.usage, core.WithBinders[usageRequest](path, body), core.WithLogger[usageRequest](h.logger)))
		r.Post("/checkout", core.Wrap(h.checkout, core.WithBinders[checkoutRequest](path, body), core.WithLogger[checkoutRequest](h.logger)))
		r.Post("/verify", core.Wrap(h.verify, core.WithBinders[verifyRequest](path, body), core.WithLogger[verifyRequest](h.logger)))
	})

	return r
}

// Handle returns the router as an http.Handler.
func Handle(svc Service, opts ...Option) http.Handler {
	return Router(svc, opts...)
}
