package billing

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/quotagate/core"
	"github.com/dmitrymomot/quotagate/pkg/billing"
	"github.com/dmitrymomot/quotagate/pkg/logger"
)

// Service is the part of billing.Service the HTTP layer uses.
type Service interface {
	Provision(ctx context.Context, userID uuid.UUID, productID string, now time.Time) (*billing.Subscription, error)
	GetSubscription(ctx context.Context, userID uuid.UUID, productID string) (*billing.Subscription, error)
	CheckAndGate(ctx context.Context, userID uuid.UUID, productID string, now time.Time) (billing.Decision, error)
	ConsumeUsage(ctx context.Context, subscriptionID uuid.UUID, n int64) (int64, error)
	CreateCheckout(ctx context.Context, userID uuid.UUID, productID string, plan billing.Plan, opts billing.CheckoutOptions) (*billing.CheckoutLink, error)
	VerifyCheckout(ctx context.Context, userID uuid.UUID, productID, externalID string, now time.Time) (*billing.Subscription, error)
	HandleWebhookEvent(ctx context.Context, payload []byte, signature string, now time.Time) error
}

var _ Service = (*billing.Service)(nil)

// Handler serves the billing HTTP API.
type Handler struct {
	svc             Service
	logger          *slog.Logger
	now             func() time.Time
	maxBodyBytes    int64
	signatureHeader string
}

func (h *Handler) webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.render(w, r, core.JSONError(core.ErrRequestEntityTooLarge))
			return
		}
		h.render(w, r, core.JSONError(errors.Join(core.ErrBadRequest, err)))
		return
	}

	err = h.svc.HandleWebhookEvent(r.Context(), payload, r.Header.Get(h.signatureHeader), h.now())
	if err != nil {
		// non-2xx makes the provider redeliver; only storage failures should
		h.logger.WarnContext(r.Context(), "webhook rejected", logger.Error(err))
		h.render(w, r, core.JSONError(httpError(err)))
		return
	}
	h.render(w, r, core.JSON("ok", nil, nil))
}

func (h *Handler) provision(r *http.Request, req subscriptionPath) core.Response {
	if err := req.validate(); err != nil {
		return core.JSONError(err)
	}
	sub, err := h.svc.Provision(r.Context(), req.UserID, req.ProductID, h.now())
	if err != nil {
		return h.fail(r, "provision failed", err)
	}
	return core.JSON("provisioned", newSubscriptionResponse(sub), nil)
}

func (h *Handler) get(r *http.Request, req subscriptionPath) core.Response {
	if err := req.validate(); err != nil {
		return core.JSONError(err)
	}
	sub, err := h.svc.GetSubscription(r.Context(), req.UserID, req.ProductID)
	if err != nil {
		return h.fail(r, "get subscription failed", err)
	}
	return core.JSON("subscription", newSubscriptionResponse(sub), nil)
}

func (h *Handler) gate(r *http.Request, req subscriptionPath) core.Response {
	if err := req.validate(); err != nil {
		return core.JSONError(err)
	}
	d, err := h.svc.CheckAndGate(r.Context(), req.UserID, req.ProductID, h.now())
	if err != nil {
		return h.gateFailure(r, d, err)
	}
	return core.JSON(string(d.Outcome), GateResponse{
		Outcome:      string(d.Outcome),
		Subscription: newSubscriptionResponse(d.Subscription),
	}, nil)
}

func (h *Handler) usage(r *http.Request, req usageRequest) core.Response {
	if err := req.validate(); err != nil {
		return core.JSONError(err)
	}
	if req.Units == 0 {
		req.Units = 1
	}
	if req.Units < 0 {
		return core.JSONError(httpError(billing.ErrInvalidUsageDelta))
	}

	d, err := h.svc.CheckAndGate(r.Context(), req.UserID, req.ProductID, h.now())
	if err != nil {
		return h.gateFailure(r, d, err)
	}

	// the gate only saw room for one more unit
	count, err := h.svc.ConsumeUsage(r.Context(), d.Subscription.ID, req.Units)
	if errors.Is(err, billing.ErrLimitExceeded) {
		return h.gateFailure(r, d, err)
	}
	if err != nil {
		return h.fail(r, "record usage failed", err)
	}
	return core.JSON("recorded", GateResponse{
		Outcome:      string(d.Outcome),
		Subscription: newSubscriptionResponse(d.Subscription),
		UsageCount:   &count,
	}, nil)
}

func (h *Handler) checkout(r *http.Request, req checkoutRequest) core.Response {
	if err := req.validate(); err != nil {
		return core.JSONError(err)
	}
	if !req.Plan.Valid() {
		return core.JSONError(errors.Join(ErrMissingField, errors.New("plan must be one of FREE, PRO, MAX")))
	}

	link, err := h.svc.CreateCheckout(r.Context(), req.UserID, req.ProductID, req.Plan, billing.CheckoutOptions{
		Email:      req.Email,
		SuccessURL: req.SuccessURL,
	})
	if err != nil {
		return h.fail(r, "create checkout failed", err)
	}
	return core.JSONWithStatus(http.StatusCreated, "checkout_created", CheckoutResponse{
		URL:       link.URL,
		SessionID: link.SessionID,
		ExpiresAt: link.ExpiresAt,
	}, nil)
}

func (h *Handler) verify(r *http.Request, req verifyRequest) core.Response {
	if err := req.validate(); err != nil {
		return core.JSONError(err)
	}
	if req.ExternalSubscriptionID == "" {
		return core.JSONError(errors.Join(ErrMissingField, errors.New("external_subscription_id is required")))
	}

	sub, err := h.svc.VerifyCheckout(r.Context(), req.UserID, req.ProductID, req.ExternalSubscriptionID, h.now())
	if err != nil {
		return h.fail(r, "verify checkout failed", err)
	}
	return core.JSON("activated", newSubscriptionResponse(sub), nil)
}

// gateFailure renders a gate error. A missing subscription is a
// provisioning bug on the caller's side and surfaces as a 500.
func (h *Handler) gateFailure(r *http.Request, d billing.Decision, err error) core.Response {
	if errors.Is(err, billing.ErrSubscriptionNotFound) {
		h.logger.ErrorContext(r.Context(), "gate on unprovisioned subscription", logger.Error(err))
		return core.JSONError(ErrSubscriptionMissing)
	}

	var details map[string]any
	var limitErr *billing.UsageLimitError
	if errors.As(err, &limitErr) {
		details = map[string]any{"used": limitErr.Used, "limit": limitErr.Limit}
	}
	var blockedErr *billing.SubscriptionBlockedError
	if errors.As(err, &blockedErr) {
		details = map[string]any{"status": string(blockedErr.Status)}
	}
	if details == nil {
		return h.fail(r, "gate failed", err)
	}
	if d.Subscription != nil {
		details["subscription_id"] = d.Subscription.ID
	}
	return core.JSONErrorWithDetails(httpError(err), details)
}

func (h *Handler) fail(r *http.Request, msg string, err error) core.Response {
	mapped := httpError(err)
	var httpErr core.HTTPError
	if !errors.As(mapped, &httpErr) || httpErr.Code >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), msg, logger.Error(err), slog.String("path", r.URL.Path))
	}
	return core.JSONError(mapped)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, resp core.Response) {
	if err := resp.Render(w, r); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to render response", logger.Error(err))
	}
}

func (p subscriptionPath) validate() error {
	if p.UserID == uuid.Nil {
		return errors.Join(ErrMissingField, errors.New("user id is required"))
	}
	if p.ProductID == "" {
		return errors.Join(ErrMissingField, errors.New("product id is required"))
	}
	return nil
}
