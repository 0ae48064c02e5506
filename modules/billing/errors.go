package billing

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/dmitrymomot/quotagate/core"
	"github.com/dmitrymomot/quotagate/pkg/billing"
)

var (
	ErrSubscriptionNotFound = core.NewHTTPError(http.StatusNotFound, "subscription_not_found")
	ErrSubscriptionExists   = core.NewHTTPError(http.StatusConflict, "subscription_exists")
	ErrSubscriptionMissing  = core.NewHTTPError(http.StatusInternalServerError, "subscription_missing")
	ErrPlanNotFound         = core.NewHTTPError(http.StatusNotFound, "plan_not_found")
	ErrNotPaidPlan          = core.NewHTTPError(http.StatusBadRequest, "not_paid_plan")
	ErrPlanMismatch         = core.NewHTTPError(http.StatusUnprocessableEntity, "plan_mismatch")
	ErrLimitExceeded        = core.NewHTTPError(http.StatusPaymentRequired, "usage_limit_exceeded")
	ErrSubscriptionBlocked  = core.NewHTTPError(http.StatusForbidden, "subscription_blocked")
	ErrInvalidSignature     = core.NewHTTPError(http.StatusBadRequest, "invalid_signature")
	ErrInvalidPayload       = core.NewHTTPError(http.StatusBadRequest, "invalid_payload")
	ErrInvalidUsage         = core.NewHTTPError(http.StatusBadRequest, "invalid_usage")
	ErrExternalIDMismatch   = core.NewHTTPError(http.StatusConflict, "external_id_mismatch")
	ErrProviderUnavailable  = core.NewHTTPError(http.StatusBadGateway, "provider_error")
	ErrNotEnabled           = core.NewHTTPError(http.StatusNotImplemented, "not_enabled")
	ErrMissingField         = core.NewHTTPError(http.StatusBadRequest, "missing_field")
)

// httpError attaches the HTTP status of a billing error. Unknown errors stay
// as they are and render as 500.
func httpError(err error) error {
	var mapped core.HTTPError
	switch {
	case errors.Is(err, billing.ErrSubscriptionNotFound):
		mapped = ErrSubscriptionNotFound
	case errors.Is(err, billing.ErrSubscriptionAlreadyExists):
		mapped = ErrSubscriptionExists
	case errors.Is(err, billing.ErrPlanNotFound):
		mapped = ErrPlanNotFound
	case errors.Is(err, billing.ErrNotPaidPlan):
		mapped = ErrNotPaidPlan
	case errors.Is(err, billing.ErrInvalidPlanConfiguration):
		mapped = ErrPlanMismatch
	case errors.Is(err, billing.ErrLimitExceeded):
		mapped = ErrLimitExceeded
	case errors.Is(err, billing.ErrSubscriptionBlocked):
		mapped = ErrSubscriptionBlocked
	case errors.Is(err, billing.ErrInvalidSignature):
		mapped = ErrInvalidSignature
	case errors.Is(err, billing.ErrInvalidPayload):
		mapped = ErrInvalidPayload
	case errors.Is(err, billing.ErrInvalidUsageDelta):
		mapped = ErrInvalidUsage
	case errors.Is(err, billing.ErrExternalIDMismatch):
		mapped = ErrExternalIDMismatch
	case errors.Is(err, billing.ErrProviderError):
		mapped = ErrProviderUnavailable
	case errors.Is(err, billing.ErrCheckoutNotEnabled), errors.Is(err, billing.ErrWebhooksNotEnabled):
		mapped = ErrNotEnabled
	default:
		return err
	}
	return fmt.Errorf("%w: %w", mapped, err)
}
