package billing_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/quotagate/core"
	"github.com/dmitrymomot/quotagate/pkg/billing"
	httpbilling "github.com/dmitrymomot/quotagate/modules/billing"
)

var fixedNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, core.JSONResponse) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp core.JSONResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return rec, resp
}

func subPath(userID uuid.UUID, suffix string) string {
	return fmt.Sprintf("/subscriptions/%s/writer%s", userID, suffix)
}

func TestRouter_FreeTierFlow(t *testing.T) {
	t.Parallel()

	svc := billing.NewService(billing.NewMemoryStore(), billing.NewInMemCatalog(), noopProvider{},
		billing.WithConfig(billing.Config{FreeUsageLimit: 2}))
	h := httpbilling.Router(svc, httpbilling.WithClock(clock))
	userID := uuid.New()

	rec, resp := do(t, h, http.MethodPost, subPath(userID, ""), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "provisioned", resp.Code)
	firstID := resp.Data.(map[string]any)["id"]

	// provisioning twice returns the existing subscription
	rec, resp = do(t, h, http.MethodPost, subPath(userID, ""), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, firstID, resp.Data.(map[string]any)["id"])

	rec, _ = do(t, h, http.MethodPost, subPath(userID, "/usage"), `{"units":1}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rec, _ = do(t, h, http.MethodPost, subPath(userID, "/usage"), "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec, resp = do(t, h, http.MethodPost, subPath(userID, "/gate"), "")
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "usage_limit_exceeded", resp.Error.Code)
	assert.EqualValues(t, 2, resp.Error.Details["used"])
	assert.EqualValues(t, 2, resp.Error.Details["limit"])

	rec, resp = do(t, h, http.MethodGet, subPath(userID, ""), "")
	require.Equal(t, http.StatusOK, rec.Code)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 2, data["usage_count"])
	assert.Equal(t, "FREE", data["plan"])
}

func TestRouter_GateMissingSubscription(t *testing.T) {
	t.Parallel()

	svc := billing.NewService(billing.NewMemoryStore(), billing.NewInMemCatalog(), noopProvider{})
	h := httpbilling.Router(svc, httpbilling.WithClock(clock))

	rec, resp := do(t, h, http.MethodPost, subPath(uuid.New(), "/gate"), "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "subscription_missing", resp.Error.Code)

	rec, resp = do(t, h, http.MethodGet, subPath(uuid.New(), ""), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "subscription_not_found", resp.Error.Code)
}

func TestRouter_DisabledFeatures(t *testing.T) {
	t.Parallel()

	svc := billing.NewService(billing.NewMemoryStore(), billing.NewInMemCatalog(), noopProvider{})
	h := httpbilling.Router(svc)

	rec, resp := do(t, h, http.MethodPost, subPath(uuid.New(), "/checkout"), `{"plan":"PRO"}`)
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
	assert.Equal(t, "not_enabled", resp.Error.Code)

	rec, _ = do(t, h, http.MethodPost, "/webhooks/paddle", `{}`)
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestRouter_InvalidPath(t *testing.T) {
	t.Parallel()

	h := httpbilling.Router(&mockService{})

	rec, resp := do(t, h, http.MethodPost, "/subscriptions/not-a-uuid/writer/gate", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_path_parameter", resp.Error.Code)
}

func TestRouter_GateBlocked(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	sub := &billing.Subscription{ID: uuid.New(), UserID: userID, ProductID: "writer", Plan: billing.PlanPro, Status: billing.StatusHalted}
	svc := &mockService{}
	svc.On("CheckAndGate", mock.Anything, userID, "writer", fixedNow).
		Return(billing.Decision{Outcome: billing.OutcomeDeny, Subscription: sub}, &billing.SubscriptionBlockedError{Status: billing.StatusHalted})

	h := httpbilling.Router(svc, httpbilling.WithClock(clock))
	rec, resp := do(t, h, http.MethodPost, subPath(userID, "/usage"), `{"units":3}`)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "subscription_blocked", resp.Error.Code)
	assert.Equal(t, string(billing.StatusHalted), resp.Error.Details["status"])
	assert.Equal(t, sub.ID.String(), resp.Error.Details["subscription_id"])
	svc.AssertNotCalled(t, "ConsumeUsage", mock.Anything, mock.Anything, mock.Anything)
}

func TestRouter_UsageRecordsUnits(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	sub := &billing.Subscription{ID: uuid.New(), UserID: userID, ProductID: "writer", Plan: billing.PlanMax, Status: billing.StatusActive, UsageLimit: billing.Unlimited}
	svc := &mockService{}
	svc.On("CheckAndGate", mock.Anything, userID, "writer", fixedNow).
		Return(billing.Decision{Outcome: billing.OutcomeAllow, Subscription: sub}, nil)
	svc.On("ConsumeUsage", mock.Anything, sub.ID, int64(3)).Return(int64(42), nil)

	h := httpbilling.Router(svc, httpbilling.WithClock(clock))

	rec, resp := do(t, h, http.MethodPost, subPath(userID, "/usage"), `{"units":3}`)
	require.Equal(t, http.StatusOK, rec.Code)
	data := resp.Data.(map[string]any)
	assert.Equal(t, "allow", data["outcome"])
	assert.EqualValues(t, 42, data["usage_count"])

	rec, resp = do(t, h, http.MethodPost, subPath(userID, "/usage"), `{"units":-1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_usage", resp.Error.Code)

	svc.AssertExpectations(t)
}

func TestRouter_UsageCannotOvershootLimit(t *testing.T) {
	t.Parallel()

	svc := billing.NewService(billing.NewMemoryStore(), billing.NewInMemCatalog(), noopProvider{},
		billing.WithConfig(billing.Config{FreeUsageLimit: 5}))
	h := httpbilling.Router(svc, httpbilling.WithClock(clock))
	userID := uuid.New()

	rec, _ := do(t, h, http.MethodPost, subPath(userID, ""), "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec, resp := do(t, h, http.MethodPost, subPath(userID, "/usage"), `{"units":1000}`)
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "usage_limit_exceeded", resp.Error.Code)
	assert.EqualValues(t, 0, resp.Error.Details["used"])
	assert.EqualValues(t, 5, resp.Error.Details["limit"])

	rec, resp = do(t, h, http.MethodPost, subPath(userID, "/usage"), `{"units":4}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 4, resp.Data.(map[string]any)["usage_count"])

	// one unit left: two do not fit, one does
	rec, _ = do(t, h, http.MethodPost, subPath(userID, "/usage"), `{"units":2}`)
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	rec, resp = do(t, h, http.MethodPost, subPath(userID, "/usage"), `{"units":1}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 5, resp.Data.(map[string]any)["usage_count"])

	rec, resp = do(t, h, http.MethodGet, subPath(userID, ""), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 5, resp.Data.(map[string]any)["usage_count"])
}

func TestRouter_Checkout(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	expires := fixedNow.Add(time.Hour)
	svc := &mockService{}
	svc.On("CreateCheckout", mock.Anything, userID, "writer", billing.PlanPro,
		billing.CheckoutOptions{Email: "a@example.com", SuccessURL: "https://app.example.com/ok"}).
		Return(&billing.CheckoutLink{URL: "https://pay.example.com/c/1", SessionID: "txn_1", ExpiresAt: expires}, nil)
	svc.On("CreateCheckout", mock.Anything, userID, "writer", billing.PlanMax, mock.Anything).
		Return(nil, fmt.Errorf("create checkout: %w", billing.ErrProviderError))
	svc.On("CreateCheckout", mock.Anything, userID, "writer", billing.PlanFree, mock.Anything).
		Return(nil, billing.ErrNotPaidPlan)

	h := httpbilling.Router(svc)

	rec, resp := do(t, h, http.MethodPost, subPath(userID, "/checkout"),
		`{"plan":"PRO","email":"a@example.com","success_url":"https://app.example.com/ok"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	data := resp.Data.(map[string]any)
	assert.Equal(t, "https://pay.example.com/c/1", data["url"])
	assert.Equal(t, "txn_1", data["session_id"])

	rec, resp = do(t, h, http.MethodPost, subPath(userID, "/checkout"), `{"plan":"MAX"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "provider_error", resp.Error.Code)

	rec, resp = do(t, h, http.MethodPost, subPath(userID, "/checkout"), `{"plan":"FREE"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "not_paid_plan", resp.Error.Code)

	rec, resp = do(t, h, http.MethodPost, subPath(userID, "/checkout"), `{"plan":"GOLD"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "missing_field", resp.Error.Code)

	rec, resp = do(t, h, http.MethodPost, subPath(userID, "/checkout"), `{"plan":"PRO","user_id":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_json", resp.Error.Code)
}

func TestRouter_Verify(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	sub := &billing.Subscription{ID: uuid.New(), UserID: userID, ProductID: "writer", Plan: billing.PlanPro, Status: billing.StatusActive, ExternalSubscriptionID: "sub_1"}
	svc := &mockService{}
	svc.On("VerifyCheckout", mock.Anything, userID, "writer", "sub_1", fixedNow).Return(sub, nil)
	svc.On("VerifyCheckout", mock.Anything, userID, "writer", "sub_2", fixedNow).
		Return(nil, fmt.Errorf("verify: %w", billing.ErrExternalIDMismatch))

	h := httpbilling.Router(svc, httpbilling.WithClock(clock))

	rec, resp := do(t, h, http.MethodPost, subPath(userID, "/verify"), `{"external_subscription_id":"sub_1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "activated", resp.Code)

	rec, resp = do(t, h, http.MethodPost, subPath(userID, "/verify"), `{"external_subscription_id":"sub_2"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "external_id_mismatch", resp.Error.Code)

	rec, _ = do(t, h, http.MethodPost, subPath(userID, "/verify"), `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_Webhook(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		wantCode int
		wantKey  string
	}{
		{name: "accepted", wantCode: http.StatusOK},
		{name: "bad signature", err: billing.ErrInvalidSignature, wantCode: http.StatusBadRequest, wantKey: "invalid_signature"},
		{name: "bad payload", err: fmt.Errorf("parse: %w", billing.ErrInvalidPayload), wantCode: http.StatusBadRequest, wantKey: "invalid_payload"},
		{name: "storage failure", err: errors.New("connection reset"), wantCode: http.StatusInternalServerError, wantKey: "internal_server_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			payload := `{"event_type":"subscription.updated"}`
			svc := &mockService{}
			svc.On("HandleWebhookEvent", mock.Anything, []byte(payload), "ts=1;h1=ab", fixedNow).Return(tt.err)

			h := httpbilling.Router(svc, httpbilling.WithClock(clock))
			req := httptest.NewRequest(http.MethodPost, "/webhooks/paddle", strings.NewReader(payload))
			req.Header.Set(httpbilling.DefaultSignatureHeader, "ts=1;h1=ab")
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			var resp core.JSONResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			if tt.wantKey == "" {
				assert.Equal(t, "ok", resp.Code)
			} else {
				assert.Equal(t, tt.wantKey, resp.Error.Code)
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestRouter_WebhookBodyTooLarge(t *testing.T) {
	t.Parallel()

	svc := &mockService{}
	h := httpbilling.Router(svc, httpbilling.WithMaxBodyBytes(8))

	rec, resp := do(t, h, http.MethodPost, "/webhooks/paddle", `{"event_type":"x"}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "request_entity_too_large", resp.Error.Code)
	svc.AssertNotCalled(t, "HandleWebhookEvent", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRouter_NilServicePanics(t *testing.T) {
	t.Parallel()
	assert.Panics(t, func() { httpbilling.Router(nil) })
}
