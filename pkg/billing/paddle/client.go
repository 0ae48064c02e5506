package paddle

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	paddlesdk "github.com/PaddleHQ/paddle-go-sdk/v4"

	"github.com/dmitrymomot/quotagate/pkg/billing"
)

// SignatureHeader is the header Paddle signs webhook deliveries with.
const SignatureHeader = "Paddle-Signature"

// DefaultWebhookTolerance is the accepted distance between the signature
// timestamp and the local clock.
const DefaultWebhookTolerance = 5 * time.Minute

// checkoutTTL is how long Paddle keeps a checkout transaction payable.
const checkoutTTL = 24 * time.Hour

// Client is the Paddle implementation of the billing provider contracts.
type Client struct {
	sdk      *paddlesdk.SDK
	verifier *paddlesdk.WebhookVerifier
}

var (
	_ billing.Provider         = (*Client)(nil)
	_ billing.CheckoutProvider = (*Client)(nil)
	_ billing.WebhookVerifier  = (*Client)(nil)
	_ billing.WebhookParser    = (*Client)(nil)
)

// NewClient creates a Paddle client for the configured environment.
// No network call is made until the first request.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.WebhookSecret == "" {
		return nil, ErrMissingWebhookSecret
	}

	var sdk *paddlesdk.SDK
	var err error

	switch strings.ToLower(cfg.Environment) {
	case "sandbox":
		sdk, err = paddlesdk.NewSandbox(cfg.APIKey)
	case "production", "":
		sdk, err = paddlesdk.New(cfg.APIKey)
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidEnvironment, cfg.Environment)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create paddle client: %w", err)
	}

	tolerance := cfg.WebhookTolerance
	if tolerance <= 0 {
		tolerance = DefaultWebhookTolerance
	}

	return &Client{
		sdk:      sdk,
		verifier: paddlesdk.NewWebhookVerifier(cfg.WebhookSecret, paddlesdk.VerifierWithTimestampTolerance(tolerance)),
	}, nil
}

// FetchSubscription returns Paddle's current view of a subscription.
func (c *Client) FetchSubscription(ctx context.Context, externalID string) (*billing.ProviderSubscription, error) {
	sub, err := c.sdk.SubscriptionsClient.GetSubscription(ctx, &paddlesdk.GetSubscriptionRequest{
		SubscriptionID: externalID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch paddle subscription %s: %w", externalID, err)
	}

	snap := &billing.ProviderSubscription{
		ID:     sub.ID,
		Status: mapStatus(string(sub.Status)),
	}
	if len(sub.Items) > 0 {
		snap.ExternalPlanID = sub.Items[0].Price.ID
	}
	if sub.CurrentBillingPeriod != nil {
		snap.PeriodStart = parseTime(sub.CurrentBillingPeriod.StartsAt)
		snap.PeriodEnd = parseTime(sub.CurrentBillingPeriod.EndsAt)
	}
	return snap, nil
}

// CreateCheckoutLink creates a Paddle transaction for the price and returns its hosted checkout URL.
func (c *Client) CreateCheckoutLink(ctx context.Context, req billing.CheckoutRequest) (*billing.CheckoutLink, error) {
	if req.PriceID == "" {
		return nil, errors.New("price ID is required")
	}

	item := paddlesdk.NewCreateTransactionItemsTransactionItemFromCatalog(&paddlesdk.TransactionItemFromCatalog{
		PriceID:  req.PriceID,
		Quantity: 1,
	})

	txReq := &paddlesdk.CreateTransactionRequest{
		Items:      []paddlesdk.CreateTransactionItems{*item},
		CustomData: checkoutCustomData(req),
	}
	if req.SuccessURL != "" {
		txReq.Checkout = &paddlesdk.TransactionCheckout{
			URL: paddlesdk.PtrTo(req.SuccessURL),
		}
	}

	tx, err := c.sdk.TransactionsClient.CreateTransaction(ctx, txReq)
	if err != nil {
		return nil, fmt.Errorf("failed to create paddle transaction: %w", err)
	}
	if tx.Checkout == nil || tx.Checkout.URL == nil {
		return nil, ErrNoCheckoutURL
	}

	return &billing.CheckoutLink{
		URL:       *tx.Checkout.URL,
		SessionID: tx.ID,
		ExpiresAt: time.Now().Add(checkoutTTL),
	}, nil
}

// Verify checks the Paddle-Signature header value against the raw body.
// A wrong or stale signature is (false, nil); a header that cannot be
// parsed is reported as an error.
func (c *Client) Verify(ctx context.Context, payload []byte, signature string) (bool, error) {
	if signature == "" {
		return false, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "/", bytes.NewReader(payload))
	if err != nil {
		return false, fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set(SignatureHeader, signature)

	ok, err := c.verifier.Verify(req)
	switch {
	case err == nil:
		return ok, nil
	case errors.Is(err, paddlesdk.ErrReplayAttack), errors.Is(err, paddlesdk.ErrMissingSignature):
		return false, nil
	default:
		return false, err
	}
}

// Parse decodes a verified webhook body.
func (c *Client) Parse(payload []byte) (*billing.WebhookEvent, error) {
	return ParseEvent(payload)
}

func checkoutCustomData(req billing.CheckoutRequest) paddlesdk.CustomData {
	data := paddlesdk.CustomData{
		customDataUserID:    req.UserID.String(),
		customDataProductID: req.ProductID,
	}
	if req.Email != "" {
		data["email"] = req.Email
	}
	return data
}

// mapStatus normalizes Paddle subscription statuses.
// past_due means Paddle is still retrying the payment; paused stops billing
// until the customer acts, which the core treats as halted.
func mapStatus(status string) billing.ProviderStatus {
	switch strings.ToLower(status) {
	case "active", "trialing":
		return billing.ProviderStatusActive
	case "past_due":
		return billing.ProviderStatusPending
	case "paused":
		return billing.ProviderStatusHalted
	case "canceled", "cancelled":
		return billing.ProviderStatusCancelled
	default:
		return billing.ProviderStatusUnknown
	}
}

func parseTime(v string) *time.Time {
	if v == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil
	}
	return &t
}
