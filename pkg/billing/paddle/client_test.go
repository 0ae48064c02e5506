package paddle_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	paddlesdk "github.com/PaddleHQ/paddle-go-sdk/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/quotagate/pkg/billing"
	"github.com/dmitrymomot/quotagate/pkg/billing/paddle"
)

func sprintf(format string, args ...any) string {
	return fmt.Sprintf(format, args...)
}

// sign builds a Paddle-Signature header: ts=<unix>;h1=hex(hmac(secret, "<unix>:" + body)).
func sign(t *testing.T, secret string, ts time.Time, body []byte) string {
	t.Helper()
	unix := fmt.Sprint(ts.Unix())
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(unix + ":"))
	mac.Write(body)
	return "ts=" + unix + ";h1=" + hex.EncodeToString(mac.Sum(nil))
}

func TestNewClient(t *testing.T) {
	t.Parallel()

	_, err := paddle.NewClient(paddle.Config{WebhookSecret: "s"})
	assert.ErrorIs(t, err, paddle.ErrMissingAPIKey)

	_, err = paddle.NewClient(paddle.Config{APIKey: "k"})
	assert.ErrorIs(t, err, paddle.ErrMissingWebhookSecret)

	_, err = paddle.NewClient(paddle.Config{APIKey: "k", WebhookSecret: "s", Environment: "staging"})
	assert.ErrorIs(t, err, paddle.ErrInvalidEnvironment)

	for _, env := range []string{"", "production", "Sandbox"} {
		c, err := paddle.NewClient(paddle.Config{APIKey: "k", WebhookSecret: "s", Environment: env})
		require.NoError(t, err, env)
		assert.NotNil(t, c)
	}
}

func TestClient_Verify(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	const secret = "pdl_ntfset_secret"
	c, err := paddle.NewClient(paddle.Config{APIKey: "k", WebhookSecret: secret, Environment: "sandbox"})
	require.NoError(t, err)

	body := []byte(`{"event_id":"evt_1","event_type":"subscription.canceled","data":{"id":"sub_1"}}`)
	ts := time.Now()

	ok, err := c.Verify(ctx, body, sign(t, secret, ts, body))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.Verify(ctx, body, sign(t, "other-secret", ts, body))
	assert.NoError(t, err)
	assert.False(t, ok)

	ok, _ = c.Verify(ctx, []byte(`{"tampered":true}`), sign(t, secret, ts, body))
	assert.False(t, ok)

	ok, err = c.Verify(ctx, body, sign(t, secret, ts.Add(-time.Hour), body))
	assert.NoError(t, err)
	assert.False(t, ok, "stale signature")

	ok, err = c.Verify(ctx, body, sign(t, secret, ts.Add(time.Hour), body))
	assert.NoError(t, err)
	assert.False(t, ok, "signature from the future")

	ok, err = c.Verify(ctx, body, "v1,garbage")
	assert.ErrorIs(t, err, paddlesdk.ErrInvalidSignatureFormat)
	assert.False(t, ok)

	ok, err = c.Verify(ctx, body, "")
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestClient_VerifyCustomTolerance(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	const secret = "pdl_ntfset_secret"
	c, err := paddle.NewClient(paddle.Config{APIKey: "k", WebhookSecret: secret, WebhookTolerance: 2 * time.Hour})
	require.NoError(t, err)

	body := []byte(`{"event_id":"evt_2"}`)
	ok, err := c.Verify(ctx, body, sign(t, secret, time.Now().Add(-time.Hour), body))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestClient_Parse(t *testing.T) {
	t.Parallel()

	c, err := paddle.NewClient(paddle.Config{APIKey: "k", WebhookSecret: "s"})
	require.NoError(t, err)

	ev, err := c.Parse([]byte(`{"event_id":"evt_1","event_type":"subscription.paused","data":{"id":"sub_1"}}`))
	require.NoError(t, err)
	assert.Equal(t, billing.EventHalted, ev.Type)
}

func TestClient_CreateCheckoutLinkRequiresPrice(t *testing.T) {
	t.Parallel()

	c, err := paddle.NewClient(paddle.Config{APIKey: "k", WebhookSecret: "s"})
	require.NoError(t, err)

	_, err = c.CreateCheckoutLink(context.Background(), billing.CheckoutRequest{})
	assert.Error(t, err)
}
