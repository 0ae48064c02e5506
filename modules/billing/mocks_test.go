package billing_test

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/dmitrymomot/quotagate/pkg/billing"
)

type mockService struct {
	mock.Mock
}

func (m *mockService) Provision(ctx context.Context, userID uuid.UUID, productID string, now time.Time) (*billing.Subscription, error) {
	args := m.Called(ctx, userID, productID, now)
	sub, _ := args.Get(0).(*billing.Subscription)
	return sub, args.Error(1)
}

func (m *mockService) GetSubscription(ctx context.Context, userID uuid.UUID, productID string) (*billing.Subscription, error) {
	args := m.Called(ctx, userID, productID)
	sub, _ := args.Get(0).(*billing.Subscription)
	return sub, args.Error(1)
}

func (m *mockService) CheckAndGate(ctx context.Context, userID uuid.UUID, productID string, now time.Time) (billing.Decision, error) {
	args := m.Called(ctx, userID, productID, now)
	return args.Get(0).(billing.Decision), args.Error(1)
}

func (m *mockService) ConsumeUsage(ctx context.Context, subscriptionID uuid.UUID, n int64) (int64, error) {
	args := m.Called(ctx, subscriptionID, n)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockService) CreateCheckout(ctx context.Context, userID uuid.UUID, productID string, plan billing.Plan, opts billing.CheckoutOptions) (*billing.CheckoutLink, error) {
	args := m.Called(ctx, userID, productID, plan, opts)
	link, _ := args.Get(0).(*billing.CheckoutLink)
	return link, args.Error(1)
}

func (m *mockService) VerifyCheckout(ctx context.Context, userID uuid.UUID, productID, externalID string, now time.Time) (*billing.Subscription, error) {
	args := m.Called(ctx, userID, productID, externalID, now)
	sub, _ := args.Get(0).(*billing.Subscription)
	return sub, args.Error(1)
}

func (m *mockService) HandleWebhookEvent(ctx context.Context, payload []byte, signature string, now time.Time) error {
	args := m.Called(ctx, payload, signature, now)
	return args.Error(0)
}

// noopProvider fails every lookup; free-plan flows never reach it.
type noopProvider struct{}

func (noopProvider) FetchSubscription(context.Context, string) (*billing.ProviderSubscription, error) {
	return nil, billing.ErrProviderError
}
