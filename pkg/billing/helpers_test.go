package billing_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/quotagate/pkg/billing"
)

var t0 = time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

const (
	productWriter = "writer"
	priceProID    = "pri_writer_pro"
	priceMaxID    = "pri_writer_max"
)

func testCatalog() billing.Catalog {
	return billing.NewInMemCatalog(
		billing.ProductPlan{ProductID: productWriter, Plan: billing.PlanFree, UsageLimit: 5},
		billing.ProductPlan{ProductID: productWriter, Plan: billing.PlanPro, UsageLimit: 100, ExternalPlanID: priceProID},
		billing.ProductPlan{ProductID: productWriter, Plan: billing.PlanMax, UsageLimit: billing.Unlimited, ExternalPlanID: priceMaxID},
	)
}

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) FetchSubscription(ctx context.Context, externalID string) (*billing.ProviderSubscription, error) {
	args := m.Called(ctx, externalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.ProviderSubscription), args.Error(1)
}

type mockCheckout struct {
	mock.Mock
}

func (m *mockCheckout) CreateCheckoutLink(ctx context.Context, req billing.CheckoutRequest) (*billing.CheckoutLink, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.CheckoutLink), args.Error(1)
}

// staticVerifier accepts exactly one signature value.
type staticVerifier struct {
	valid string
	err   error
}

func (v staticVerifier) Verify(_ context.Context, _ []byte, signature string) (bool, error) {
	if v.err != nil {
		return false, v.err
	}
	return signature == v.valid, nil
}

// eventParser returns a preset event and records how often it was asked.
type eventParser struct {
	event *billing.WebhookEvent
	err   error
	calls int
}

func (p *eventParser) Parse(_ []byte) (*billing.WebhookEvent, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	ev := *p.event
	return &ev, nil
}

type memDeduper struct {
	mu      sync.Mutex
	claimed map[string]bool
}

func newMemDeduper() *memDeduper {
	return &memDeduper{claimed: make(map[string]bool)}
}

func (d *memDeduper) Claim(_ context.Context, id string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.claimed[id] {
		return false, nil
	}
	d.claimed[id] = true
	return true, nil
}

func (d *memDeduper) Release(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.claimed, id)
	return nil
}

// faultyRepo injects failures into an otherwise working repository.
type faultyRepo struct {
	billing.Repository
	failUpdateFor uuid.UUID
	failList      bool
}

var errStorage = errors.New("storage unavailable")

func (r *faultyRepo) Update(ctx context.Context, sub *billing.Subscription) error {
	if sub.ID == r.failUpdateFor {
		return errStorage
	}
	return r.Repository.Update(ctx, sub)
}

func (r *faultyRepo) ListExpiredPaid(ctx context.Context, before time.Time, limit int) ([]*billing.Subscription, error) {
	if r.failList {
		return nil, errStorage
	}
	return r.Repository.ListExpiredPaid(ctx, before, limit)
}

func freeSub(createdAt time.Time) *billing.Subscription {
	return billing.NewFreeSubscription(uuid.New(), productWriter, 5, createdAt)
}

// paidSub returns an ACTIVE PRO subscription whose current period is [start, start+30d).
func paidSub(start time.Time) *billing.Subscription {
	sub := billing.NewFreeSubscription(uuid.New(), productWriter, 5, t0)
	sub.Plan = billing.PlanPro
	sub.UsageLimit = 100
	sub.UsageCount = 10
	sub.CurrentPeriodStart = start
	sub.CurrentPeriodEnd = start.Add(billing.PeriodLength)
	sub.ExternalSubscriptionID = "sub_" + sub.ID.String()[:8]
	sub.UpdatedAt = start
	return sub
}

type fixture struct {
	repo     billing.Repository
	provider *mockProvider
	svc      *billing.Service
}

func newFixture(t *testing.T, subs ...*billing.Subscription) *fixture {
	t.Helper()
	repo := billing.NewMemoryStore(subs...)
	return newFixtureWithRepo(t, repo)
}

func newFixtureWithRepo(t *testing.T, repo billing.Repository, opts ...billing.ServiceOption) *fixture {
	t.Helper()
	provider := &mockProvider{}
	svc := billing.NewService(repo, testCatalog(), provider, opts...)
	return &fixture{repo: repo, provider: provider, svc: svc}
}

func (f *fixture) load(t *testing.T, id uuid.UUID) *billing.Subscription {
	t.Helper()
	sub, err := f.repo.FindByID(context.Background(), id)
	require.NoError(t, err)
	return sub
}

func ptr[T any](v T) *T {
	return &v
}
