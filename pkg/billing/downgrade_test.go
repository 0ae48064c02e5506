package billing_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/quotagate/pkg/billing"
)

func TestDowngrader_Downgrade(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	sub := paidSub(t0.Add(40 * 24 * time.Hour))
	sub.Status = billing.StatusHalted
	sub.CancelAtPeriodEnd = true
	repo := billing.NewMemoryStore(sub)
	d := billing.NewDowngrader(repo, testCatalog(), 3, nil)

	now := t0.Add(75 * 24 * time.Hour)
	require.NoError(t, d.Downgrade(ctx, sub, now))

	got, err := repo.FindByID(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, got, sub, "caller copy reflects persisted state")
	assert.Equal(t, billing.PlanFree, got.Plan)
	assert.Equal(t, billing.StatusActive, got.Status)
	assert.Equal(t, int64(5), got.UsageLimit)
	assert.Zero(t, got.UsageCount)
	assert.Empty(t, got.ExternalSubscriptionID)
	assert.False(t, got.CancelAtPeriodEnd)
	// anchored at creation, not at now
	assert.Equal(t, t0.Add(60*24*time.Hour), got.CurrentPeriodStart)
	assert.Equal(t, t0.Add(90*24*time.Hour), got.CurrentPeriodEnd)
	assert.Equal(t, now, got.UpdatedAt)
}

func TestDowngrader_Idempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	sub := paidSub(t0)
	repo := billing.NewMemoryStore(sub)
	d := billing.NewDowngrader(repo, testCatalog(), 3, nil)

	now := t0.Add(33 * 24 * time.Hour)
	require.NoError(t, d.Downgrade(ctx, sub, now))
	once, err := repo.FindByID(ctx, sub.ID)
	require.NoError(t, err)

	require.NoError(t, d.Downgrade(ctx, sub, now.Add(time.Minute)))
	twice, err := repo.FindByID(ctx, sub.ID)
	require.NoError(t, err)

	twice.UpdatedAt = once.UpdatedAt
	assert.Equal(t, once, twice)
}

func TestDowngrader_CatalogMissUsesFallback(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	sub := paidSub(t0)
	sub.ProductID = "painter"
	repo := billing.NewMemoryStore(sub)
	d := billing.NewDowngrader(repo, testCatalog(), 3, nil)

	require.NoError(t, d.Downgrade(ctx, sub, t0.Add(time.Hour)))
	assert.Equal(t, int64(3), sub.UsageLimit)
	assert.Equal(t, billing.PlanFree, sub.Plan)
}

func TestDowngrader_StorageFailureLeavesCallerCopy(t *testing.T) {
	t.Parallel()

	sub := paidSub(t0)
	repo := &faultyRepo{Repository: billing.NewMemoryStore(sub), failUpdateFor: sub.ID}
	d := billing.NewDowngrader(repo, testCatalog(), 3, nil)

	err := d.Downgrade(context.Background(), sub, t0.Add(time.Hour))
	require.ErrorIs(t, err, errStorage)
	assert.Equal(t, billing.PlanPro, sub.Plan)
	assert.NotEmpty(t, sub.ExternalSubscriptionID)
}
