package pgstore_test

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/quotagate/pkg/billing"
	"github.com/dmitrymomot/quotagate/pkg/billing/pgstore"
)

func TestCatalog_FindPlan(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	db := &mockDB{}
	db.On("QueryRow", mock.Anything, mock.Anything, []any{"writer", "PRO"}).
		Return(stubRow{values: []any{"writer", "PRO", int64(100), "pri_pro"}})
	db.On("QueryRow", mock.Anything, mock.Anything, mock.Anything).
		Return(stubRow{err: pgx.ErrNoRows})

	c := pgstore.NewCatalog(db)

	p, err := c.FindPlan(ctx, "writer", billing.PlanPro)
	require.NoError(t, err)
	assert.Equal(t, billing.ProductPlan{ProductID: "writer", Plan: billing.PlanPro, UsageLimit: 100, ExternalPlanID: "pri_pro"}, p)

	_, err = c.FindPlan(ctx, "writer", billing.PlanMax)
	assert.ErrorIs(t, err, billing.ErrPlanNotFound)

	_, err = c.FindPlanByExternalID(ctx, "")
	assert.ErrorIs(t, err, billing.ErrPlanNotFound)
}

func TestCatalog_UpsertPlans(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	db := &mockDB{}
	db.On("Exec", mock.Anything, mock.Anything, mock.Anything).Return(pgconn.NewCommandTag("INSERT 0 1"), nil)
	c := pgstore.NewCatalog(db)

	err := c.UpsertPlans(ctx, []billing.ProductPlan{{ProductID: "writer", Plan: billing.PlanPro, UsageLimit: 10}})
	require.ErrorIs(t, err, billing.ErrInvalidPlanConfiguration)
	db.AssertNotCalled(t, "Exec", mock.Anything, mock.Anything, mock.Anything)

	err = c.UpsertPlans(ctx, []billing.ProductPlan{
		{ProductID: "writer", Plan: billing.PlanFree, UsageLimit: 5},
		{ProductID: "writer", Plan: billing.PlanPro, UsageLimit: 100, ExternalPlanID: "pri_pro"},
	})
	require.NoError(t, err)
	db.AssertNumberOfCalls(t, "Exec", 2)
}
