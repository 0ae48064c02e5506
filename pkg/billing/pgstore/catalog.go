package pgstore

import (
	"context"
	"fmt"

	"github.com/dmitrymomot/quotagate/pkg/billing"
	"github.com/dmitrymomot/quotagate/pkg/pg"
)

// Catalog is a billing.Catalog over the product_plans table.
type Catalog struct {
	db DB
}

var _ billing.Catalog = (*Catalog)(nil)

// NewCatalog creates a Catalog. Panics if db is nil.
func NewCatalog(db DB) *Catalog {
	if db == nil {
		panic("pgstore: DB is required")
	}
	return &Catalog{db: db}
}

func (c *Catalog) FindPlan(ctx context.Context, productID string, plan billing.Plan) (billing.ProductPlan, error) {
	return c.findOne(ctx, `
SELECT product_id, plan, usage_limit, COALESCE(external_plan_id, '')
FROM product_plans
WHERE product_id = $1 AND plan = $2
`, productID, string(plan))
}

func (c *Catalog) FindPlanByExternalID(ctx context.Context, externalPlanID string) (billing.ProductPlan, error) {
	if externalPlanID == "" {
		return billing.ProductPlan{}, billing.ErrPlanNotFound
	}
	return c.findOne(ctx, `
SELECT product_id, plan, usage_limit, COALESCE(external_plan_id, '')
FROM product_plans
WHERE external_plan_id = $1
`, externalPlanID)
}

// UpsertPlans validates plans and writes them, replacing existing entries
// with the same (product_id, plan).
func (c *Catalog) UpsertPlans(ctx context.Context, plans []billing.ProductPlan) error {
	if err := billing.ValidatePlans(plans); err != nil {
		return err
	}

	for _, p := range plans {
		_, err := c.db.Exec(ctx, `
INSERT INTO product_plans (product_id, plan, usage_limit, external_plan_id)
VALUES ($1, $2, $3, NULLIF($4, ''))
ON CONFLICT (product_id, plan) DO UPDATE SET
	usage_limit = EXCLUDED.usage_limit,
	external_plan_id = EXCLUDED.external_plan_id,
	updated_at = NOW()
`, p.ProductID, string(p.Plan), p.UsageLimit, p.ExternalPlanID)
		if err != nil {
			return fmt.Errorf("failed to upsert plan %s/%s: %w", p.ProductID, p.Plan, err)
		}
	}
	return nil
}

func (c *Catalog) findOne(ctx context.Context, query string, args ...any) (billing.ProductPlan, error) {
	var (
		p    billing.ProductPlan
		plan string
	)
	err := c.db.QueryRow(ctx, query, args...).Scan(&p.ProductID, &plan, &p.UsageLimit, &p.ExternalPlanID)
	if pg.IsNotFoundError(err) {
		return billing.ProductPlan{}, billing.ErrPlanNotFound
	}
	if err != nil {
		return billing.ProductPlan{}, fmt.Errorf("failed to load product plan: %w", err)
	}

	p.Plan = billing.Plan(plan)
	if !p.Plan.Valid() {
		return billing.ProductPlan{}, fmt.Errorf("%w: plan %q", ErrCorruptRow, plan)
	}
	return p, nil
}
