package billing

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ProductPlan is one catalog entry: the usage limit of a plan for a product
// and, for paid plans, the provider price ID it is sold under.
type ProductPlan struct {
	ProductID      string `yaml:"product_id"`
	Plan           Plan   `yaml:"plan"`
	UsageLimit     int64  `yaml:"usage_limit"`
	ExternalPlanID string `yaml:"external_plan_id"`
}

// Catalog resolves plan limits and maps provider plan IDs back to plans.
type Catalog interface {
	// FindPlan returns ErrPlanNotFound if the product has no such plan.
	FindPlan(ctx context.Context, productID string, plan Plan) (ProductPlan, error)
	// FindPlanByExternalID returns ErrPlanNotFound for unknown provider plan IDs.
	FindPlanByExternalID(ctx context.Context, externalPlanID string) (ProductPlan, error)
}

type planKey struct {
	productID string
	plan      Plan
}

type inMemCatalog struct {
	mu         sync.RWMutex
	plans      map[planKey]ProductPlan
	byExternal map[string]ProductPlan
}

// NewInMemCatalog returns a Catalog backed by a copy of the given plans.
// Panics on an invalid catalog to fail fast during initialization.
func NewInMemCatalog(plans ...ProductPlan) Catalog {
	c, err := newInMemCatalog(plans)
	if err != nil {
		panic(err)
	}
	return c
}

func newInMemCatalog(plans []ProductPlan) (*inMemCatalog, error) {
	if err := ValidatePlans(plans); err != nil {
		return nil, err
	}
	c := &inMemCatalog{
		plans:      make(map[planKey]ProductPlan, len(plans)),
		byExternal: make(map[string]ProductPlan, len(plans)),
	}
	for _, p := range plans {
		c.plans[planKey{p.ProductID, p.Plan}] = p
		if p.ExternalPlanID != "" {
			c.byExternal[p.ExternalPlanID] = p
		}
	}
	return c, nil
}

func (c *inMemCatalog) FindPlan(_ context.Context, productID string, plan Plan) (ProductPlan, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.plans[planKey{productID, plan}]
	if !ok {
		return ProductPlan{}, ErrPlanNotFound
	}
	return p, nil
}

func (c *inMemCatalog) FindPlanByExternalID(_ context.Context, externalPlanID string) (ProductPlan, error) {
	if externalPlanID == "" {
		return ProductPlan{}, ErrPlanNotFound
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.byExternal[externalPlanID]
	if !ok {
		return ProductPlan{}, ErrPlanNotFound
	}
	return p, nil
}

// ValidatePlans ensures catalog entries are internally consistent.
// Catches configuration errors at startup instead of at the first webhook.
func ValidatePlans(plans []ProductPlan) error {
	seen := make(map[planKey]struct{}, len(plans))
	external := make(map[string]struct{}, len(plans))

	for _, p := range plans {
		if p.ProductID == "" {
			return errors.Join(ErrInvalidPlanConfiguration, errors.New("product id is required"))
		}
		if !p.Plan.Valid() {
			return errors.Join(ErrInvalidPlanConfiguration,
				fmt.Errorf("product %s: unknown plan %q", p.ProductID, p.Plan))
		}
		if p.UsageLimit < Unlimited {
			return errors.Join(ErrInvalidPlanConfiguration,
				fmt.Errorf("product %s plan %s: negative usage limit %d", p.ProductID, p.Plan, p.UsageLimit))
		}
		if p.Plan.IsPaid() && p.ExternalPlanID == "" {
			return errors.Join(ErrInvalidPlanConfiguration,
				fmt.Errorf("product %s plan %s: external plan id is required for paid plans", p.ProductID, p.Plan))
		}

		key := planKey{p.ProductID, p.Plan}
		if _, dup := seen[key]; dup {
			return errors.Join(ErrInvalidPlanConfiguration,
				fmt.Errorf("product %s plan %s defined twice", p.ProductID, p.Plan))
		}
		seen[key] = struct{}{}

		if p.ExternalPlanID != "" {
			if _, dup := external[p.ExternalPlanID]; dup {
				return errors.Join(ErrInvalidPlanConfiguration,
					fmt.Errorf("external plan id %s mapped twice", p.ExternalPlanID))
			}
			external[p.ExternalPlanID] = struct{}{}
		}
	}
	return nil
}
