package billing

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type catalogFile struct {
	Plans []ProductPlan `yaml:"plans"`
}

// ParseCatalogYAML builds a Catalog from YAML content of the form:
//
//	plans:
//	  - product_id: writer
//	    plan: FREE
//	    usage_limit: 5
//	  - product_id: writer
//	    plan: PRO
//	    usage_limit: 500
//	    external_plan_id: pri_01h_writer_pro
func ParseCatalogYAML(content []byte) (Catalog, error) {
	plans, err := ParsePlansYAML(content)
	if err != nil {
		return nil, err
	}
	return NewInMemCatalog(plans...), nil
}

// ParsePlansYAML decodes and validates the plans of a YAML catalog without
// building a Catalog, e.g. to seed a persistent one.
func ParsePlansYAML(content []byte) ([]ProductPlan, error) {
	var f catalogFile
	if err := yaml.Unmarshal(content, &f); err != nil {
		return nil, errors.Join(ErrFailedToLoadPlans, err)
	}
	if len(f.Plans) == 0 {
		return nil, errors.Join(ErrFailedToLoadPlans, errors.New("no plans defined"))
	}
	if err := ValidatePlans(f.Plans); err != nil {
		return nil, err
	}
	return f.Plans, nil
}

// LoadCatalogFile reads a YAML catalog from path.
func LoadCatalogFile(path string) (Catalog, error) {
	plans, err := LoadPlansFile(path)
	if err != nil {
		return nil, err
	}
	return NewInMemCatalog(plans...), nil
}

// LoadPlansFile reads and validates the plans of a YAML catalog file.
func LoadPlansFile(path string) ([]ProductPlan, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoadPlans, fmt.Errorf("read %s: %w", path, err))
	}
	return ParsePlansYAML(content)
}
