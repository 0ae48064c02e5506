package billing

import "time"

// Config holds the timing and batching knobs of the billing core.
type Config struct {
	// GracePeriod is how long past expiry an ACTIVE paid subscription keeps
	// access without asking the provider; the renewal webhook is expected within it.
	GracePeriod time.Duration `env:"BILLING_GRACE_PERIOD" envDefault:"2h"`

	SweepInterval time.Duration `env:"BILLING_SWEEP_INTERVAL" envDefault:"1h"`

	// SweepThreshold must stay longer than GracePeriod so request-time
	// reconciliation resolves most subscriptions before the sweep does.
	SweepThreshold time.Duration `env:"BILLING_SWEEP_THRESHOLD" envDefault:"3h"`

	// ForceDowngradeAfter is how long past expiry an unreachable provider is tolerated.
	ForceDowngradeAfter time.Duration `env:"BILLING_FORCE_DOWNGRADE_AFTER" envDefault:"168h"`

	// HaltedDowngradeAfter is how long a HALTED subscription stays untouched before it is reset to FREE.
	HaltedDowngradeAfter time.Duration `env:"BILLING_HALTED_DOWNGRADE_AFTER" envDefault:"168h"`

	SweepBatchSize int    `env:"BILLING_SWEEP_BATCH_SIZE" envDefault:"100"`
	FreeUsageLimit int64  `env:"BILLING_FREE_USAGE_LIMIT" envDefault:"5"`
	CatalogFile    string `env:"BILLING_CATALOG_FILE"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		GracePeriod:          2 * time.Hour,
		SweepInterval:        time.Hour,
		SweepThreshold:       3 * time.Hour,
		ForceDowngradeAfter:  7 * 24 * time.Hour,
		HaltedDowngradeAfter: 7 * 24 * time.Hour,
		SweepBatchSize:       100,
		FreeUsageLimit:       DefaultFreeUsageLimit,
	}
}

// withDefaults fills zero values from DefaultConfig.
// A zero FreeUsageLimit counts as unset.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.GracePeriod <= 0 {
		c.GracePeriod = d.GracePeriod
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = d.SweepInterval
	}
	if c.SweepThreshold <= 0 {
		c.SweepThreshold = d.SweepThreshold
	}
	if c.ForceDowngradeAfter <= 0 {
		c.ForceDowngradeAfter = d.ForceDowngradeAfter
	}
	if c.HaltedDowngradeAfter <= 0 {
		c.HaltedDowngradeAfter = d.HaltedDowngradeAfter
	}
	if c.SweepBatchSize <= 0 {
		c.SweepBatchSize = d.SweepBatchSize
	}
	if c.FreeUsageLimit == 0 || c.FreeUsageLimit < Unlimited {
		c.FreeUsageLimit = d.FreeUsageLimit
	}
	return c
}
