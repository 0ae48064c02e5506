// Package config loads typed configuration from the environment.
//
// It combines github.com/joho/godotenv (reading .env files) with
// github.com/caarlos0/env/v11 (parsing `env` struct tags). Each config type
// is parsed once per process and cached, so packages can call Load for the
// same struct without re-reading the environment:
//
//	type Config struct {
//		GracePeriod time.Duration `env:"BILLING_GRACE_PERIOD" envDefault:"2h"`
//	}
//
//	var cfg Config
//	config.MustLoad(&cfg)
//
// LoadEnv reads explicit .env files (later files win); ResetCache and
// ForceReloadConfig exist for tests that change the environment.
package config
