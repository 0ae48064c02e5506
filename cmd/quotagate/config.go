package main

import (
	"errors"

	"github.com/dmitrymomot/quotagate/pkg/billing"
	"github.com/dmitrymomot/quotagate/pkg/billing/paddle"
	"github.com/dmitrymomot/quotagate/pkg/config"
	"github.com/dmitrymomot/quotagate/pkg/httpserver"
	"github.com/dmitrymomot/quotagate/pkg/pg"
	"github.com/dmitrymomot/quotagate/pkg/redis"
)

type appConfig struct {
	Env      string `env:"APP_ENV" envDefault:"development"`
	Name     string `env:"APP_NAME" envDefault:"quotagate"`
	LogLevel string `env:"LOG_LEVEL"`
}

type configs struct {
	app     appConfig
	pg      pg.Config
	redis   redis.Config
	http    httpserver.Config
	paddle  paddle.Config
	billing billing.Config
}

func loadConfigs() (configs, error) {
	var c configs
	err := errors.Join(
		config.Load(&c.app),
		config.Load(&c.pg),
		config.Load(&c.redis),
		config.Load(&c.http),
		config.Load(&c.paddle),
		config.Load(&c.billing),
	)
	return c, err
}
