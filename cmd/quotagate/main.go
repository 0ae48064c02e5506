package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	httpbilling "github.com/dmitrymomot/quotagate/modules/billing"
	"github.com/dmitrymomot/quotagate/pkg/billing"
	"github.com/dmitrymomot/quotagate/pkg/billing/paddle"
	"github.com/dmitrymomot/quotagate/pkg/billing/pgstore"
	"github.com/dmitrymomot/quotagate/pkg/billing/redisdedup"
	"github.com/dmitrymomot/quotagate/pkg/environment"
	"github.com/dmitrymomot/quotagate/pkg/httpserver"
	"github.com/dmitrymomot/quotagate/pkg/logger"
	"github.com/dmitrymomot/quotagate/pkg/pg"
	"github.com/dmitrymomot/quotagate/pkg/redis"
	"github.com/dmitrymomot/quotagate/pkg/scheduler"
)

const sweepJob = "billing-sweep"

func main() {
	if err := run(); err != nil {
		slog.Error("quotagate stopped", logger.Error(err))
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfigs()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	env := environment.Parse(cfg.app.Env)
	log := logger.New(
		logger.WithEnvironment(env, cfg.app.Name),
		logger.WithLevelName(cfg.app.LogLevel),
		logger.WithContextExtractors(requestIDExtractor),
	)
	logger.SetAsDefault(log)

	pool, err := pg.Connect(ctx, cfg.pg)
	if err != nil {
		return err
	}
	defer pool.Close()

	if cfg.pg.AutoMigrate {
		if err := pg.Migrate(ctx, pool, cfg.pg, log); err != nil {
			return err
		}
	}

	rdb, err := redis.Connect(ctx, cfg.redis)
	if err != nil {
		return err
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Warn("failed to close redis client", logger.Error(err))
		}
	}()

	repo := pgstore.NewRepository(pool)
	catalog := pgstore.NewCatalog(pool)
	if err := seedCatalog(ctx, catalog, cfg.billing.CatalogFile, log); err != nil {
		return err
	}

	provider, err := paddle.NewClient(cfg.paddle)
	if err != nil {
		return err
	}

	svc := billing.NewService(repo, catalog, provider,
		billing.WithLogger(log),
		billing.WithConfig(cfg.billing),
		billing.WithCheckout(provider),
		billing.WithWebhooks(provider, provider),
		billing.WithDeduper(redisdedup.New(rdb)),
	)

	sched := scheduler.New(scheduler.WithLogger(log))
	if err := sched.Add(sweepJob, scheduler.EveryInterval(svc.Config().SweepInterval), func(ctx context.Context, now time.Time) error {
		_, err := svc.RunSweepOnce(ctx, now)
		return err
	}); err != nil {
		return err
	}

	server := httpserver.NewFromConfig(cfg.http, httpserver.WithLogger(log))
	api := httpbilling.Router(svc,
		httpbilling.WithLogger(log),
		httpbilling.WithMaxBodyBytes(cfg.http.MaxBodyBytes),
	)
	handler := newRouter(env, log, api, pg.Healthcheck(pool), redis.Healthcheck(rdb))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := sched.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return server.Run(gctx, handler)
	})

	log.Info("quotagate started", slog.String("addr", cfg.http.Addr), slog.String("env", env.String()))
	return g.Wait()
}

func newRouter(env environment.Environment, log *slog.Logger, api http.Handler, readiness ...func(context.Context) error) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(environment.Middleware(env))

	r.Get("/healthz", httpserver.HealthCheckHandler(log))
	r.Get("/readyz", httpserver.HealthCheckHandler(log, readiness...))
	r.Handle("/metrics", promhttp.Handler())
	r.Mount("/", api)
	return r
}

func seedCatalog(ctx context.Context, catalog *pgstore.Catalog, path string, log *slog.Logger) error {
	if path == "" {
		return nil
	}
	plans, err := billing.LoadPlansFile(path)
	if err != nil {
		return err
	}
	if err := catalog.UpsertPlans(ctx, plans); err != nil {
		return err
	}
	log.Info("plan catalog seeded", slog.String("file", path), logger.Count(len(plans)))
	return nil
}

func requestIDExtractor(ctx context.Context) (slog.Attr, bool) {
	if id := middleware.GetReqID(ctx); id != "" {
		return logger.RequestID(id), true
	}
	return slog.Attr{}, false
}
