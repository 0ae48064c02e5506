// Package pg bootstraps the PostgreSQL layer: a pgx/v5 connection pool with
// retry, goose migrations run over the same pool, a health check closure and
// helpers that classify pgx errors.
//
//	var cfg pg.Config
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	if cfg.AutoMigrate {
//		if err := pg.Migrate(ctx, pool, cfg, log); err != nil {
//			return err
//		}
//	}
//
// Repositories classify failures with [IsNotFoundError] and
// [IsDuplicateKeyError] instead of inspecting *pgconn.PgError directly.
package pg
