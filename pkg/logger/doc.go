// Package logger builds log/slog loggers and holds the attribute helpers
// used across the service so keys stay consistent (user_id, product_id,
// subscription_id, external_id, request_id, result, count).
//
// New takes functional options. WithEnvironment picks text at debug level for
// development and JSON at info level for staging and production, and stamps
// every record with the service name and environment:
//
//	log := logger.New(
//		logger.WithEnvironment(environment.Parse(os.Getenv("APP_ENV")), "quotagate"),
//		logger.WithContextExtractors(requestIDFromContext),
//	)
//	log.InfoContext(ctx, "subscription renewed",
//		logger.SubscriptionID(sub.ID),
//		logger.Result("renewed"),
//	)
//
// Context extractors run on every record, so request-scoped values are added
// without threading loggers through handlers. Error and Errors return an
// empty attribute for nil errors, which slog drops.
package logger
