// Package environment names the deployment environment (development,
// staging, production) and carries it through context.Context.
//
//	env := environment.Parse(os.Getenv("APP_ENV"))
//	log := logger.New(logger.WithEnvironment(env, "quotagate"))
//	r.Use(environment.Middleware(env))
//
// LoggerExtractor plugs into logger.WithContextExtractors so request logs
// carry the environment.
package environment
