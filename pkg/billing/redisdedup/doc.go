// Package redisdedup claims provider webhook event IDs in Redis so a
// redelivered event is applied at most once across all replicas.
//
// Claims are SET NX keys with a TTL longer than the provider's retry window:
//
//	dedup := redisdedup.New(redisClient, redisdedup.WithTTL(72*time.Hour))
//	svc := billing.NewService(repo, catalog, provider,
//		billing.WithDeduper(dedup),
//	)
//
// When applying an event fails the service releases the claim, letting the
// provider's retry go through.
package redisdedup
