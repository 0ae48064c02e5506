// Package redis connects to Redis with go-redis v9 and exposes a health probe.
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
// The client backs webhook de-duplication (see pkg/billing/redisdedup).
package redis
