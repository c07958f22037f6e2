package app

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/guttosm/tickerql/config"
	"github.com/guttosm/tickerql/internal/middleware"
)

// newLimiter builds the throttle backend selected by cfg.Backend.
//
// For "redis" it also returns the client's ping as a readiness check and a
// close function; both are nil for the memory backend.
func newLimiter(ctx context.Context, cfg config.RateLimitConfig) (middleware.Limiter, func(context.Context) error, func(), error) {
	switch cfg.Backend {
	case "", "memory":
		return middleware.NewMemoryLimiter(cfg.Requests, cfg.Window), nil, nil, nil
	case "redis":
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, nil, fmt.Errorf("ping redis: %w", err)
		}
		ping := func(ctx context.Context) error { return client.Ping(ctx).Err() }
		closeFn := func() { _ = client.Close() }
		return middleware.NewRedisLimiter(client, cfg.Requests, cfg.Window), ping, closeFn, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown rate limit backend %q", cfg.Backend)
	}
}
