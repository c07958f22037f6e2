package middleware

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"github.com/guttosm/tickerql/internal/logger"
	"github.com/guttosm/tickerql/internal/metrics"
)

// Decision is the outcome of one admission check.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// Limiter admits or rejects a request for key within the current fixed window.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// fixedWindow computes the window a timestamp falls into.
type fixedWindow struct {
	limit  int
	window time.Duration
}

func (w fixedWindow) index(now time.Time) int64 {
	return now.UnixNano() / int64(w.window)
}

func (w fixedWindow) decide(now time.Time, idx int64, count int) Decision {
	reset := time.Unix(0, (idx+1)*int64(w.window))
	d := Decision{
		Allowed:   count <= w.limit,
		Limit:     w.limit,
		Remaining: max(w.limit-count, 0),
		ResetAt:   reset,
	}
	if !d.Allowed {
		d.RetryAfter = reset.Sub(now)
	}
	return d
}

type windowCount struct {
	idx   int64
	count int
}

// MemoryLimiter is a per-process fixed-window counter.
//
// Counts are not shared between instances; use RedisLimiter when running more than one.
type MemoryLimiter struct {
	fixedWindow
	mu        sync.Mutex
	counters  map[string]*windowCount
	lastSweep int64
	now       func() time.Time
}

// NewMemoryLimiter admits limit requests per key in each window.
func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		fixedWindow: fixedWindow{limit: limit, window: window},
		counters:    make(map[string]*windowCount),
		now:         time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Decision, error) {
	now := l.now()
	idx := l.index(now)

	l.mu.Lock()
	defer l.mu.Unlock()

	if idx != l.lastSweep {
		for k, wc := range l.counters {
			if wc.idx < idx {
				delete(l.counters, k)
			}
		}
		l.lastSweep = idx
	}

	wc, ok := l.counters[key]
	if !ok || wc.idx != idx {
		wc = &windowCount{idx: idx}
		l.counters[key] = wc
	}
	wc.count++
	return l.decide(now, idx, wc.count), nil
}

// RedisLimiter keeps the counters in Redis so every instance shares the quota.
// Keys look like ratelimit:<client>:<window index> and expire with the window.
type RedisLimiter struct {
	fixedWindow
	client *redis.Client
	now    func() time.Time
}

// NewRedisLimiter admits limit requests per key in each window, counted in Redis.
func NewRedisLimiter(client *redis.Client, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		fixedWindow: fixedWindow{limit: limit, window: window},
		client:      client,
		now:         time.Now,
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	now := l.now()
	idx := l.index(now)
	windowKey := fmt.Sprintf("ratelimit:%s:%d", key, idx)

	var incr *redis.IntCmd
	_, err := l.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, windowKey)
		pipe.Expire(ctx, windowKey, l.window)
		return nil
	})
	if err != nil {
		return Decision{}, fmt.Errorf("redis incr %s: %w", windowKey, err)
	}
	return l.decide(now, idx, int(incr.Val())), nil
}

// RateLimiter throttles requests per client IP using l.
//
// Behavior:
//   - Sets X-RateLimit-Limit, X-RateLimit-Remaining and X-RateLimit-Reset (unix seconds).
//   - Rejects with 429, a Retry-After header and a dto.ErrorResponse once the quota is used.
//   - If the limiter itself fails the request is let through and the error logged.
//
// Usage:
//
//	limiter := middleware.NewMemoryLimiter(10, time.Minute)
//	router.POST("/graphql", middleware.RateLimiter(limiter), handler.GraphQL)
func RateLimiter(l Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()

		d, err := l.Allow(c.Request.Context(), key)
		if err != nil {
			logger.L().Error().Err(err).Str("client_ip", key).Msg("rate limit check failed")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(d.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))

		if !d.Allowed {
			metrics.RateLimited.Inc()
			retry := max(int(math.Ceil(d.RetryAfter.Seconds())), 1)
			c.Header("Retry-After", strconv.Itoa(retry))
			logger.L().Warn().Str("client_ip", key).Msg("rate limit exceeded")
			AbortWithError(c, http.StatusTooManyRequests, "rate limit exceeded", nil)
			return
		}

		c.Next()
	}
}
