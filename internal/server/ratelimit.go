package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/YuminosukeSato/weldsim/pkg/log"
)

// CounterStore is the subset of the redis client used by the limiter.
type CounterStore interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	TTL(ctx context.Context, key string) *redis.DurationCmd
}

// RateLimiterConfig configures NewRateLimiter.
type RateLimiterConfig struct {
	Store     CounterStore
	Limit     int
	Window    time.Duration
	KeyPrefix string
	Extractor func(c *gin.Context) string
	Logger    log.Logger
}

// NewRedisClient returns a client for addr. It does not connect.
func NewRedisClient(addr string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        addr,
		DB:          db,
		DialTimeout: 500 * time.Millisecond,
		ReadTimeout: 500 * time.Millisecond,
	})
}

// NewRateLimiter counts requests per client in fixed redis windows
// (INCR + EXPIRE) and rejects requests over the limit with 429. When redis
// is unreachable, requests pass. Clients are keyed by gin's ClientIP.
func NewRateLimiter(cfg RateLimiterConfig) gin.HandlerFunc {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "weldsim:rl:"
	}
	if cfg.Logger == nil {
		cfg.Logger = log.GetLoggerWithName("ratelimit")
	}
	if cfg.Extractor == nil {
		// ClientIP honours X-Forwarded-For only from the engine's trusted proxies.
		cfg.Extractor = func(c *gin.Context) string { return c.ClientIP() }
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		id := cfg.Extractor(c)
		if id == "" {
			id = "anonymous"
		}
		key := cfg.KeyPrefix + id

		count, err := cfg.Store.Incr(ctx, key).Result()
		if err != nil {
			cfg.Logger.Warn("rate limiter unavailable, allowing request", err)
			c.Next()
			return
		}

		// A key without expiry is either a new window or one whose EXPIRE
		// failed earlier; both get the window set here so no counter lives forever.
		reset := 0
		ttl, err := cfg.Store.TTL(ctx, key).Result()
		switch {
		case err != nil:
		case ttl > 0:
			reset = int(ttl.Seconds())
		default:
			if err := cfg.Store.Expire(ctx, key, cfg.Window).Err(); err != nil {
				cfg.Logger.Warn("failed to set rate limit window, allowing request", err)
				c.Next()
				return
			}
			reset = int(cfg.Window.Seconds())
		}
		remaining := cfg.Limit - int(count)
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", cfg.Limit))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
		c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", reset))

		if count > int64(cfg.Limit) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":             "rate limit exceeded",
				"rate_limit":        cfg.Limit,
				"rate_limit_window": cfg.Window.String(),
				"retry_after_sec":   reset,
			})
			return
		}
		c.Next()
	}
}
