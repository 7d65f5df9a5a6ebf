package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// FailPolicy decides what happens when Redis cannot be reached.
type FailPolicy int

const (
	FailOpen FailPolicy = iota
	// FailClosed answers 503 instead.
	FailClosed
)

var errNoRedis = errors.New("redis client is nil")

// rateLimitBypassed reports whether APP_ENV disables rate limiting.
func rateLimitBypassed() bool {
	switch os.Getenv("APP_ENV") {
	case "", "test", "development", "stress":
		return true
	}
	return false
}

// window is one fixed-window counter read back from Redis.
type window struct {
	count int64
	reset time.Duration
}

func rateLimitKey(resource, id string) string {
	return "rl:" + resource + ":" + id
}

// hit increments the counter and starts its window on the first hit.
func hit(ctx context.Context, rdb *redis.Client, key string, ttl time.Duration) (window, error) {
	var incr *redis.IntCmd
	var pttl *redis.DurationCmd
	_, err := rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, key)
		pttl = p.PTTL(ctx, key)
		return nil
	})
	if err != nil {
		return window{}, err
	}

	w := window{count: incr.Val(), reset: pttl.Val()}
	if w.reset <= 0 {
		if err := rdb.Expire(ctx, key, ttl).Err(); err != nil {
			return window{}, err
		}
		w.reset = ttl
	}
	return w, nil
}

// CheckRateLimit counts one hit for resource/id and reports whether it is
// within limit for the current window. It always allows in the test,
// development and stress environments.
func CheckRateLimit(ctx context.Context, rdb *redis.Client, resource, id string, limit int, ttl time.Duration) (bool, error) {
	if rateLimitBypassed() {
		return true, nil
	}
	if rdb == nil {
		return false, errNoRedis
	}
	w, err := hit(ctx, rdb, rateLimitKey(resource, id), ttl)
	if err != nil {
		return false, err
	}
	return w.count <= int64(limit), nil
}

// RateLimit limits a route to limit requests per ttl for each signed-in
// user, or each IP for anonymous callers. Requests pass when Redis is down.
func RateLimit(rdb *redis.Client, limit int, ttl time.Duration, name ...string) fiber.Handler {
	return RateLimitWithPolicy(rdb, limit, ttl, FailOpen, name...)
}

// RateLimitWithPolicy is RateLimit with an explicit policy for a missing or
// failing Redis.
func RateLimitWithPolicy(rdb *redis.Client, limit int, ttl time.Duration, policy FailPolicy, name ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := "ip:" + c.IP()
		if uid := c.Locals("userID"); uid != nil {
			id = fmt.Sprintf("user:%v", uid)
		}
		resource := c.Path()
		if len(name) > 0 {
			resource = name[0]
		}

		if rateLimitBypassed() {
			return c.Next()
		}

		var w window
		err := errNoRedis
		if rdb != nil {
			w, err = hit(c.UserContext(), rdb, rateLimitKey(resource, id), ttl)
		}
		if err != nil {
			if policy == FailOpen {
				return c.Next()
			}
			Logger.WarnContext(c.UserContext(), "rate limit store unavailable, failing closed",
				slog.String("resource", resource),
				slog.String("error", err.Error()),
			)
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "잠시 후 다시 시도해주세요.",
				"code":  "RATE_LIMIT_UNAVAILABLE",
			})
		}

		remaining := int64(limit) - w.count
		if remaining < 0 {
			remaining = 0
		}
		c.Set("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if w.count > int64(limit) {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(w.reset.Round(time.Second).Seconds())))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "요청이 너무 많습니다. 잠시 후 다시 시도해주세요.",
				"code":  "RATE_LIMITED",
			})
		}
		return c.Next()
	}
}
