package middleware

import (
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// RateLimitMiddleware limits each client IP to perMinute requests per minute
// Counters live in Redis; when Redis is unreachable requests are let through.
func RateLimitMiddleware(rdb *redis.Client, perMinute int) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if perMinute <= 0 {
			return c.Next()
		}

		now := time.Now()
		key := RateLimitKey(c.IP(), now)

		count, err := rdb.Incr(c.Context(), key).Result()
		if err != nil {
			log.Printf("Warning: rate limiter unavailable: %v", err)
			return c.Next()
		}
		if count == 1 {
			rdb.Expire(c.Context(), key, 2*time.Minute)
		}

		reset := now.Truncate(time.Minute).Add(time.Minute)
		c.Set("X-RateLimit-Limit", strconv.Itoa(perMinute))
		c.Set("X-RateLimit-Remaining", strconv.FormatInt(max(0, int64(perMinute)-count), 10))
		c.Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))

		if count > int64(perMinute) {
			retryAfter := int64(reset.Sub(now).Seconds()) + 1
			c.Set("Retry-After", strconv.FormatInt(retryAfter, 10))

			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":       "rate_limit_exceeded",
				"message":     "Too many requests per minute",
				"limit":       perMinute,
				"retry_after": retryAfter,
			})
		}

		return c.Next()
	}
}

// RateLimitKey returns the counter key for a client in the minute containing at
func RateLimitKey(clientIP string, at time.Time) string {
	return fmt.Sprintf("rl:%s:%s", clientIP, at.UTC().Format("200601021504"))
}
