package middleware

import (
	"math"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/neogan74/catalog/internal/logger"
	"github.com/neogan74/catalog/internal/metrics"
	"github.com/neogan74/catalog/internal/ratelimit"
)

// LoginThrottleMessage is returned when a client exceeds its login budget.
const LoginThrottleMessage = "Too many login attempts"

// LoginRateLimit throttles credential issuance per client IP.
func LoginRateLimit(store *ratelimit.Store) fiber.Handler {
	const scope = "login"

	return func(c *fiber.Ctx) error {
		key := c.IP()
		if store.Allow(key) {
			return c.Next()
		}

		retry := store.Retry(key)
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(math.Ceil(retry.Seconds()))))

		metrics.RateLimitExceeded.WithLabelValues(scope).Inc()
		GetLogger(c).Warn("Rate limit exceeded",
			logger.String("scope", scope),
			logger.String("ip", key))
		return Fail(c, fiber.StatusTooManyRequests, LoginThrottleMessage)
	}
}
