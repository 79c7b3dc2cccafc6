package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/neogan74/catalog/internal/metrics"
)

// MetricsMiddleware tracks HTTP request metrics. Requests are labelled by
// route pattern so item ids do not explode cardinality.
func MetricsMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Path() == "/metrics" {
			return c.Next()
		}

		metrics.HTTPRequestsInFlight.Inc()
		defer metrics.HTTPRequestsInFlight.Dec()

		start := time.Now()
		err := c.Next()
		duration := time.Since(start).Seconds()

		status := c.Response().StatusCode()
		if err != nil {
			status = fiber.StatusInternalServerError
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			}
		}
		code := strconv.Itoa(status)

		route := c.Route().Path
		if route == "" || route == "/" {
			route = "unmatched"
		}

		metrics.HTTPRequestsTotal.WithLabelValues(c.Method(), route, code).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Method(), route, code).Observe(duration)

		return err
	}
}
