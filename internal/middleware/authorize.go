package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/neogan74/catalog/internal/logger"
	"github.com/neogan74/catalog/internal/metrics"
)

// AccessDeniedMessage is returned with every authorization denial.
const AccessDeniedMessage = "You do not have permission to perform this action"

// AccessPolicy decides whether role may call method on path.
type AccessPolicy interface {
	Allowed(role, method, rawPath string) bool
}

// RequireAuthorization checks the verified caller against the access policy.
// Denials answer 406, matching what existing clients expect.
func RequireAuthorization(policy AccessPolicy, publicPaths []string) fiber.Handler {
	isPublic := publicPathMatcher(publicPaths)

	return func(c *fiber.Ctx) error {
		if isPublic(c.Path()) {
			return c.Next()
		}

		role := ""
		if id := GetIdentity(c); id != nil {
			role = id.Role
		}

		if !policy.Allowed(role, c.Method(), c.OriginalURL()) {
			metrics.AuthorizationTotal.WithLabelValues(role, "deny").Inc()
			GetLogger(c).Info("Access denied",
				logger.String("role", role),
				logger.String("method", c.Method()),
				logger.String("path", c.Path()))
			return Fail(c, fiber.StatusNotAcceptable, AccessDeniedMessage)
		}

		metrics.AuthorizationTotal.WithLabelValues(role, "allow").Inc()
		return c.Next()
	}
}
