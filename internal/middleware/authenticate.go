package middleware

import (
	"context"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/neogan74/catalog/internal/auth"
	"github.com/neogan74/catalog/internal/logger"
	"github.com/neogan74/catalog/internal/metrics"
)

// IdentityKey is the context key for the verified caller.
const IdentityKey = "identity"

// CredentialVerifier resolves an Authorization header to an identity.
type CredentialVerifier interface {
	Verify(ctx context.Context, header string) (*auth.Identity, error)
}

// RequireAuthentication rejects requests without a valid credential. Public
// paths match exactly, or by prefix when the entry ends with "/".
func RequireAuthentication(verifier CredentialVerifier, publicPaths []string) fiber.Handler {
	isPublic := publicPathMatcher(publicPaths)

	return func(c *fiber.Ctx) error {
		if isPublic(c.Path()) {
			return c.Next()
		}

		identity, err := verify(c.UserContext(), verifier, c.Get(fiber.HeaderAuthorization))
		if err != nil {
			log := GetLogger(c)
			if failure, ok := auth.Describe(err); ok {
				metrics.AuthenticationTotal.WithLabelValues(failure.Kind).Inc()
				log.Info("Credential rejected",
					logger.String("reason", failure.Kind),
					logger.String("path", c.Path()))
				return Fail(c, fiber.StatusUnauthorized, failure.Message)
			}

			metrics.AuthenticationTotal.WithLabelValues("error").Inc()
			log.Error("Credential verification failed",
				logger.String("path", c.Path()),
				logger.Error(err))
			return Fail(c, fiber.StatusInternalServerError, "Authentication failed")
		}

		metrics.AuthenticationTotal.WithLabelValues("success").Inc()
		c.Locals(IdentityKey, identity)
		c.SetUserContext(auth.ContextWithIdentity(c.UserContext(), identity))
		return c.Next()
	}
}

func verify(ctx context.Context, verifier CredentialVerifier, header string) (identity *auth.Identity, err error) {
	defer func() {
		if p := recover(); p != nil {
			identity, err = nil, fmt.Errorf("credential verifier panicked: %v", p)
		}
	}()
	return verifier.Verify(ctx, header)
}

func publicPathMatcher(paths []string) func(string) bool {
	exact := make(map[string]bool, len(paths))
	var prefixes []string
	for _, p := range paths {
		if strings.HasSuffix(p, "/") && p != "/" {
			prefixes = append(prefixes, p)
			continue
		}
		exact[p] = true
	}

	return func(path string) bool {
		if exact[path] {
			return true
		}
		for _, p := range prefixes {
			if strings.HasPrefix(path, p) {
				return true
			}
		}
		return false
	}
}

// GetIdentity returns the caller verified by RequireAuthentication.
func GetIdentity(c *fiber.Ctx) *auth.Identity {
	if id, ok := c.Locals(IdentityKey).(*auth.Identity); ok {
		return id
	}
	return nil
}
