package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/neogan74/catalog/internal/auth"
	"github.com/neogan74/catalog/internal/logger"
	"github.com/neogan74/catalog/internal/metrics"
	"github.com/neogan74/catalog/internal/middleware"
)

// Authenticator exchanges login credentials for a signed token.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*auth.Session, error)
}

type AuthHandler struct {
	authenticator Authenticator
}

func NewAuthHandler(authenticator Authenticator) *AuthHandler {
	return &AuthHandler{authenticator: authenticator}
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse represents the login response payload
type LoginResponse struct {
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expiresAt"`
	User      auth.Identity `json:"user"`
}

// Login verifies email and password and issues a credential.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return middleware.Fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	session, err := h.authenticator.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidLogin) {
			metrics.LoginAttemptsTotal.WithLabelValues("rejected").Inc()
			return middleware.Fail(c, fiber.StatusUnauthorized, "Invalid email or password")
		}
		metrics.LoginAttemptsTotal.WithLabelValues("error").Inc()
		middleware.GetLogger(c).Error("Login failed", logger.Error(err))
		return middleware.Fail(c, fiber.StatusInternalServerError, "Login failed")
	}

	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()
	middleware.GetLogger(c).Info("User logged in", logger.String("user_id", session.Identity.ID))

	return middleware.Success(c, fiber.StatusOK, "Login successful", LoginResponse{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		User:      session.Identity,
	})
}

// Me returns the identity attached to the request.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	id := middleware.GetIdentity(c)
	if id == nil {
		return middleware.Fail(c, fiber.StatusUnauthorized, "Authorization token is missing or malformed")
	}
	return middleware.Success(c, fiber.StatusOK, "Current user", id)
}
