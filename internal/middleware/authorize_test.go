package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/neogan74/catalog/internal/account"
	"github.com/neogan74/catalog/internal/auth"
	"github.com/neogan74/catalog/internal/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthzApp(id *auth.Identity) *fiber.App {
	app := fiber.New()
	if id != nil {
		app.Use(withIdentity(id))
	}
	app.Use(RequireAuthorization(policy.NewEngine(policy.DefaultRules()), []string{"/health"}))

	ok := func(c *fiber.Ctx) error { return c.SendString("ok") }
	app.Get("/health", ok)
	app.Post("/api/resource/add", ok)
	app.Get("/api/resource/list", ok)
	app.Delete("/api/activity/logs", ok)
	app.Get("/api/activity/logs", ok)
	return app
}

func TestRequireAuthorization_ContentManager(t *testing.T) {
	app := newAuthzApp(&auth.Identity{ID: "u-1", Role: account.RoleContentManager})

	resp, err := app.Test(httptest.NewRequest("POST", "/api/resource/add", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("DELETE", "/api/activity/logs", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotAcceptable, resp.StatusCode)
	assert.JSONEq(t, `{"status":0,"message":"`+AccessDeniedMessage+`","data":{}}`, readBody(t, resp))
}

func TestRequireAuthorization_QueryStringIgnored(t *testing.T) {
	app := newAuthzApp(&auth.Identity{ID: "u-1", Role: account.RoleAdmin})

	resp, err := app.Test(httptest.NewRequest("GET", "/api/activity/logs?page=2&limit=5", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRequireAuthorization_UnknownRoleDenied(t *testing.T) {
	app := newAuthzApp(&auth.Identity{ID: "u-1", Role: "AUDITOR"})

	resp, err := app.Test(httptest.NewRequest("GET", "/api/resource/list", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotAcceptable, resp.StatusCode)
}

func TestRequireAuthorization_NoIdentityDenied(t *testing.T) {
	app := newAuthzApp(nil)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/resource/list", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotAcceptable, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
