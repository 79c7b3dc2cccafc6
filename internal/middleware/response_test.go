package middleware

import (
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/neogan74/catalog/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorHandler(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logger.NewNop())})
	app.Use(recover.New())
	app.Get("/fiber", func(c *fiber.Ctx) error { return fiber.NewError(fiber.StatusBadRequest, "bad page") })
	app.Get("/plain", func(c *fiber.Ctx) error { return errors.New("db password leaked") })
	app.Get("/panic", func(c *fiber.Ctx) error { panic("boom") })

	tests := []struct {
		path    string
		status  int
		message string
	}{
		{"/fiber", 400, "bad page"},
		{"/plain", 500, "Internal server error"},
		{"/panic", 500, "Internal server error"},
		{"/nope", 404, "Cannot GET /nope"},
	}
	for _, tt := range tests {
		resp, err := app.Test(httptest.NewRequest("GET", tt.path, nil))
		require.NoError(t, err)
		assert.Equal(t, tt.status, resp.StatusCode, tt.path)
		assert.JSONEq(t, `{"status":0,"message":"`+tt.message+`","data":{}}`, readBody(t, resp), tt.path)
	}
}

func TestSuccessEnvelope(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return Success(c, fiber.StatusOK, "ok", fiber.Map{"id": "x"})
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":1,"message":"ok","data":{"id":"x"}}`, readBody(t, resp))
}
