package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/neogan74/catalog/internal/logger"
)

// Envelope is the body of every JSON response. Status is 1 for success
// and 0 for failure.
type Envelope struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// Success writes a success envelope.
func Success(c *fiber.Ctx, code int, message string, data any) error {
	return c.Status(code).JSON(Envelope{Status: 1, Message: message, Data: data})
}

// Fail writes a failure envelope. Data is always an empty object.
func Fail(c *fiber.Ctx, code int, message string) error {
	return c.Status(code).JSON(Envelope{Status: 0, Message: message, Data: fiber.Map{}})
}

// ErrorHandler renders errors returned from handlers as failure envelopes.
func ErrorHandler(log logger.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "Internal server error"

		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
			message = fe.Message
		}

		reqLog := log
		if l, ok := c.Locals(LoggerKey).(logger.Logger); ok {
			reqLog = l
		}
		if code >= fiber.StatusInternalServerError {
			reqLog.Error("Unhandled request error",
				logger.String("method", c.Method()),
				logger.String("path", c.Path()),
				logger.Error(err))
		}

		return Fail(c, code, message)
	}
}
