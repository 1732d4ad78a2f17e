package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

const InternalErrorMessage = "Erreur serveur"

// ErrorHandler is the fiber.Config ErrorHandler. Server errors keep their
// details in the log; the client only gets a generic message and the
// correlation id.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := InternalErrorMessage

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		if code < fiber.StatusInternalServerError {
			msg = fe.Message
		}
	}

	rid := RequestID(c)
	if code >= fiber.StatusInternalServerError {
		log.Errorw("request failed",
			"error", err,
			"method", c.Method(),
			"path", c.Path(),
			"request_id", rid,
		)
	}

	if rid != "" {
		c.Set(fiber.HeaderXRequestID, rid)
	}
	if strings.HasPrefix(c.Path(), "/api/") {
		return c.Status(code).JSON(fiber.Map{"error": msg, "requestId": rid})
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	return c.Status(code).SendString(msg)
}
