package controllers

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/getyoursite/getyoursite/internal/pkg/middleware"
)

var validate = validator.New()

// requestID returns the correlation id set by the requestid middleware.
func requestID(c *fiber.Ctx) string {
	return middleware.RequestID(c)
}

// apiError writes {"error": msg} with the given status.
func apiError(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"error": msg})
}

// isFormRequest reports whether the body was posted by a plain HTML form.
func isFormRequest(c *fiber.Ctx) bool {
	ct := strings.ToLower(c.Get(fiber.HeaderContentType))
	return strings.HasPrefix(ct, fiber.MIMEApplicationForm) || strings.HasPrefix(ct, fiber.MIMEMultipartForm)
}

// requestOrigin rebuilds the public origin the client used.
func requestOrigin(c *fiber.Ctx) string {
	proto := strings.TrimSpace(strings.Split(c.Get(fiber.HeaderXForwardedProto), ",")[0])
	if proto != "http" && proto != "https" {
		proto = c.Protocol()
	}
	return proto + "://" + c.Hostname()
}

// safeRedirect only accepts local absolute paths.
func safeRedirect(target, fallback string) string {
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return fallback
	}
	return target
}
