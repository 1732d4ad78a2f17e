package router

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/getyoursite/getyoursite/internal/pkg/constants"
	"github.com/getyoursite/getyoursite/internal/pkg/env"
	"github.com/getyoursite/getyoursite/internal/pkg/middleware"
)

type ApiRouter struct {
	deps Dependencies
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New(limiter.Config{
		Max:          env.GetEnvInt("API_RATE_LIMIT_MAX", 120),
		Expiration:   time.Minute,
		KeyGenerator: clientKey,
		Storage:      h.deps.APIStorage,
		// Provider retries must never be throttled.
		Next: func(c *fiber.Ctx) bool {
			return strings.HasPrefix(c.Path(), constants.WebhookPrefix)
		},
		LimitReached: func(c *fiber.Ctx) error {
			h.deps.Metrics.RateLimited("/api")
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "Trop de requêtes"})
		},
	}))
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	contact := h.deps.Contact
	api.Get("/contact", contact.HandleStatus)
	api.Post("/contact", h.deps.contactLimit(), contact.HandleSubmit)

	payments := h.deps.Payments
	api.Get("/payments/packages", payments.HandlePackages)
	api.Post("/payments/checkout", payments.HandleCheckout)
	api.Get("/payments/status/:sessionId", payments.HandleStatus)
	api.Post("/webhook/stripe", payments.HandleStripeWebhook)
	api.Post("/webhook/payments", payments.HandleStripeWebhook)
}

func NewApiRouter(deps Dependencies) *ApiRouter {
	return &ApiRouter{deps: deps}
}

func clientKey(c *fiber.Ctx) string {
	return middleware.ClientIP(c)
}
