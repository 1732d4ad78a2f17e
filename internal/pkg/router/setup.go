package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/getyoursite/getyoursite/app/controllers"
	"github.com/getyoursite/getyoursite/internal/pkg/metrics"
	"github.com/getyoursite/getyoursite/internal/pkg/ratelimit"
)

type Router interface {
	InstallRouter(app *fiber.App)
}

// Dependencies are the controllers and shared services the routes use.
type Dependencies struct {
	Pages    *controllers.PageController
	Contact  *controllers.ContactController
	Payments *controllers.PaymentController

	// ContactLimiter admits contact submissions per client IP.
	ContactLimiter ratelimit.Limiter
	// APIStorage backs the coarse /api limiter; nil keeps it in memory.
	APIStorage fiber.Storage
	Metrics    *metrics.Metrics
}

func InstallRouter(app *fiber.App, deps Dependencies) {
	// Pages first so the CSRF group does not wrap the API routes.
	setup(app, NewHttpRouter(deps), NewApiRouter(deps))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}

func (d Dependencies) contactLimit() fiber.Handler {
	return ratelimit.Middleware(d.ContactLimiter, clientKey, func(c *fiber.Ctx, _ ratelimit.Result) {
		d.Metrics.RateLimited(c.Route().Path)
	})
}
