package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/getyoursite/getyoursite/internal/pkg/constants"
)

func (h HttpRouter) registerPublicRoutes(app *fiber.App) {
	app.Get(constants.HealthRoute, h.deps.Pages.HandleHealth)
	app.Get(constants.PizzaSuccessRoute, h.deps.Pages.HandlePizzaSuccess)
}
