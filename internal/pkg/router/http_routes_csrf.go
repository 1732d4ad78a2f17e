package router

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"

	"github.com/getyoursite/getyoursite/internal/pkg/constants"
	"github.com/getyoursite/getyoursite/internal/pkg/env"
)

func (h HttpRouter) registerCSRFProtectedRoutes(app *fiber.App) {
	csrfConf := csrf.Config{
		KeyLookup:      "form:_csrf",
		ContextKey:     "csrf",
		CookieName:     "csrf_",
		CookieSameSite: "Lax",
		Expiration:     1 * time.Hour,
		CookieSecure:   !env.IsDev(),
		Next: func(c *fiber.Ctx) bool {
			return strings.HasPrefix(c.Path(), "/api/")
		},
	}

	pages := h.deps.Pages
	group := app.Group("", csrf.New(csrfConf))
	group.Get("/", pages.HandleHome)
	group.Get(constants.PizzaRoute, pages.HandlePizza)
	group.Get("/pizza/menu", pages.HandlePizzaMenu)
	group.Get("/pizza/contact", pages.HandlePizzaContact)
	group.Post("/pizza/contact", h.deps.contactLimit(), h.deps.Contact.HandleSubmit)
	group.Get("/mairie", pages.HandleMairie)
	group.Get("/mairie/contact", pages.HandleMairieContact)
	group.Post("/mairie/contact", h.deps.contactLimit(), h.deps.Contact.HandleSubmit)
}
