package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sujit-baniya/flash"

	"github.com/getyoursite/getyoursite/internal/pkg/payment"
)

const layoutMain = "layouts/main"

// Status polling on the success page: bounded attempts, fixed delay.
const (
	StatusPollAttempts = 5
	StatusPollInterval = 2 * time.Second
)

// PageController renders the brochure sites (landing, pizzeria, town hall).
type PageController struct {
	captchaSiteKey string
}

func NewPageController() *PageController {
	return &PageController{}
}

// WithCaptchaSiteKey renders the hCaptcha widget on contact forms.
func (pc *PageController) WithCaptchaSiteKey(key string) *PageController {
	pc.captchaSiteKey = key
	return pc
}

func (pc *PageController) render(c *fiber.Ctx, view string, data fiber.Map) error {
	base := fiber.Map{
		"Flash":     flash.Get(c),
		"CSRF":      c.Locals("csrf"),
		"RequestID": requestID(c),
		"Year":      time.Now().Year(),
	}
	for k, v := range data {
		base[k] = v
	}
	return c.Render(view, base, layoutMain)
}

func (pc *PageController) HandleHome(c *fiber.Ctx) error {
	return pc.render(c, "index", fiber.Map{
		"Title": "GetYourSite - Création et Développement de Sites Web",
	})
}

func (pc *PageController) HandlePizza(c *fiber.Ctx) error {
	return pc.render(c, "pizza/index", fiber.Map{
		"Title":    "Lucky Pizza Lannilis",
		"Packages": payment.Packages(),
	})
}

func (pc *PageController) HandlePizzaMenu(c *fiber.Ctx) error {
	return pc.render(c, "pizza/menu", fiber.Map{
		"Title":    "Menu - Lucky Pizza Lannilis",
		"Packages": payment.Packages(),
	})
}

func (pc *PageController) HandlePizzaContact(c *fiber.Ctx) error {
	return pc.render(c, "contact", fiber.Map{
		"Title":          "Contact - Lucky Pizza Lannilis",
		"Action":         "/pizza/contact",
		"Brand":          "Lucky Pizza Lannilis",
		"CaptchaSiteKey": pc.captchaSiteKey,
	})
}

// HandlePizzaSuccess renders the page that polls the status API after checkout.
func (pc *PageController) HandlePizzaSuccess(c *fiber.Ctx) error {
	return pc.render(c, "pizza/success", fiber.Map{
		"Title":          "Commande - Lucky Pizza Lannilis",
		"SessionID":      c.Query("session_id"),
		"PollAttempts":   StatusPollAttempts,
		"PollIntervalMs": StatusPollInterval.Milliseconds(),
	})
}

func (pc *PageController) HandleMairie(c *fiber.Ctx) error {
	return pc.render(c, "mairie/index", fiber.Map{
		"Title": "Mairie de Brest",
	})
}

func (pc *PageController) HandleMairieContact(c *fiber.Ctx) error {
	return pc.render(c, "contact", fiber.Map{
		"Title":          "Contact - Mairie de Brest",
		"Action":         "/mairie/contact",
		"Brand":          "Mairie de Brest",
		"CaptchaSiteKey": pc.captchaSiteKey,
	})
}

// HandleHealth is the liveness probe.
func (pc *PageController) HandleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}
