package controllers

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/sujit-baniya/flash"

	"github.com/getyoursite/getyoursite/internal/pkg/contact"
	"github.com/getyoursite/getyoursite/internal/pkg/mail"
	"github.com/getyoursite/getyoursite/internal/pkg/metrics"
	"github.com/getyoursite/getyoursite/internal/pkg/middleware"
)

const (
	ContactSuccessMessage = "Message reçu avec succès!"
	contactInvalidMessage = "Données invalides"
	contactBadBodyMessage = "Format de requête invalide"
	contactCaptchaMessage = "Vérification anti-spam échouée"
)

// CaptchaVerifier checks the anti-spam token posted with the form.
type CaptchaVerifier interface {
	Verify(ctx context.Context, token, remoteIP string) error
}

// ContactController handles the contact form of every brochure site.
type ContactController struct {
	notifier mail.Notifier
	metrics  *metrics.Metrics
	captcha  CaptchaVerifier
}

func NewContactController(notifier mail.Notifier, m *metrics.Metrics) *ContactController {
	return &ContactController{notifier: notifier, metrics: m}
}

// WithCaptcha requires a valid captcha token on every submission.
func (cc *ContactController) WithCaptcha(v CaptchaVerifier) *ContactController {
	cc.captcha = v
	return cc
}

// HandleStatus is the GET probe of the contact API.
func (cc *ContactController) HandleStatus(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message":   "API Contact GetYourSite",
		"status":    "active",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HandleSubmit validates, sanitizes and forwards a contact message. Mail
// delivery is best effort: once the input is valid the visitor always gets
// the same success answer.
func (cc *ContactController) HandleSubmit(c *fiber.Ctx) error {
	rid := requestID(c)
	form := isFormRequest(c)
	back := c.Path()
	if strings.HasPrefix(back, "/api/") {
		back = "/"
	}
	back = safeRedirect(c.FormValue("_redirect"), back)

	var in contact.Input
	if err := c.BodyParser(&in); err != nil {
		log.Warnw("[Contact] unreadable body", "error", err, "request_id", rid)
		cc.metrics.ContactSubmission("invalid")
		if form {
			return flash.WithError(c, fiber.Map{"type": "error", "message": contactBadBodyMessage}).Redirect(back)
		}
		return apiError(c, fiber.StatusBadRequest, contactBadBodyMessage)
	}

	if cc.captcha != nil {
		if err := cc.captcha.Verify(c.UserContext(), in.Captcha, middleware.ClientIP(c)); err != nil {
			log.Warnw("[Contact] captcha rejected", "error", err, "ip", c.IP(), "request_id", rid)
			cc.metrics.ContactSubmission("captcha_failed")
			if form {
				return flash.WithError(c, fiber.Map{"type": "error", "message": contactCaptchaMessage}).Redirect(back)
			}
			return apiError(c, fiber.StatusBadRequest, contactCaptchaMessage)
		}
	}

	sub, errs := contact.Clean(in)
	if len(errs) > 0 {
		log.Warnw("[Contact] validation failed", "errors", errs, "ip", c.IP(), "request_id", rid)
		cc.metrics.ContactSubmission("invalid")
		if form {
			return flash.WithError(c, fiber.Map{"type": "error", "message": strings.Join(errs, ". ")}).Redirect(back)
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   contactInvalidMessage,
			"details": errs,
		})
	}

	log.Infow("[Contact] message received",
		"name", sub.Name,
		"email", sub.Email,
		"subject", sub.Subject,
		"request_id", rid,
	)

	if cc.notifier != nil && cc.notifier.Send(c.UserContext(), sub) {
		cc.metrics.ContactSubmission("sent")
	} else {
		log.Warnw("[Contact] message accepted without mail delivery", "request_id", rid)
		cc.metrics.ContactSubmission("not_sent")
	}

	if form {
		return flash.WithSuccess(c, fiber.Map{"type": "success", "message": ContactSuccessMessage}).Redirect(back)
	}
	return c.JSON(fiber.Map{
		"success":   true,
		"message":   ContactSuccessMessage,
		"requestId": rid,
	})
}
