package controllers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/getyoursite/getyoursite/internal/pkg/payment"
)

const (
	checkoutFailedMessage = "Failed to create checkout session"
	statusFailedMessage   = "Failed to get payment status"
	webhookFailedMessage  = "Webhook processing failed"
	webhookNoProvider     = "Payment provider not configured"
)

type checkoutBody struct {
	PackageID string                 `json:"package_id" form:"package_id" validate:"required,max=64"`
	Metadata  map[string]interface{} `json:"metadata" form:"-"`
}

// PaymentController exposes checkout, status polling and the provider webhook.
type PaymentController struct {
	svc            *payment.Service
	trustedOrigins []string
}

func NewPaymentController(svc *payment.Service) *PaymentController {
	return &PaymentController{svc: svc}
}

// WithTrustedOrigins restricts the checkout return URLs to these origins. A
// request for any other host gets the first one.
func (pc *PaymentController) WithTrustedOrigins(origins []string) *PaymentController {
	pc.trustedOrigins = origins
	return pc
}

func (pc *PaymentController) returnOrigin(c *fiber.Ctx) string {
	origin := requestOrigin(c)
	if len(pc.trustedOrigins) == 0 {
		return origin
	}
	for _, trusted := range pc.trustedOrigins {
		if strings.EqualFold(trusted, origin) {
			return trusted
		}
	}
	log.Warnw("[Payment] untrusted host for checkout, using default origin",
		"origin", origin, "fallback", pc.trustedOrigins[0], "request_id", requestID(c))
	return pc.trustedOrigins[0]
}

// HandlePackages lists the price table.
func (pc *PaymentController) HandlePackages(c *fiber.Ctx) error {
	pkgs := payment.Packages()
	out := make([]fiber.Map, 0, len(pkgs))
	for _, p := range pkgs {
		out = append(out, fiber.Map{
			"id":       p.ID,
			"name":     p.Name,
			"amount":   p.Amount.InexactFloat64(),
			"currency": payment.DefaultCurrency,
			"is_test":  p.IsTest,
		})
	}
	return c.JSON(fiber.Map{"packages": out})
}

// HandleCheckout creates a checkout session for a package of the price table.
// The amount always comes from the table, never from the request.
func (pc *PaymentController) HandleCheckout(c *fiber.Ctx) error {
	rid := requestID(c)

	var body checkoutBody
	if err := c.BodyParser(&body); err != nil {
		log.Warnw("[Payment] unreadable checkout body", "error", err, "request_id", rid)
		return apiError(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := validate.Struct(body); err != nil {
		log.Warnw("[Payment] checkout validation failed", "error", err, "request_id", rid)
		return apiError(c, fiber.StatusBadRequest, "package_id is required")
	}

	res, err := pc.svc.CreateCheckout(c.UserContext(), payment.CheckoutRequest{
		PackageID: body.PackageID,
		OriginURL: pc.returnOrigin(c),
		Metadata:  body.Metadata,
	})
	if err != nil {
		return pc.checkoutError(c, body.PackageID, err)
	}

	resp := fiber.Map{
		"url":        res.URL,
		"session_id": res.SessionID,
		"amount":     res.Package.Amount.InexactFloat64(),
		"currency":   res.Currency,
		"pizza_name": res.Package.Name,
	}
	if res.IsTest {
		resp["status"] = res.Status
		resp["message"] = res.Message
		resp["is_test"] = true
	}
	return c.JSON(resp)
}

func (pc *PaymentController) checkoutError(c *fiber.Ctx, packageID string, err error) error {
	rid := requestID(c)
	switch {
	case errors.Is(err, payment.ErrInvalidPackage):
		log.Warnw("[Payment] unknown package", "package_id", packageID, "request_id", rid)
		return apiError(c, fiber.StatusBadRequest, "Invalid package")
	case errors.Is(err, payment.ErrInvalidOrigin):
		log.Warnw("[Payment] invalid origin", "origin", requestOrigin(c), "request_id", rid)
		return apiError(c, fiber.StatusBadRequest, "Invalid origin")
	}

	var upErr *payment.UpstreamError
	if errors.As(err, &upErr) {
		log.Errorw("[Payment] provider rejected checkout", "op", upErr.Op, "error", upErr.Err, "package_id", packageID, "request_id", rid)
	} else {
		log.Errorw("[Payment] checkout failed", "error", err, "package_id", packageID, "request_id", rid)
	}
	return apiError(c, fiber.StatusInternalServerError, checkoutFailedMessage)
}

// HandleStatus reconciles and returns the live status of a session.
func (pc *PaymentController) HandleStatus(c *fiber.Ctx) error {
	rid := requestID(c)
	sessionID := c.Params("sessionId")

	res, err := pc.svc.GetStatus(c.UserContext(), sessionID)
	if err != nil {
		if errors.Is(err, payment.ErrMissingSessionID) {
			return apiError(c, fiber.StatusBadRequest, "Session ID required")
		}
		log.Errorw("[Payment] status lookup failed", "session_id", sessionID, "error", err, "request_id", rid)
		return apiError(c, fiber.StatusInternalServerError, statusFailedMessage)
	}

	resp := fiber.Map{
		"session_id":     res.SessionID,
		"status":         res.Status,
		"payment_status": res.PaymentStatus,
		"amount_total":   res.AmountTotal,
		"currency":       res.Currency,
		"metadata":       res.Metadata,
	}
	if res.IsTest {
		resp["pizza_name"] = res.PizzaName
		resp["is_test"] = true
		resp["message"] = res.Message
	}
	return c.JSON(resp)
}

// HandleStripeWebhook verifies and applies a provider event. Only a missing
// or invalid signature is answered with a non-2xx status.
func (pc *PaymentController) HandleStripeWebhook(c *fiber.Ctx) error {
	rid := requestID(c)
	signature := c.Get("Stripe-Signature")
	if signature == "" {
		log.Warnw("[Webhook] missing signature", "ip", c.IP(), "request_id", rid)
		return apiError(c, fiber.StatusBadRequest, "Missing stripe signature")
	}

	payload := append([]byte(nil), c.BodyRaw()...)
	res, err := pc.svc.HandleWebhook(c.UserContext(), payload, signature)
	if err != nil {
		if errors.Is(err, payment.ErrInvalidSignature) {
			log.Warnw("[Webhook] invalid signature", "ip", c.IP(), "request_id", rid)
			return apiError(c, fiber.StatusBadRequest, "Invalid signature")
		}
		if errors.Is(err, payment.ErrProviderNotConfigured) {
			log.Errorw("[Webhook] received but no payment provider is configured", "request_id", rid)
			return apiError(c, fiber.StatusServiceUnavailable, webhookNoProvider)
		}
		log.Errorw("[Webhook] processing failed", "error", err, "request_id", rid)
		return apiError(c, fiber.StatusInternalServerError, webhookFailedMessage)
	}

	return c.JSON(fiber.Map{
		"received":   res.Received,
		"event_type": res.EventType,
		"session_id": res.SessionID,
	})
}
