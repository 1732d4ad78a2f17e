package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, app *fiber.App) string {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest("GET", "/metrics/prometheus", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func newMetricsApp(m *Metrics) *fiber.App {
	app := fiber.New()
	app.Use(m.Middleware())
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/metrics/prometheus", m.Handler())
	return app
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RateLimited("/api/contact")
		m.ContactSubmission("accepted")
		m.CheckoutSession("small_pizza", "created")
		m.PaymentUpdate("poll", "paid")
		m.WebhookEvent("checkout.session.completed", "applied")
	})
	assert.Nil(t, m.Registry())
}

func TestCounters(t *testing.T) {
	m := New()
	m.CheckoutSession("family_pizza", "created")
	m.CheckoutSession("family_pizza", "created")
	m.PaymentUpdate("webhook", "paid")

	body := scrape(t, newMetricsApp(m))
	assert.Contains(t, body, `getyoursite_checkout_sessions_total{outcome="created",package="family_pizza"} 2`)
	assert.Contains(t, body, `getyoursite_payment_status_updates_total{payment_status="paid",source="webhook"} 1`)
}

func TestMiddlewareCountsRequests(t *testing.T) {
	m := New()
	app := newMetricsApp(m)

	resp, err := app.Test(httptest.NewRequest("GET", "/healthz", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := scrape(t, app)
	assert.Contains(t, body, `getyoursite_http_requests_total{method="GET",route="/healthz",status="200"} 1`)
	assert.Contains(t, body, "go_goroutines")
}
