package constants

// Route constants shared by the router, the middleware and the payment flow.
const (
	StaticRoute  = "/static"
	DocsRoute    = "/docs/"
	MetricsRoute = "/metrics"
	HealthRoute  = "/healthz"

	PizzaRoute        = "/pizza"
	PizzaSuccessRoute = "/pizza/success"
	// Webhook deliveries bypass the coarse API limiter.
	WebhookPrefix = "/api/webhook/"
)
