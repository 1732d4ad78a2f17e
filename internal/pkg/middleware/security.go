package middleware

import (
	"net"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/google/uuid"

	"github.com/getyoursite/getyoursite/internal/pkg/constants"
	"github.com/getyoursite/getyoursite/internal/pkg/env"
)

// RequestIDKey is the Locals key shared with Fiber's requestid middleware.
const RequestIDKey = "requestid"

const DefaultPizzaHost = "pizza.getyoursite.fr"

const ForbiddenOriginMessage = "Origin non autorisée"

var securityHeaders = map[string]string{
	"X-XSS-Protection":       "1; mode=block",
	"X-Content-Type-Options": "nosniff",
	"Referrer-Policy":        "strict-origin-when-cross-origin",
	"Permissions-Policy":     "camera=(), microphone=(), geolocation=(), interest-cohort=()",
	"Cache-Control":          "no-store, max-age=0",
}

var pageCSP = strings.Join([]string{
	"default-src 'self'",
	"script-src 'self' 'unsafe-inline' https://hcaptcha.com https://*.hcaptcha.com",
	"frame-src https://hcaptcha.com https://*.hcaptcha.com",
	"style-src 'self' 'unsafe-inline' fonts.googleapis.com",
	"font-src 'self' fonts.gstatic.com",
	"img-src 'self' data: https://images.unsplash.com https://unsplash.com https://images.pexels.com https://pexels.com",
	"connect-src 'self' https://hcaptcha.com https://*.hcaptcha.com",
	"frame-ancestors 'none'",
	"object-src 'none'",
	"base-uri 'self'",
}, "; ")

const hsts = "max-age=31536000; includeSubDomains; preload"

var defaultOrigins = []string{
	"https://getyoursite.fr",
	"https://www.getyoursite.fr",
	"https://pizza.getyoursite.fr",
}

type SecurityConfig struct {
	// TrustedOrigins may send non-GET API requests and receive CORS headers.
	TrustedOrigins []string
	// PizzaHost is rewritten onto the /pizza pages.
	PizzaHost string
	// CSPExempt path prefixes get no Content-Security-Policy (swagger UI and
	// the monitor load their assets from a CDN).
	CSPExempt []string
}

// SecurityConfigFromEnv reads TRUSTED_ORIGINS and PIZZA_HOST. Localhost
// variants for APP_PORT and 3000 are always trusted.
func SecurityConfigFromEnv() SecurityConfig {
	origins := env.GetEnvList("TRUSTED_ORIGINS", defaultOrigins)
	port := env.GetEnv("APP_PORT", "4000")
	origins = append(origins, LocalOrigins(port)...)

	return SecurityConfig{
		TrustedOrigins: NormalizeOrigins(origins),
		PizzaHost:      env.GetEnv("PIZZA_HOST", DefaultPizzaHost),
		CSPExempt:      []string{constants.DocsRoute, constants.MetricsRoute},
	}
}

func LocalOrigins(ports ...string) []string {
	seen := map[string]bool{"3000": true}
	list := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	for _, p := range ports {
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		list = append(list, "http://localhost:"+p, "http://127.0.0.1:"+p)
	}
	return list
}

// NormalizeOrigins keeps scheme://host[:port] of every http(s) entry and
// removes duplicates. Invalid entries are logged and dropped.
func NormalizeOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	seen := make(map[string]bool, len(origins))
	for _, raw := range origins {
		u, err := url.Parse(strings.TrimSpace(raw))
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			log.Warnw("ignoring invalid trusted origin", "origin", raw)
			continue
		}
		origin := strings.ToLower(u.Scheme + "://" + u.Host)
		if !seen[origin] {
			seen[origin] = true
			out = append(out, origin)
		}
	}
	return out
}

// RequestID returns the correlation id of the request, if any.
func RequestID(c *fiber.Ctx) string {
	if id, ok := c.Locals(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

// Security runs before routing: it ensures a request id, applies the
// security header set, guards API writes against untrusted origins and
// rewrites the pizza host onto /pizza.
func Security(cfg SecurityConfig) fiber.Handler {
	trusted := make(map[string]bool, len(cfg.TrustedOrigins))
	for _, o := range cfg.TrustedOrigins {
		trusted[strings.ToLower(o)] = true
	}
	pizzaHost := strings.ToLower(cfg.PizzaHost)

	return func(c *fiber.Ctx) error {
		requestID := RequestID(c)
		if requestID == "" {
			requestID = uuid.NewString()
			c.Locals(RequestIDKey, requestID)
		}
		c.Set(fiber.HeaderXRequestID, requestID)

		for k, v := range securityHeaders {
			c.Set(k, v)
		}

		path := c.Path()
		isAPI := strings.HasPrefix(path, "/api/")

		if isAPI || c.Method() != fiber.MethodGet {
			log.Infow("request",
				"method", c.Method(),
				"path", path,
				"ip", ClientIP(c),
				"user_agent", c.Get(fiber.HeaderUserAgent),
				"request_id", requestID,
			)
		}

		if isAPI {
			c.Set(fiber.HeaderXFrameOptions, "DENY")

			origin := c.Get(fiber.HeaderOrigin)
			if c.Method() != fiber.MethodGet && origin != "" && !trusted[strings.ToLower(origin)] {
				log.Warnw("blocked request from unauthorized origin",
					"origin", origin,
					"referer", c.Get(fiber.HeaderReferer),
					"user_agent", c.Get(fiber.HeaderUserAgent),
					"ip", ClientIP(c),
					"request_id", requestID,
				)
				return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": ForbiddenOriginMessage})
			}
			return c.Next()
		}

		c.Set(fiber.HeaderXFrameOptions, "SAMEORIGIN")
		if !hasAnyPrefix(path, cfg.CSPExempt) {
			c.Set(fiber.HeaderContentSecurityPolicy, pageCSP)
		}
		if c.Secure() {
			c.Set(fiber.HeaderStrictTransportSecurity, hsts)
		}

		if pizzaHost != "" && hostOnly(c.Hostname()) == pizzaHost {
			if target, ok := pizzaRewrite(path); ok {
				c.Path(target)
			}
		}

		return c.Next()
	}
}

// CORS answers preflights and sets allow-origin for the trusted list.
func CORS(cfg SecurityConfig) fiber.Handler {
	exposed := []string{
		fiber.HeaderXRequestID,
		"X-RateLimit-Limit",
		"X-RateLimit-Remaining",
		"X-RateLimit-Reset",
		fiber.HeaderRetryAfter,
	}
	return cors.New(cors.Config{
		AllowOrigins:  strings.Join(cfg.TrustedOrigins, ","),
		AllowMethods:  strings.Join([]string{fiber.MethodGet, fiber.MethodPost, fiber.MethodOptions}, ","),
		AllowHeaders:  "Origin, Content-Type, Accept, Stripe-Signature",
		ExposeHeaders: strings.Join(exposed, ", "),
	})
}

// pizzaRewrite maps a pizza host path onto the /pizza pages. API, static
// assets and favicons are left alone.
func pizzaRewrite(path string) (string, bool) {
	switch {
	case strings.HasPrefix(path, "/api/"),
		strings.HasPrefix(path, constants.StaticRoute+"/"),
		strings.HasPrefix(path, "/favicon"),
		path == constants.PizzaRoute,
		strings.HasPrefix(path, "/pizza/"):
		return "", false
	case path == "" || path == "/":
		return constants.PizzaRoute, true
	}
	return constants.PizzaRoute + path, true
}

func hostOnly(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		return strings.ToLower(h)
	}
	return strings.ToLower(host)
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
