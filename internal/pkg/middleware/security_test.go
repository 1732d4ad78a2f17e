package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSecurityConfig() SecurityConfig {
	return SecurityConfig{
		TrustedOrigins: NormalizeOrigins(append([]string{"https://getyoursite.fr"}, LocalOrigins("4000")...)),
		PizzaHost:      DefaultPizzaHost,
		CSPExempt:      []string{"/docs/"},
	}
}

func newSecurityApp() *fiber.App {
	app := fiber.New()
	app.Use(Security(testSecurityConfig()))

	echoPath := func(c *fiber.Ctx) error { return c.SendString(c.Path()) }
	app.Get("/", echoPath)
	app.Get("/pizza", echoPath)
	app.Get("/pizza/menu", echoPath)
	app.Get("/mairie", echoPath)
	app.Get("/docs/api", echoPath)
	app.Get("/static/app.css", echoPath)
	app.Get("/api/contact", echoPath)
	app.Post("/api/contact", echoPath)
	return app
}

func body(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func TestSecurityHeadersOnPages(t *testing.T) {
	app := newSecurityApp()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/mairie", nil))
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Equal(t, "1; mode=block", resp.Header.Get("X-XSS-Protection"))
	assert.Equal(t, "no-store, max-age=0", resp.Header.Get("Cache-Control"))
	assert.Equal(t, "SAMEORIGIN", resp.Header.Get("X-Frame-Options"))
	assert.Contains(t, resp.Header.Get("Content-Security-Policy"), "default-src 'self'")
	assert.Empty(t, resp.Header.Get("Strict-Transport-Security"), "plain http gets no HSTS")
}

func TestSecurityHeadersOnAPI(t *testing.T) {
	app := newSecurityApp()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/contact", nil))
	require.NoError(t, err)

	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
	assert.Empty(t, resp.Header.Get("Content-Security-Policy"))
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
}

func TestSecurityCSPExemptPaths(t *testing.T) {
	app := newSecurityApp()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/docs/api", nil))
	require.NoError(t, err)
	assert.Empty(t, resp.Header.Get("Content-Security-Policy"))
	assert.Equal(t, "SAMEORIGIN", resp.Header.Get("X-Frame-Options"))
}

func TestSecurityOriginGuard(t *testing.T) {
	tests := []struct {
		name   string
		method string
		origin string
		want   int
	}{
		{"untrusted post", http.MethodPost, "https://evil.example", http.StatusForbidden},
		{"trusted post", http.MethodPost, "https://getyoursite.fr", http.StatusOK},
		{"localhost variant", http.MethodPost, "http://localhost:4000", http.StatusOK},
		{"case insensitive", http.MethodPost, "HTTPS://GetYourSite.fr", http.StatusOK},
		{"no origin header", http.MethodPost, "", http.StatusOK},
		{"untrusted get", http.MethodGet, "https://evil.example", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newSecurityApp()
			req := httptest.NewRequest(tt.method, "/api/contact", strings.NewReader("{}"))
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
			assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
			if tt.want == http.StatusForbidden {
				assert.JSONEq(t, `{"error":"Origin non autorisée"}`, body(t, resp))
			}
		})
	}
}

func TestSecurityPizzaHostRewrite(t *testing.T) {
	tests := []struct {
		host string
		path string
		want string
	}{
		{"pizza.getyoursite.fr", "/", "/pizza"},
		{"pizza.getyoursite.fr:443", "/", "/pizza"},
		{"pizza.getyoursite.fr", "/menu", "/pizza/menu"},
		{"pizza.getyoursite.fr", "/pizza/menu", "/pizza/menu"},
		{"pizza.getyoursite.fr", "/static/app.css", "/static/app.css"},
		{"pizza.getyoursite.fr", "/api/contact", "/api/contact"},
		{"getyoursite.fr", "/", "/"},
	}

	for _, tt := range tests {
		t.Run(tt.host+tt.path, func(t *testing.T) {
			app := newSecurityApp()
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			req.Host = tt.host
			resp, err := app.Test(req)
			require.NoError(t, err)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, tt.want, body(t, resp))
		})
	}
}

func TestSecurityReusesRequestID(t *testing.T) {
	app := fiber.New()
	app.Use(requestid.New())
	app.Use(Security(testSecurityConfig()))
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString(RequestID(c)) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-123")
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, "req-123", resp.Header.Get("X-Request-ID"))
	assert.Equal(t, "req-123", body(t, resp))
}

func TestCORSAllowsTrustedOrigin(t *testing.T) {
	app := fiber.New()
	app.Use(CORS(testSecurityConfig()))
	app.Post("/api/contact", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/api/contact", nil)
	req.Header.Set("Origin", "https://getyoursite.fr")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "https://getyoursite.fr", resp.Header.Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/api/contact", nil)
	req.Header.Set("Origin", "https://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestNormalizeOrigins(t *testing.T) {
	got := NormalizeOrigins([]string{
		"https://GetYourSite.fr/",
		"https://getyoursite.fr",
		"ftp://files.example",
		"not a url",
		" http://localhost:3000 ",
	})
	assert.Equal(t, []string{"https://getyoursite.fr", "http://localhost:3000"}, got)
}

func TestLocalOrigins(t *testing.T) {
	assert.Equal(t, []string{"http://localhost:3000", "http://127.0.0.1:3000"}, LocalOrigins("3000", ""))
	assert.Equal(t, []string{
		"http://localhost:3000", "http://127.0.0.1:3000",
		"http://localhost:4000", "http://127.0.0.1:4000",
	}, LocalOrigins("4000"))
}
