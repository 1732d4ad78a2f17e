package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clientIPApp(proxy ProxyConfig) *fiber.App {
	cfg := fiber.Config{}
	proxy.Apply(&cfg)
	app := fiber.New(cfg)
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString(ClientIP(c)) })
	return app
}

func TestClientIP(t *testing.T) {
	// app.Test connects from 0.0.0.0
	trusted := []string{"0.0.0.0"}

	tests := []struct {
		name    string
		proxy   ProxyConfig
		headers map[string]string
		want    string
	}{
		{"socket address", ProxyConfig{}, nil, "0.0.0.0"},
		{"headers ignored without proxy header", ProxyConfig{}, map[string]string{"X-Forwarded-For": "198.51.100.1", "CF-Connecting-IP": "203.0.113.7", "X-Real-IP": "192.0.2.9"}, "0.0.0.0"},
		{"untrusted peer", ProxyConfig{Header: fiber.HeaderXForwardedFor, Trusted: []string{"10.0.0.1"}}, map[string]string{"X-Forwarded-For": "198.51.100.1"}, "0.0.0.0"},
		{"header without trusted list", ProxyConfig{Header: fiber.HeaderXForwardedFor}, map[string]string{"X-Forwarded-For": "198.51.100.1"}, "0.0.0.0"},
		{"cloudflare from trusted peer", ProxyConfig{Header: "CF-Connecting-IP", Trusted: trusted}, map[string]string{"CF-Connecting-IP": "203.0.113.7"}, "203.0.113.7"},
		{"first forwarded entry", ProxyConfig{Header: fiber.HeaderXForwardedFor, Trusted: trusted}, map[string]string{"X-Forwarded-For": "198.51.100.1, 10.0.0.1"}, "198.51.100.1"},
		{"trusted cidr", ProxyConfig{Header: fiber.HeaderXForwardedFor, Trusted: []string{"0.0.0.0/8"}}, map[string]string{"X-Forwarded-For": "2001:db8::1"}, "2001:db8::1"},
		{"real ip header", ProxyConfig{Header: "X-Real-IP", Trusted: trusted}, map[string]string{"X-Real-IP": "192.0.2.4", "X-Forwarded-For": "198.51.100.1"}, "192.0.2.4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			resp, err := clientIPApp(tt.proxy).Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, body(t, resp))
		})
	}
}

func TestCleanIP(t *testing.T) {
	assert.Equal(t, "192.0.2.4", cleanIP(" ::ffff:192.0.2.4 "))
	assert.Equal(t, "2001:db8::1", cleanIP("2001:db8::1"))
	assert.Empty(t, cleanIP("unknown"))
	assert.Empty(t, cleanIP(""))
}

func TestProxyConfigFromEnv(t *testing.T) {
	t.Setenv("PROXY_HEADER", "CF-Connecting-IP")
	t.Setenv("TRUSTED_PROXIES", "173.245.48.0/20, 10.0.0.1")

	p := ProxyConfigFromEnv()
	assert.Equal(t, "CF-Connecting-IP", p.Header)
	assert.Equal(t, []string{"173.245.48.0/20", "10.0.0.1"}, p.Trusted)

	var cfg fiber.Config
	p.Apply(&cfg)
	assert.True(t, cfg.EnableTrustedProxyCheck)
	assert.True(t, cfg.EnableIPValidation)
	assert.Equal(t, "CF-Connecting-IP", cfg.ProxyHeader)
}
