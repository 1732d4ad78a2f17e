package middleware

import (
	"net"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/getyoursite/getyoursite/internal/pkg/env"
)

// ProxyConfig tells Fiber which peers may set the client address header.
type ProxyConfig struct {
	// Header carrying the client address, e.g. CF-Connecting-IP or X-Forwarded-For.
	Header string
	// Trusted lists proxy IPs or CIDR ranges. The header is ignored for any other peer.
	Trusted []string
}

func ProxyConfigFromEnv() ProxyConfig {
	return ProxyConfig{
		Header:  strings.TrimSpace(env.GetEnv("PROXY_HEADER", "")),
		Trusted: env.GetEnvList("TRUSTED_PROXIES", nil),
	}
}

// Apply sets the proxy options on a Fiber config. The trusted proxy check is
// always on so that c.IP() never reads the header from an unlisted peer.
func (p ProxyConfig) Apply(cfg *fiber.Config) {
	cfg.ProxyHeader = p.Header
	cfg.EnableTrustedProxyCheck = true
	cfg.TrustedProxies = p.Trusted
	cfg.EnableIPValidation = true
}

// ClientIP returns the client address as resolved by Fiber. Forwarding headers
// only count when the app is configured through ProxyConfig and the peer is trusted.
func ClientIP(c *fiber.Ctx) string {
	if ip := cleanIP(c.IP()); ip != "" {
		return ip
	}
	return c.Context().RemoteIP().String()
}

// cleanIP trims the value, unwraps IPv4-mapped IPv6 (::ffff:1.2.3.4) and
// drops anything that is not an IP address.
func cleanIP(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	parsed := net.ParseIP(raw)
	if parsed == nil {
		return ""
	}
	if v4 := parsed.To4(); v4 != nil && strings.Contains(raw, ":") {
		return v4.String()
	}
	return parsed.String()
}
