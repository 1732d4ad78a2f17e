package middleware

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"golang.org/x/crypto/bcrypt"

	"github.com/getyoursite/getyoursite/internal/pkg/env"
)

// MetricsCredentials protect /metrics. PasswordHash is a bcrypt hash and wins
// over the plain Password.
type MetricsCredentials struct {
	User         string
	Password     string
	PasswordHash string
}

func MetricsCredentialsFromEnv() MetricsCredentials {
	return MetricsCredentials{
		User:         env.GetEnv("METRICS_USER", "admin"),
		Password:     env.GetEnv("METRICS_PASSWORD", ""),
		PasswordHash: env.GetEnv("METRICS_PASSWORD_HASH", ""),
	}
}

func (m MetricsCredentials) Configured() bool {
	return m.User != "" && (m.Password != "" || m.PasswordHash != "")
}

func (m MetricsCredentials) authorize(user, pass string) bool {
	if subtle.ConstantTimeCompare([]byte(user), []byte(m.User)) != 1 {
		return false
	}
	if m.PasswordHash != "" {
		return bcrypt.CompareHashAndPassword([]byte(m.PasswordHash), []byte(pass)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(pass), []byte(m.Password)) == 1
}

// BasicAuth guards the monitoring endpoints.
func BasicAuth(creds MetricsCredentials) fiber.Handler {
	return basicauth.New(basicauth.Config{
		Realm:      "Restricted",
		Authorizer: creds.authorize,
	})
}
