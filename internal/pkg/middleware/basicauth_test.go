package middleware

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func basicHeader(user, pass string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+pass))
}

func TestBasicAuth(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)

	tests := []struct {
		name  string
		creds MetricsCredentials
		user  string
		pass  string
		want  int
	}{
		{"plain ok", MetricsCredentials{User: "admin", Password: "s3cret"}, "admin", "s3cret", http.StatusOK},
		{"plain wrong", MetricsCredentials{User: "admin", Password: "s3cret"}, "admin", "nope", http.StatusUnauthorized},
		{"wrong user", MetricsCredentials{User: "admin", Password: "s3cret"}, "root", "s3cret", http.StatusUnauthorized},
		{"hash ok", MetricsCredentials{User: "admin", PasswordHash: string(hash)}, "admin", "s3cret", http.StatusOK},
		{"hash wins over plain", MetricsCredentials{User: "admin", Password: "plain", PasswordHash: string(hash)}, "admin", "plain", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/metrics", BasicAuth(tt.creds), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

			req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
			req.Header.Set("Authorization", basicHeader(tt.user, tt.pass))
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestMetricsCredentialsConfigured(t *testing.T) {
	assert.False(t, MetricsCredentials{User: "admin"}.Configured())
	assert.True(t, MetricsCredentials{User: "admin", Password: "x"}.Configured())
	assert.True(t, MetricsCredentials{User: "admin", PasswordHash: "$2a$..."}.Configured())
}
