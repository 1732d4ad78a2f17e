package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorHandler(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(RequestIDKey, "rid-1")
		return c.Next()
	})
	app.Get("/api/boom", func(*fiber.Ctx) error { return errors.New("db password leaked in error") })
	app.Get("/api/teapot", func(*fiber.Ctx) error { return fiber.NewError(fiber.StatusTeapot, "short and stout") })
	app.Get("/page", func(*fiber.Ctx) error { return errors.New("boom") })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/boom", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.JSONEq(t, `{"error":"Erreur serveur","requestId":"rid-1"}`, body(t, resp))

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/teapot", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusTeapot, resp.StatusCode)
	assert.JSONEq(t, `{"error":"short and stout","requestId":"rid-1"}`, body(t, resp))

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/missing", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/page", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Erreur serveur", body(t, resp))
	assert.Equal(t, "rid-1", resp.Header.Get("X-Request-ID"))
}
