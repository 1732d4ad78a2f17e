package ratelimit

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingLimiter struct{}

func (failingLimiter) Check(context.Context, string) (Result, error) {
	return Result{}, errors.New("redis down")
}

func newLimitedApp(l Limiter, key KeyFunc) *fiber.App {
	app := fiber.New()
	app.Post("/api/contact", Middleware(l, key), func(c *fiber.Ctx) error {
		res, ok := FromLocals(c)
		if !ok {
			return c.SendString("no-result")
		}
		return c.SendString(strconv.Itoa(res.Remaining))
	})
	return app
}

func TestMiddlewareSetsHeadersAndRejects(t *testing.T) {
	l := NewMemoryLimiter(Config{Max: 2, Window: time.Minute})
	app := newLimitedApp(l, func(c *fiber.Ctx) string { return "client" })

	for i, want := range []string{"1", "0"} {
		resp, err := app.Test(httptest.NewRequest("POST", "/api/contact", nil), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode, "request %d", i)
		assert.Equal(t, "2", resp.Header.Get("X-RateLimit-Limit"))
		assert.Equal(t, want, resp.Header.Get("X-RateLimit-Remaining"))
		assert.NotEmpty(t, resp.Header.Get("X-RateLimit-Reset"))
	}

	resp, err := app.Test(httptest.NewRequest("POST", "/api/contact", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "0", resp.Header.Get("X-RateLimit-Remaining"))

	retry, err := strconv.Atoi(resp.Header.Get("Retry-After"))
	require.NoError(t, err)
	assert.True(t, retry >= 1 && retry <= 60, "retry-after %d", retry)

	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "Trop de requêtes")
}

func TestMiddlewareDefaultKeyIsIP(t *testing.T) {
	l := NewMemoryLimiter(Config{Max: 1, Window: time.Minute})
	app := newLimitedApp(l, nil)

	resp, err := app.Test(httptest.NewRequest("POST", "/api/contact", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("POST", "/api/contact", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
}

func TestMiddlewareFailsOpen(t *testing.T) {
	app := newLimitedApp(failingLimiter{}, nil)

	resp, err := app.Test(httptest.NewRequest("POST", "/api/contact", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Empty(t, resp.Header.Get("X-RateLimit-Limit"))

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "no-result", string(body))
}

func TestMiddlewareCallsRejectHook(t *testing.T) {
	l := NewMemoryLimiter(Config{Max: 1, Window: time.Minute})
	var rejected []Result
	app := fiber.New()
	app.Post("/api/contact",
		Middleware(l, func(*fiber.Ctx) string { return "client" }, func(_ *fiber.Ctx, res Result) {
			rejected = append(rejected, res)
		}),
		func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) },
	)

	for i := 0; i < 3; i++ {
		_, err := app.Test(httptest.NewRequest("POST", "/api/contact", nil), -1)
		require.NoError(t, err)
	}

	require.Len(t, rejected, 2)
	assert.False(t, rejected[0].Allowed)
	assert.Equal(t, 0, rejected[1].Remaining)
}
