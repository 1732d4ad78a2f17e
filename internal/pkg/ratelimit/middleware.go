package ratelimit

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

// LocalsKey holds the Result of the current request in fiber.Ctx locals.
const LocalsKey = "ratelimit"

// RejectedMessage is the body returned with 429 responses.
const RejectedMessage = "Trop de requêtes. Veuillez réessayer plus tard."

// KeyFunc extracts the client identifier from a request.
type KeyFunc func(c *fiber.Ctx) string

// RejectFunc is called for every request answered with 429.
type RejectFunc func(c *fiber.Ctx, res Result)

// Middleware guards the next handler with l. A limiter error lets the request
// through so an unavailable backend never blocks the contact form.
func Middleware(l Limiter, keyFunc KeyFunc, onReject ...RejectFunc) fiber.Handler {
	if keyFunc == nil {
		keyFunc = func(c *fiber.Ctx) string { return c.IP() }
	}

	return func(c *fiber.Ctx) error {
		key := keyFunc(c)
		res, err := l.Check(c.UserContext(), key)
		if err != nil {
			log.Warnw("[RateLimit] check failed, allowing request",
				"error", err, "key", key, "request_id", c.Locals("requestid"))
			return c.Next()
		}

		c.Locals(LocalsKey, res)
		c.Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		c.Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetTime.Unix(), 10))

		if !res.Allowed {
			retry := res.RetryAfter(time.Now())
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retry))
			log.Warnw("[RateLimit] request rejected",
				"key", key, "path", c.Path(), "retry_after", retry, "request_id", c.Locals("requestid"))
			for _, fn := range onReject {
				fn(c, res)
			}
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":      RejectedMessage,
				"retryAfter": retry,
			})
		}

		return c.Next()
	}
}

// FromLocals returns the Result stored by Middleware, if any.
func FromLocals(c *fiber.Ctx) (Result, bool) {
	res, ok := c.Locals(LocalsKey).(Result)
	return res, ok
}
