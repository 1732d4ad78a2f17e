package cache

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/storage/redis"
)

// LimiterDatabase keeps the API limiter counters apart from the cache (DB 0).
const LimiterDatabase = 1

// NewFiberStorage returns a Redis backed fiber.Storage on the CACHE_* server,
// used by Fiber middlewares that need shared state across instances.
func NewFiberStorage(database int) fiber.Storage {
	cfg := ConfigFromEnv()
	return redis.New(redis.Config{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Password: cfg.Password,
		Database: database,
		Reset:    false,
	})
}
