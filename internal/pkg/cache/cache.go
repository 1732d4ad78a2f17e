package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"

	"github.com/getyoursite/getyoursite/internal/pkg/env"
)

var client *redis.Client

// Config is the Redis endpoint from the CACHE_* keys.
type Config struct {
	Host     string
	Port     int
	Password string
	DB       int
}

func ConfigFromEnv() Config {
	port, err := strconv.Atoi(env.GetEnv("CACHE_PORT", "6379"))
	if err != nil {
		port = 6379
	}
	return Config{
		Host:     env.GetEnv("CACHE_HOST", "localhost"),
		Port:     port,
		Password: env.GetEnv("CACHE_PASSWORD", ""),
		DB:       env.GetEnvInt("CACHE_DB", 0),
	}
}

func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// SetupCache initializes the connection to the Redis server
func SetupCache() error {
	cfg := ConfigFromEnv()
	client = redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	// Test the connection
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warnf("Could not connect to Redis at %s: %v", cfg.Addr(), err)
		return err
	}
	log.Infof("Successfully connected to Redis at %s", cfg.Addr())
	return nil
}

// GetClient returns the Redis client instance
func GetClient() *redis.Client {
	if client == nil {
		_ = SetupCache()
	}
	return client
}

func Close() error {
	if client == nil {
		return nil
	}
	return client.Close()
}
