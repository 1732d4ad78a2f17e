// Package ratelimit implements fixed-window admission control keyed by a
// client identifier (usually the client IP).
package ratelimit

import (
	"context"
	"time"
)

const (
	DefaultMax      = 10
	DefaultWindow   = 15 * time.Minute
	DefaultCapacity = 10000
)

// Result is the admission decision for one request.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetTime time.Time
}

// RetryAfter returns the whole seconds until the window resets, at least 1.
func (r Result) RetryAfter(now time.Time) int {
	secs := int(r.ResetTime.Sub(now).Round(time.Second) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}

// Limiter decides whether a request from identifier may proceed.
type Limiter interface {
	Check(ctx context.Context, identifier string) (Result, error)
}

// Config configures a limiter. Zero values fall back to the defaults.
type Config struct {
	Max           int
	Window        time.Duration
	Capacity      int
	SweepInterval time.Duration
	Now           func() time.Time
}

func (c Config) withDefaults() Config {
	if c.Max <= 0 {
		c.Max = DefaultMax
	}
	if c.Window <= 0 {
		c.Window = DefaultWindow
	}
	if c.Capacity <= 0 {
		c.Capacity = DefaultCapacity
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = time.Minute
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}
