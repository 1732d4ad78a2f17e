package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
)

type entry struct {
	count     int
	resetTime time.Time
}

// MemoryLimiter is a process-local fixed-window limiter. The entry map is
// bounded: expired entries are swept periodically and on insert when the map
// is full, and the entry closest to its reset is evicted as a last resort.
// Limits only hold for a single-process deployment.
type MemoryLimiter struct {
	cfg Config

	mu      sync.Mutex
	entries map[string]*entry

	stopCh  chan struct{}
	wg      sync.WaitGroup
	running bool
}

// NewMemoryLimiter creates an isolated limiter instance.
func NewMemoryLimiter(cfg Config) *MemoryLimiter {
	cfg = cfg.withDefaults()
	return &MemoryLimiter{
		cfg:     cfg,
		entries: make(map[string]*entry),
	}
}

// Check never returns an error.
func (l *MemoryLimiter) Check(_ context.Context, identifier string) (Result, error) {
	return l.Allow(identifier), nil
}

// Allow applies the fixed-window rule to identifier.
func (l *MemoryLimiter) Allow(identifier string) Result {
	now := l.cfg.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[identifier]
	if !ok || now.After(e.resetTime) {
		if !ok {
			l.makeRoomLocked(now)
		}
		e = &entry{count: 1, resetTime: now.Add(l.cfg.Window)}
		l.entries[identifier] = e
		return Result{Allowed: true, Limit: l.cfg.Max, Remaining: l.cfg.Max - 1, ResetTime: e.resetTime}
	}

	if e.count >= l.cfg.Max {
		return Result{Allowed: false, Limit: l.cfg.Max, Remaining: 0, ResetTime: e.resetTime}
	}

	e.count++
	return Result{Allowed: true, Limit: l.cfg.Max, Remaining: l.cfg.Max - e.count, ResetTime: e.resetTime}
}

// Len returns the number of tracked identifiers.
func (l *MemoryLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Sweep drops every entry whose window has ended and returns how many were removed.
func (l *MemoryLimiter) Sweep() int {
	now := l.cfg.Now()
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sweepLocked(now)
}

func (l *MemoryLimiter) sweepLocked(now time.Time) int {
	removed := 0
	for k, e := range l.entries {
		if now.After(e.resetTime) {
			delete(l.entries, k)
			removed++
		}
	}
	return removed
}

func (l *MemoryLimiter) makeRoomLocked(now time.Time) {
	if len(l.entries) < l.cfg.Capacity {
		return
	}
	if l.sweepLocked(now) > 0 && len(l.entries) < l.cfg.Capacity {
		return
	}

	var oldestKey string
	var oldest time.Time
	for k, e := range l.entries {
		if oldestKey == "" || e.resetTime.Before(oldest) {
			oldestKey, oldest = k, e.resetTime
		}
	}
	if oldestKey != "" {
		delete(l.entries, oldestKey)
	}
}

// Start launches the background sweeper. Calling Start twice is a no-op.
func (l *MemoryLimiter) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.running {
		return
	}
	l.running = true
	l.stopCh = make(chan struct{})

	l.wg.Add(1)
	go l.janitor(l.stopCh)
}

// Stop halts the sweeper and waits for it to exit.
func (l *MemoryLimiter) Stop() {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}
	l.running = false
	close(l.stopCh)
	l.mu.Unlock()

	l.wg.Wait()
}

func (l *MemoryLimiter) janitor(stopCh <-chan struct{}) {
	defer l.wg.Done()

	ticker := time.NewTicker(l.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			if n := l.Sweep(); n > 0 {
				log.Debugf("[RateLimit] swept %d expired entries", n)
			}
		}
	}
}
