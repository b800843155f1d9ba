package ratelimit

import (
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// entry holds a rate limiter and its last access time for cleanup.
type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// FloodGuard is an in-memory per-key limiter backed by golang.org/x/time/rate.
// It sits in front of the device token bucket and caps raw request volume per
// client IP, which a caller rotating device keys cannot evade. Entries idle
// for two cleanup intervals are evicted in the background.
type FloodGuard struct {
	rate            rate.Limit
	burst           int
	limit           int
	cleanupInterval time.Duration
	now             func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
	done    chan struct{}
	closed  bool
}

// NewFloodGuard creates a guard allowing requestsPerMinute sustained with the
// given burst, and starts its eviction goroutine.
func NewFloodGuard(requestsPerMinute int, burst int, cleanupInterval time.Duration) *FloodGuard {
	g := &FloodGuard{
		rate:            rate.Every(time.Minute / time.Duration(requestsPerMinute)),
		burst:           burst,
		limit:           requestsPerMinute,
		cleanupInterval: cleanupInterval,
		now:             time.Now,
		entries:         make(map[string]*entry),
		done:            make(chan struct{}),
	}
	go g.cleanup()
	return g
}

// Allow checks whether a request from key should proceed.
func (g *FloodGuard) Allow(key string) (bool, Info) {
	now := g.now()

	g.mu.Lock()
	e, exists := g.entries[key]
	if !exists {
		e = &entry{limiter: rate.NewLimiter(g.rate, g.burst)}
		g.entries[key] = e
	}
	e.lastSeen = now
	g.mu.Unlock()

	allowed := e.limiter.AllowN(now, 1)
	tokens := e.limiter.TokensAt(now)

	info := Info{
		Limit:     g.limit,
		Remaining: int(math.Max(0, math.Floor(tokens))),
	}
	if !allowed {
		missing := 1 - tokens
		info.RetryAfter = time.Duration(missing / float64(g.rate) * float64(time.Second))
	}
	return allowed, info
}

// Len returns the number of tracked keys.
func (g *FloodGuard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.entries)
}

// Close stops the background cleanup goroutine.
func (g *FloodGuard) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.closed {
		g.closed = true
		close(g.done)
	}
}

func (g *FloodGuard) cleanup() {
	ticker := time.NewTicker(g.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-g.done:
			return
		case <-ticker.C:
			g.evictStale(g.now())
		}
	}
}

// evictStale removes entries not seen within 2x the cleanup interval.
func (g *FloodGuard) evictStale(now time.Time) {
	cutoff := now.Add(-2 * g.cleanupInterval)
	g.mu.Lock()
	defer g.mu.Unlock()
	for key, e := range g.entries {
		if e.lastSeen.Before(cutoff) {
			delete(g.entries, key)
		}
	}
}
