// Package ratelimit decides whether a request may proceed. It has two layers:
// a persistent per-device token bucket that meters humanization calls, and a
// coarse per-IP flood guard in front of every route.
package ratelimit

import "time"

// Limiter is the flood guard contract. Implementations must be safe for
// concurrent use.
type Limiter interface {
	// Allow reports whether a request identified by key may proceed.
	Allow(key string) (allowed bool, info Info)

	// Close stops background goroutines and releases resources.
	Close()
}

// Info describes flood guard state after a call to Allow.
type Info struct {
	Limit      int           // Requests per minute
	Remaining  int           // Approximate tokens remaining
	RetryAfter time.Duration // How long to wait, meaningful only when denied
}
