package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"humanizer/internal/models"
	"humanizer/internal/storage"
)

// Decision is the outcome of TokenBucket.Admit.
type Decision struct {
	Allowed           bool
	TokensRemaining   int // Valid when Allowed
	RetryAfterSeconds int // Valid when denied, always positive
	Limit             int // Bucket capacity
}

// Option configures a TokenBucket.
type Option func(*TokenBucket)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(tb *TokenBucket) {
		tb.now = now
	}
}

// TokenBucket meters requests per device key. Buckets refill lazily on read:
// one token per refill interval, capped at maxTokens.
//
// Admit is a read followed by a write with no compare-and-swap in between, so
// two concurrent requests for the same key can both be admitted from the same
// token. This over-admits by at most one per race and is accepted.
type TokenBucket struct {
	store          storage.BucketStore
	maxTokens      int
	refillInterval time.Duration
	now            func() time.Time
}

// NewTokenBucket creates a limiter over store.
func NewTokenBucket(store storage.BucketStore, maxTokens int, refillInterval time.Duration, opts ...Option) *TokenBucket {
	tb := &TokenBucket{
		store:          store,
		maxTokens:      maxTokens,
		refillInterval: refillInterval,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(tb)
	}
	return tb
}

// Limit returns the bucket capacity.
func (tb *TokenBucket) Limit() int {
	return tb.maxTokens
}

// Admit consumes one token for key if one is available. A denied request
// leaves the stored bucket untouched. Store failures are returned as errors
// and the caller must treat them as a denial.
func (tb *TokenBucket) Admit(ctx context.Context, key string) (Decision, error) {
	now := tb.now()

	bucket, err := tb.store.GetBucket(ctx, key)
	if errors.Is(err, storage.ErrBucketNotFound) {
		bucket = &models.RateLimitBucket{
			Key:        key,
			Tokens:     tb.maxTokens - 1,
			LastRefill: now,
			UpdatedAt:  now,
		}
		if err := tb.store.SaveBucket(ctx, bucket); err != nil {
			return Decision{}, fmt.Errorf("failed to create bucket: %w", err)
		}
		return tb.admitted(bucket.Tokens), nil
	}
	if err != nil {
		return Decision{}, fmt.Errorf("failed to read bucket: %w", err)
	}

	elapsed := now.Sub(bucket.LastRefill)
	if elapsed < 0 {
		// Clock skew between replicas sharing a store.
		elapsed = 0
	}
	refillCount := int(elapsed / tb.refillInterval)
	available := min(tb.maxTokens, bucket.Tokens+refillCount)

	if available < 1 {
		wait := tb.refillInterval - elapsed%tb.refillInterval
		return Decision{
			Allowed:           false,
			RetryAfterSeconds: int(math.Ceil(wait.Seconds())),
			Limit:             tb.maxTokens,
		}, nil
	}

	bucket.Tokens = available - 1
	// Moving last_refill without a refill would discard partial progress
	// toward the next token.
	if refillCount > 0 {
		bucket.LastRefill = now
	}
	bucket.UpdatedAt = now

	if err := tb.store.SaveBucket(ctx, bucket); err != nil {
		return Decision{}, fmt.Errorf("failed to update bucket: %w", err)
	}
	return tb.admitted(bucket.Tokens), nil
}

func (tb *TokenBucket) admitted(remaining int) Decision {
	return Decision{
		Allowed:         true,
		TokensRemaining: remaining,
		Limit:           tb.maxTokens,
	}
}
