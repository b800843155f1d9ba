package models

import "time"

// RateLimitBucket is the persisted token-bucket state for one device key.
// Tokens stays within [0, max tokens]; refill is computed lazily from
// LastRefill when the bucket is read.
type RateLimitBucket struct {
	Key        string    `json:"key"`
	Tokens     int       `json:"tokens"`
	LastRefill time.Time `json:"last_refill"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Clone returns a copy so stores never share mutable state with callers.
func (b *RateLimitBucket) Clone() *RateLimitBucket {
	if b == nil {
		return nil
	}
	c := *b
	return &c
}
