package storage

import (
	"context"
	"time"

	"humanizer/internal/models"
)

// BucketStore persists token-bucket state keyed by device identity. It is the
// only mutable state shared between requests.
//
// Implementations serialize individual reads and writes of a single bucket
// but not a read followed by a write: two requests racing on the same key may
// both observe the same bucket before either saves it. Callers treat the
// resulting over-admission as acceptable.
type BucketStore interface {
	// GetBucket returns the bucket for key, or ErrBucketNotFound.
	GetBucket(ctx context.Context, key string) (*models.RateLimitBucket, error)

	// SaveBucket creates or replaces the bucket for bucket.Key.
	SaveBucket(ctx context.Context, bucket *models.RateLimitBucket) error

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases connections and background goroutines.
	Close() error
}

// Config holds configuration for storage backends
type Config struct {
	// Type specifies the storage backend type (memory, json, sqlite, postgres, redis)
	Type string `json:"type" yaml:"type"`

	// Path is used for file-based storage backends
	Path string `json:"path,omitempty" yaml:"path,omitempty"`

	// ConnectionString is used for database backends
	ConnectionString string `json:"connection_string,omitempty" yaml:"connection_string,omitempty"`

	// Retention is how long an untouched bucket is kept, where the backend
	// supports expiry. Zero keeps buckets forever.
	Retention time.Duration `json:"retention,omitempty" yaml:"retention,omitempty"`

	Database models.DatabaseConfig `json:"database,omitempty" yaml:"database,omitempty"`
	Redis    models.RedisConfig    `json:"redis,omitempty" yaml:"redis,omitempty"`
}
