package storage

import (
	"context"
	"sync"
	"time"

	"humanizer/internal/models"
)

// MemoryStorage keeps buckets in a map. Buckets untouched for longer than the
// configured retention are evicted by a background sweep.
type MemoryStorage struct {
	mu        sync.RWMutex
	buckets   map[string]*models.RateLimitBucket
	retention time.Duration
	stopCh    chan struct{}
	closeOnce sync.Once
}

// NewMemoryStorage creates a new in-memory storage instance
func NewMemoryStorage(config Config) (*MemoryStorage, error) {
	m := &MemoryStorage{
		buckets:   make(map[string]*models.RateLimitBucket),
		retention: config.Retention,
		stopCh:    make(chan struct{}),
	}

	if m.retention > 0 {
		go m.evictLoop(sweepInterval(m.retention))
	}

	return m, nil
}

func sweepInterval(retention time.Duration) time.Duration {
	interval := retention / 4
	if interval < time.Second {
		interval = time.Second
	}
	return interval
}

// GetBucket returns a copy of the stored bucket.
func (m *MemoryStorage) GetBucket(ctx context.Context, key string) (*models.RateLimitBucket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	bucket, ok := m.buckets[key]
	if !ok {
		return nil, ErrBucketNotFound
	}
	return bucket.Clone(), nil
}

// SaveBucket stores a copy of bucket.
func (m *MemoryStorage) SaveBucket(ctx context.Context, bucket *models.RateLimitBucket) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.buckets[bucket.Key] = bucket.Clone()
	return nil
}

func (m *MemoryStorage) Ping(ctx context.Context) error {
	return nil
}

// Len returns the number of tracked buckets.
func (m *MemoryStorage) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.buckets)
}

// Close stops the eviction goroutine. Safe to call more than once.
func (m *MemoryStorage) Close() error {
	m.closeOnce.Do(func() {
		close(m.stopCh)
	})
	return nil
}

func (m *MemoryStorage) evictLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.evictIdle(time.Now())
		case <-m.stopCh:
			return
		}
	}
}

// evictIdle drops buckets whose last update is older than the retention.
func (m *MemoryStorage) evictIdle(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, bucket := range m.buckets {
		if now.Sub(bucket.UpdatedAt) > m.retention {
			delete(m.buckets, key)
			removed++
		}
	}
	return removed
}
