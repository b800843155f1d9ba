package storage

import (
	"context"
	"sync"
	"testing"
	"time"

	"humanizer/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseBucketStore runs the behaviour every backend must share.
func exerciseBucketStore(t *testing.T, store BucketStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("missing bucket", func(t *testing.T) {
		_, err := store.GetBucket(ctx, "device:missing")
		assert.ErrorIs(t, err, ErrBucketNotFound)
	})

	t.Run("save and get", func(t *testing.T) {
		refill := time.Date(2026, 1, 2, 3, 4, 5, 6000, time.UTC)
		bucket := &models.RateLimitBucket{
			Key:        "device:abc",
			Tokens:     3,
			LastRefill: refill,
			UpdatedAt:  refill,
		}
		require.NoError(t, store.SaveBucket(ctx, bucket))

		got, err := store.GetBucket(ctx, "device:abc")
		require.NoError(t, err)
		assert.Equal(t, "device:abc", got.Key)
		assert.Equal(t, 3, got.Tokens)
		assert.True(t, refill.Equal(got.LastRefill), "last refill %v != %v", got.LastRefill, refill)
	})

	t.Run("overwrite", func(t *testing.T) {
		now := time.Now()
		require.NoError(t, store.SaveBucket(ctx, &models.RateLimitBucket{Key: "device:ow", Tokens: 5, LastRefill: now, UpdatedAt: now}))
		require.NoError(t, store.SaveBucket(ctx, &models.RateLimitBucket{Key: "device:ow", Tokens: 0, LastRefill: now, UpdatedAt: now}))

		got, err := store.GetBucket(ctx, "device:ow")
		require.NoError(t, err)
		assert.Equal(t, 0, got.Tokens)
	})

	t.Run("keys are independent", func(t *testing.T) {
		now := time.Now()
		require.NoError(t, store.SaveBucket(ctx, &models.RateLimitBucket{Key: "device:a", Tokens: 1, LastRefill: now, UpdatedAt: now}))
		require.NoError(t, store.SaveBucket(ctx, &models.RateLimitBucket{Key: "device:b", Tokens: 4, LastRefill: now, UpdatedAt: now}))

		a, err := store.GetBucket(ctx, "device:a")
		require.NoError(t, err)
		b, err := store.GetBucket(ctx, "device:b")
		require.NoError(t, err)
		assert.Equal(t, 1, a.Tokens)
		assert.Equal(t, 4, b.Tokens)
	})

	t.Run("ping", func(t *testing.T) {
		assert.NoError(t, store.Ping(ctx))
	})
}

func TestMemoryStorage(t *testing.T) {
	store, err := NewMemoryStorage(Config{})
	require.NoError(t, err)
	defer store.Close()

	exerciseBucketStore(t, store)
}

func TestMemoryStorage_ReturnsCopies(t *testing.T) {
	store, err := NewMemoryStorage(Config{})
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	bucket := &models.RateLimitBucket{Key: "device:x", Tokens: 5, LastRefill: time.Now()}
	require.NoError(t, store.SaveBucket(ctx, bucket))

	bucket.Tokens = 0
	got, err := store.GetBucket(ctx, "device:x")
	require.NoError(t, err)
	assert.Equal(t, 5, got.Tokens, "caller mutation must not leak into the store")

	got.Tokens = 1
	again, err := store.GetBucket(ctx, "device:x")
	require.NoError(t, err)
	assert.Equal(t, 5, again.Tokens)
}

func TestMemoryStorage_EvictIdle(t *testing.T) {
	store, err := NewMemoryStorage(Config{Retention: time.Hour})
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	now := time.Now()
	require.NoError(t, store.SaveBucket(ctx, &models.RateLimitBucket{Key: "device:old", Tokens: 5, UpdatedAt: now.Add(-2 * time.Hour)}))
	require.NoError(t, store.SaveBucket(ctx, &models.RateLimitBucket{Key: "device:new", Tokens: 5, UpdatedAt: now}))

	assert.Equal(t, 1, store.evictIdle(now))
	assert.Equal(t, 1, store.Len())

	_, err = store.GetBucket(ctx, "device:old")
	assert.ErrorIs(t, err, ErrBucketNotFound)
}

func TestMemoryStorage_ConcurrentAccess(t *testing.T) {
	store, err := NewMemoryStorage(Config{})
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			b := &models.RateLimitBucket{Key: "device:shared", Tokens: n % 5, LastRefill: time.Now()}
			_ = store.SaveBucket(ctx, b)
			_, _ = store.GetBucket(ctx, "device:shared")
		}(i)
	}
	wg.Wait()

	_, err = store.GetBucket(ctx, "device:shared")
	assert.NoError(t, err)
}

func TestMemoryStorage_CloseIdempotent(t *testing.T) {
	store, err := NewMemoryStorage(Config{Retention: time.Minute})
	require.NoError(t, err)

	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())
}
