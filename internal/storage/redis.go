package storage

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"humanizer/internal/models"

	"github.com/redis/go-redis/v9"
)

const defaultRedisKeyPrefix = "humanizer:bucket"

// RedisStorage stores each bucket as a hash. Retention becomes the key TTL,
// refreshed on every save, so idle devices expire without a sweep.
type RedisStorage struct {
	client    redis.Cmdable
	closer    func() error
	prefix    string
	retention time.Duration
}

// NewRedisStorage dials the configured server and verifies the connection.
func NewRedisStorage(config Config) (*RedisStorage, error) {
	if config.Redis.Addr == "" {
		return nil, fmt.Errorf("address is required for Redis storage")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Redis.Addr,
		Password: config.Redis.Password,
		DB:       config.Redis.DB,
		PoolSize: config.Redis.PoolSize,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	s := NewRedisStorageFromClient(client, config.Redis.KeyPrefix, config.Retention)
	s.closer = client.Close
	return s, nil
}

// NewRedisStorageFromClient wraps an existing client, such as a cluster or
// sentinel client. Close does not close a client passed in this way.
func NewRedisStorageFromClient(client redis.Cmdable, prefix string, retention time.Duration) *RedisStorage {
	if prefix == "" {
		prefix = defaultRedisKeyPrefix
	}
	return &RedisStorage{
		client:    client,
		closer:    func() error { return nil },
		prefix:    prefix,
		retention: retention,
	}
}

func (r *RedisStorage) redisKey(key string) string {
	return r.prefix + ":" + key
}

func (r *RedisStorage) GetBucket(ctx context.Context, key string) (*models.RateLimitBucket, error) {
	fields, err := r.client.HGetAll(ctx, r.redisKey(key)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get bucket: %w", err)
	}
	if len(fields) == 0 {
		return nil, ErrBucketNotFound
	}

	bucket, err := decodeBucketHash(key, fields)
	if err != nil {
		return nil, fmt.Errorf("corrupt bucket %s: %w", key, err)
	}
	return bucket, nil
}

func (r *RedisStorage) SaveBucket(ctx context.Context, bucket *models.RateLimitBucket) error {
	rk := r.redisKey(bucket.Key)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, rk,
			"tokens", bucket.Tokens,
			"last_refill", bucket.LastRefill.UnixNano(),
			"updated_at", bucket.UpdatedAt.UnixNano(),
		)
		if r.retention > 0 {
			pipe.Expire(ctx, rk, r.retention)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save bucket: %w", err)
	}
	return nil
}

func (r *RedisStorage) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisStorage) Close() error {
	return r.closer()
}

func decodeBucketHash(key string, fields map[string]string) (*models.RateLimitBucket, error) {
	tokens, err := strconv.Atoi(fields["tokens"])
	if err != nil {
		return nil, fmt.Errorf("tokens: %w", err)
	}
	lastRefill, err := strconv.ParseInt(fields["last_refill"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("last_refill: %w", err)
	}
	updatedAt, _ := strconv.ParseInt(fields["updated_at"], 10, 64)

	return &models.RateLimitBucket{
		Key:        key,
		Tokens:     tokens,
		LastRefill: time.Unix(0, lastRefill),
		UpdatedAt:  fromUnixNano(updatedAt),
	}, nil
}
