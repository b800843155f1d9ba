package storage

import (
	"context"
	"errors"
	"fmt"

	"humanizer/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresStorage stores buckets in PostgreSQL through a pgx connection pool.
type PostgresStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresStorage connects, pings and migrates the schema.
func NewPostgresStorage(config Config) (*PostgresStorage, error) {
	if config.ConnectionString == "" {
		return nil, fmt.Errorf("connection string is required for PostgreSQL storage")
	}

	poolConfig, err := pgxpool.ParseConfig(config.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	if config.Database.MaxOpenConns > 0 {
		poolConfig.MaxConns = int32(config.Database.MaxOpenConns)
	}
	if config.Database.MaxIdleConns > 0 {
		poolConfig.MinConns = int32(config.Database.MaxIdleConns)
	}
	if config.Database.ConnMaxLifetime > 0 {
		poolConfig.MaxConnLifetime = config.Database.ConnMaxLifetime
	}

	ctx := context.Background()
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := stdlib.OpenDBFromPool(pool)
	err = migrate(ctx, db, goose.DialectPostgres, "postgres")
	db.Close()
	if err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStorage{pool: pool}, nil
}

func (ps *PostgresStorage) GetBucket(ctx context.Context, key string) (*models.RateLimitBucket, error) {
	bucket := &models.RateLimitBucket{Key: key}
	err := ps.pool.QueryRow(ctx,
		`SELECT tokens, last_refill, updated_at FROM rate_limit_buckets WHERE key = $1`, key,
	).Scan(&bucket.Tokens, &bucket.LastRefill, &bucket.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBucketNotFound
		}
		return nil, fmt.Errorf("failed to get bucket: %w", err)
	}
	return bucket, nil
}

func (ps *PostgresStorage) SaveBucket(ctx context.Context, bucket *models.RateLimitBucket) error {
	_, err := ps.pool.Exec(ctx,
		`INSERT INTO rate_limit_buckets (key, tokens, last_refill, updated_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (key) DO UPDATE SET
		     tokens = EXCLUDED.tokens,
		     last_refill = EXCLUDED.last_refill,
		     updated_at = EXCLUDED.updated_at`,
		bucket.Key, bucket.Tokens, bucket.LastRefill, bucket.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save bucket: %w", err)
	}
	return nil
}

func (ps *PostgresStorage) Ping(ctx context.Context) error {
	return ps.pool.Ping(ctx)
}

func (ps *PostgresStorage) Close() error {
	ps.pool.Close()
	return nil
}
