package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"humanizer/internal/models"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

// SQLiteStorage stores buckets in a local SQLite database.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens the database and applies pending migrations.
func NewSQLiteStorage(config Config) (*SQLiteStorage, error) {
	if config.ConnectionString == "" {
		return nil, fmt.Errorf("connection string is required for SQLite storage")
	}

	db, err := sql.Open("sqlite", config.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows a single writer; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := migrate(ctx, db, goose.DialectSQLite3, "sqlite"); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStorage{db: db}, nil
}

func (s *SQLiteStorage) GetBucket(ctx context.Context, key string) (*models.RateLimitBucket, error) {
	var (
		tokens                int
		lastRefill, updatedAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT tokens, last_refill, updated_at FROM rate_limit_buckets WHERE key = ?`, key,
	).Scan(&tokens, &lastRefill, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBucketNotFound
		}
		return nil, fmt.Errorf("failed to get bucket: %w", err)
	}

	return &models.RateLimitBucket{
		Key:        key,
		Tokens:     tokens,
		LastRefill: fromUnixNano(lastRefill),
		UpdatedAt:  fromUnixNano(updatedAt),
	}, nil
}

func (s *SQLiteStorage) SaveBucket(ctx context.Context, bucket *models.RateLimitBucket) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO rate_limit_buckets (key, tokens, last_refill, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET
		     tokens = excluded.tokens,
		     last_refill = excluded.last_refill,
		     updated_at = excluded.updated_at`,
		bucket.Key, bucket.Tokens, toUnixNano(bucket.LastRefill), toUnixNano(bucket.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save bucket: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
