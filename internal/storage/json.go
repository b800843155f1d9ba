package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"humanizer/internal/models"
)

// JSONStorage persists buckets to a single JSON file. The whole document is
// held in memory and rewritten on every save.
type JSONStorage struct {
	filePath  string
	retention time.Duration
	mu        sync.RWMutex
	data      *JSONData
}

// JSONData represents the structure of data stored in JSON format
type JSONData struct {
	Buckets     map[string]*models.RateLimitBucket `json:"buckets"`
	LastUpdated time.Time                          `json:"last_updated"`
}

// NewJSONStorage creates a new JSON-based storage instance
func NewJSONStorage(config Config) (*JSONStorage, error) {
	if config.Path == "" {
		return nil, fmt.Errorf("path is required for JSON storage")
	}

	storage := &JSONStorage{
		filePath:  config.Path,
		retention: config.Retention,
	}

	if err := storage.ensureFileExists(); err != nil {
		return nil, fmt.Errorf("failed to ensure file exists: %w", err)
	}

	if err := storage.loadData(); err != nil {
		return nil, fmt.Errorf("failed to load initial data: %w", err)
	}

	return storage, nil
}

// ensureFileExists creates the JSON file with empty data if it doesn't exist
func (j *JSONStorage) ensureFileExists() error {
	if _, err := os.Stat(j.filePath); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(j.filePath), 0700); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}

		return j.saveData(&JSONData{Buckets: map[string]*models.RateLimitBucket{}})
	}
	return nil
}

func (j *JSONStorage) loadData() error {
	fileData, err := os.ReadFile(j.filePath)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	var data JSONData
	if err := json.Unmarshal(fileData, &data); err != nil {
		return fmt.Errorf("failed to unmarshal JSON: %w", err)
	}
	if data.Buckets == nil {
		data.Buckets = map[string]*models.RateLimitBucket{}
	}

	j.mu.Lock()
	j.data = &data
	j.mu.Unlock()
	return nil
}

// saveData writes data to a temp file and renames it over the original so a
// crash mid-write never leaves a truncated document.
func (j *JSONStorage) saveData(data *JSONData) error {
	data.LastUpdated = time.Now()

	fileData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	tmp := j.filePath + ".tmp"
	if err := os.WriteFile(tmp, fileData, 0600); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tmp, j.filePath); err != nil {
		return fmt.Errorf("failed to replace file: %w", err)
	}
	return nil
}

func (j *JSONStorage) GetBucket(ctx context.Context, key string) (*models.RateLimitBucket, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	bucket, ok := j.data.Buckets[key]
	if !ok {
		return nil, ErrBucketNotFound
	}
	return bucket.Clone(), nil
}

// SaveBucket stores bucket and prunes entries idle past the retention before
// flushing the file.
func (j *JSONStorage) SaveBucket(ctx context.Context, bucket *models.RateLimitBucket) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.data.Buckets[bucket.Key] = bucket.Clone()

	if j.retention > 0 {
		now := time.Now()
		for key, b := range j.data.Buckets {
			if now.Sub(b.UpdatedAt) > j.retention {
				delete(j.data.Buckets, key)
			}
		}
	}

	return j.saveData(j.data)
}

func (j *JSONStorage) Ping(ctx context.Context) error {
	if _, err := os.Stat(j.filePath); err != nil {
		return fmt.Errorf("bucket file unavailable: %w", err)
	}
	return nil
}

func (j *JSONStorage) Close() error {
	return nil
}
