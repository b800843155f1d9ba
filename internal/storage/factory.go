package storage

import (
	"fmt"

	"humanizer/internal/models"
)

// Factory creates bucket stores from configuration.
type Factory struct{}

// NewFactory creates a new storage factory
func NewFactory() *Factory {
	return &Factory{}
}

// Create instantiates a bucket store for config.Type.
// Supported providers:
//   - memory: in-process map, lost on restart
//   - json: single JSON file
//   - sqlite: local SQLite database
//   - postgres: PostgreSQL, shared between replicas
//   - redis: Redis hashes with TTL-based retention, shared between replicas
func (f *Factory) Create(config models.StorageConfig) (BucketStore, error) {
	storageConfig := Config{
		Type:             config.Type,
		Path:             config.Path,
		ConnectionString: config.Database.DSN,
		Retention:        config.Retention,
		Database:         config.Database,
		Redis:            config.Redis,
	}

	switch config.Type {
	case models.StorageTypeMemory:
		return asStore(NewMemoryStorage(storageConfig))
	case models.StorageTypeJSON:
		return asStore(NewJSONStorage(storageConfig))
	case models.StorageTypeSQLite:
		return asStore(NewSQLiteStorage(storageConfig))
	case models.StorageTypePostgres:
		return asStore(NewPostgresStorage(storageConfig))
	case models.StorageTypeRedis:
		return asStore(NewRedisStorage(storageConfig))
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", config.Type)
	}
}

// GetSupportedProviders returns a list of all supported storage provider types
func (f *Factory) GetSupportedProviders() []string {
	return []string{
		models.StorageTypeMemory,
		models.StorageTypeJSON,
		models.StorageTypeSQLite,
		models.StorageTypePostgres,
		models.StorageTypeRedis,
	}
}

// asStore keeps a failed constructor's nil pointer from becoming a non-nil
// interface value.
func asStore[T BucketStore](store T, err error) (BucketStore, error) {
	if err != nil {
		return nil, err
	}
	return store, nil
}
