// Package history keeps the caller's recent humanizations on the caller's
// side: at most models.HistoryMaxItems entries, newest first, each dropped
// once older than models.HistoryTTL.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"humanizer/internal/models"

	"github.com/google/uuid"
)

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// Store reads and writes the history list under models.HistoryStorageKey.
type Store struct {
	backend Backend
	now     func() time.Time
	mu      sync.Mutex
}

// NewStore creates a store over backend.
func NewStore(backend Backend, opts ...Option) *Store {
	s := &Store{backend: backend, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns unexpired items, newest first. Expired items are purged from
// the backend only when at least one was found.
func (s *Store) List(ctx context.Context) ([]models.HistoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clean(ctx)
}

// Add stamps item with a fresh ID and creation time, prepends it and trims
// the list to models.HistoryMaxItems. It returns the stored item.
func (s *Store) Add(ctx context.Context, item models.HistoryItem) (models.HistoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.clean(ctx)
	if err != nil {
		return models.HistoryItem{}, err
	}

	item.ID = uuid.NewString()
	item.CreatedAt = s.now().UTC()

	items = append([]models.HistoryItem{item}, items...)
	if len(items) > models.HistoryMaxItems {
		items = items[:models.HistoryMaxItems]
	}

	if err := s.write(items); err != nil {
		return models.HistoryItem{}, err
	}
	return item, nil
}

// Delete removes the item with id. It reports whether anything was removed.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.clean(ctx)
	if err != nil {
		return false, err
	}

	kept := items[:0]
	for _, item := range items {
		if item.ID != id {
			kept = append(kept, item)
		}
	}
	if len(kept) == len(items) {
		return false, nil
	}
	return true, s.write(kept)
}

// Clear removes every item.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write([]models.HistoryItem{})
}

func (s *Store) clean(ctx context.Context) ([]models.HistoryItem, error) {
	items, err := s.read(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	fresh := make([]models.HistoryItem, 0, len(items))
	for _, item := range items {
		if !item.Expired(now) {
			fresh = append(fresh, item)
		}
	}

	if len(fresh) != len(items) {
		if err := s.write(fresh); err != nil {
			return nil, err
		}
	}
	return fresh, nil
}

// read treats undecodable data as empty history.
func (s *Store) read(ctx context.Context) ([]models.HistoryItem, error) {
	raw, err := s.backend.Get(models.HistoryStorageKey)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}

	var items []models.HistoryItem
	if err := json.Unmarshal(raw, &items); err != nil {
		slog.WarnContext(ctx, "Discarding unreadable history", "error", err)
		return nil, nil
	}
	return items, nil
}

func (s *Store) write(items []models.HistoryItem) error {
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}
	return s.backend.Set(models.HistoryStorageKey, data)
}
