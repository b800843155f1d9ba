package history

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"humanizer/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) Now() time.Time          { return c.t }
func (c *clock) Advance(d time.Duration) { c.t = c.t.Add(d) }

// countingBackend records writes on top of an in-memory map.
type countingBackend struct {
	data   map[string][]byte
	writes int
	getErr error
}

func newCountingBackend() *countingBackend {
	return &countingBackend{data: map[string][]byte{}}
}

func (b *countingBackend) Get(key string) ([]byte, error) {
	if b.getErr != nil {
		return nil, b.getErr
	}
	return b.data[key], nil
}

func (b *countingBackend) Set(key string, data []byte) error {
	b.writes++
	b.data[key] = append([]byte(nil), data...)
	return nil
}

func newTestStore(t *testing.T) (*Store, *clock) {
	t.Helper()
	backend, err := NewFileBackend(t.TempDir())
	require.NoError(t, err)
	c := &clock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	return NewStore(backend, WithClock(c.Now)), c
}

func item(text string) models.HistoryItem {
	score := 20
	return models.HistoryItem{
		OriginalText:  text,
		HumanizedText: text + "!",
		Tone:          models.ToneCasual,
		Intensity:     50,
		AIScore:       &score,
	}
}

func TestStore_AddAndList(t *testing.T) {
	store, c := newTestStore(t)
	ctx := context.Background()

	first, err := store.Add(ctx, item("one"))
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, c.Now(), first.CreatedAt)

	c.Advance(time.Minute)
	second, err := store.Add(ctx, item("two"))
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	items, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "two", items[0].OriginalText, "newest first")
	assert.Equal(t, "one", items[1].OriginalText)
	require.NotNil(t, items[0].AIScore)
	assert.Equal(t, 20, *items[0].AIScore)
}

func TestStore_CapsAtMaxItems(t *testing.T) {
	store, c := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < models.HistoryMaxItems+3; i++ {
		_, err := store.Add(ctx, item(fmt.Sprintf("text %d", i)))
		require.NoError(t, err)
		c.Advance(time.Second)
	}

	items, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, models.HistoryMaxItems)
	assert.Equal(t, "text 12", items[0].OriginalText)
	assert.Equal(t, "text 3", items[len(items)-1].OriginalText)
}

func TestStore_ExpiresAfterTTL(t *testing.T) {
	store, c := newTestStore(t)
	ctx := context.Background()

	_, err := store.Add(ctx, item("old"))
	require.NoError(t, err)
	c.Advance(30 * time.Minute)
	_, err = store.Add(ctx, item("new"))
	require.NoError(t, err)

	c.Advance(30*time.Minute - time.Nanosecond)
	items, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 2, "just under an hour is still fresh")

	c.Advance(time.Nanosecond)
	items, err = store.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "new", items[0].OriginalText)
}

func TestStore_ListRewritesOnlyWhenPurged(t *testing.T) {
	backend := newCountingBackend()
	c := &clock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	store := NewStore(backend, WithClock(c.Now))
	ctx := context.Background()

	_, err := store.Add(ctx, item("a"))
	require.NoError(t, err)
	require.Equal(t, 1, backend.writes)

	_, err = store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, backend.writes, "nothing expired, nothing written")

	c.Advance(2 * time.Hour)
	items, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, 2, backend.writes)
}

func TestStore_Delete(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	keep, err := store.Add(ctx, item("keep"))
	require.NoError(t, err)
	drop, err := store.Add(ctx, item("drop"))
	require.NoError(t, err)

	removed, err := store.Delete(ctx, drop.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = store.Delete(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, removed)

	items, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, keep.ID, items[0].ID)
}

func TestStore_Clear(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := store.Add(ctx, item("x"))
		require.NoError(t, err)
	}
	require.NoError(t, store.Clear(ctx))

	items, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestStore_CorruptDataReadsEmpty(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, models.HistoryStorageKey+".json"), []byte("{not json"), 0600))

	backend, err := NewFileBackend(dir)
	require.NoError(t, err)
	store := NewStore(backend)

	items, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items)

	_, err = store.Add(context.Background(), item("fresh"))
	require.NoError(t, err)
	items, err = store.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestStore_BackendError(t *testing.T) {
	backend := newCountingBackend()
	backend.getErr = errors.New("disk gone")
	store := NewStore(backend)

	_, err := store.List(context.Background())
	assert.ErrorContains(t, err, "disk gone")

	_, err = store.Add(context.Background(), item("x"))
	assert.Error(t, err)
	assert.Zero(t, backend.writes)
}

func TestFileBackend(t *testing.T) {
	backend, err := NewFileBackend(filepath.Join(t.TempDir(), "nested", "dir"))
	require.NoError(t, err)

	data, err := backend.Get("missing")
	require.NoError(t, err)
	assert.Nil(t, data)

	require.NoError(t, backend.Set("k", []byte(`[1]`)))
	data, err = backend.Get("k")
	require.NoError(t, err)
	assert.Equal(t, `[1]`, string(data))

	assert.Error(t, backend.Set("../escape", []byte("x")))
	_, err = backend.Get("a/b")
	assert.Error(t, err)

	_, err = NewFileBackend("")
	assert.EqualError(t, err, "directory is required for file history backend")
}
