package observability

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"humanizer/internal/models"
	"humanizer/internal/storage"
	"humanizer/internal/version"

	promclient "github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestMetrics installs a meter provider exporting to a fresh registry.
func setupTestMetrics(t *testing.T) *promclient.Registry {
	t.Helper()
	reg := promclient.NewRegistry()
	provider, err := Setup(
		models.MetricsConfig{Enabled: true, Path: "/metrics", Port: 9090},
		models.ObservabilityConfig{ServiceName: "test"},
		version.Info{Version: "1.0.0"},
		WithRegistry(reg),
	)
	require.NoError(t, err)
	t.Cleanup(func() { provider.Shutdown(context.Background()) })
	return reg
}

// family returns the first gathered family whose name starts with prefix.
func family(t *testing.T, reg *promclient.Registry, prefix string) *dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if strings.HasPrefix(f.GetName(), prefix) {
			return f
		}
	}
	t.Fatalf("no metric family with prefix %q", prefix)
	return nil
}

func labelValue(m *dto.Metric, name string) string {
	for _, l := range m.GetLabel() {
		if l.GetName() == name {
			return l.GetValue()
		}
	}
	return ""
}

func TestInstruments_RecordRequest(t *testing.T) {
	reg := setupTestMetrics(t)
	inst, err := NewInstruments()
	require.NoError(t, err)

	ctx := context.Background()
	inst.RecordRequest(ctx, "ok")
	inst.RecordRequest(ctx, "ok")
	inst.RecordRequest(ctx, models.ErrorCodeRateLimited)

	counts := map[string]float64{}
	for _, m := range family(t, reg, "humanize_requests").GetMetric() {
		counts[labelValue(m, "outcome")] = m.GetCounter().GetValue()
	}
	assert.Equal(t, 2.0, counts["ok"])
	assert.Equal(t, 1.0, counts[models.ErrorCodeRateLimited])
}

func TestInstruments_RecordDecisionAndEngine(t *testing.T) {
	reg := setupTestMetrics(t)
	inst, err := NewInstruments()
	require.NoError(t, err)

	ctx := context.Background()
	inst.RecordDecision(ctx, true)
	inst.RecordDecision(ctx, false)
	inst.RecordEngine(ctx, "local", 5*time.Millisecond, nil)

	results := map[string]float64{}
	for _, m := range family(t, reg, "ratelimit_decisions").GetMetric() {
		results[labelValue(m, "result")] = m.GetCounter().GetValue()
	}
	assert.Equal(t, 1.0, results["admitted"])
	assert.Equal(t, 1.0, results["denied"])

	engine := family(t, reg, "engine_duration")
	require.NotEmpty(t, engine.GetMetric())
	assert.Equal(t, uint64(1), engine.GetMetric()[0].GetHistogram().GetSampleCount())
	assert.Equal(t, "local", labelValue(engine.GetMetric()[0], "variant"))
}

// brokenStore fails every call except lookups of missing buckets.
type brokenStore struct{ storage.BucketStore }

func (brokenStore) GetBucket(ctx context.Context, key string) (*models.RateLimitBucket, error) {
	return nil, storage.ErrBucketNotFound
}

func (brokenStore) SaveBucket(ctx context.Context, b *models.RateLimitBucket) error {
	return errors.New("disk full")
}

func TestInstrumentedStore(t *testing.T) {
	reg := setupTestMetrics(t)

	inner, err := storage.NewMemoryStorage(storage.Config{})
	require.NoError(t, err)
	store, err := NewInstrumentedStore(inner, "memory")
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.SaveBucket(ctx, &models.RateLimitBucket{Key: "device:i", Tokens: 4, LastRefill: time.Now()}))

	got, err := store.GetBucket(ctx, "device:i")
	require.NoError(t, err)
	assert.Equal(t, 4, got.Tokens)
	assert.NoError(t, store.Ping(ctx))

	ops := map[string]uint64{}
	for _, m := range family(t, reg, "storage_operation_duration").GetMetric() {
		ops[labelValue(m, "operation")] = m.GetHistogram().GetSampleCount()
		assert.Equal(t, "memory", labelValue(m, "backend"))
	}
	assert.Equal(t, uint64(1), ops["SaveBucket"])
	assert.Equal(t, uint64(1), ops["GetBucket"])
	assert.Equal(t, uint64(1), ops["Ping"])
}

func TestInstrumentedStore_CountsErrorsButNotMisses(t *testing.T) {
	reg := setupTestMetrics(t)

	store, err := NewInstrumentedStore(brokenStore{}, "broken")
	require.NoError(t, err)

	ctx := context.Background()
	_, err = store.GetBucket(ctx, "device:missing")
	assert.ErrorIs(t, err, storage.ErrBucketNotFound)

	err = store.SaveBucket(ctx, &models.RateLimitBucket{Key: "device:x"})
	assert.EqualError(t, err, "disk full")

	errs := family(t, reg, "storage_operation_errors")
	require.Len(t, errs.GetMetric(), 1)
	assert.Equal(t, "SaveBucket", labelValue(errs.GetMetric()[0], "operation"))
	assert.Equal(t, 1.0, errs.GetMetric()[0].GetCounter().GetValue())
}
