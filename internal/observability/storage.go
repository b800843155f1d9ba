package observability

import (
	"context"
	"errors"
	"time"

	"humanizer/internal/models"
	"humanizer/internal/storage"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentedStore wraps a storage.BucketStore with tracing spans, an
// operation latency histogram and an error counter.
type InstrumentedStore struct {
	inner    storage.BucketStore
	backend  string
	tracer   trace.Tracer
	duration metric.Float64Histogram
	errors   metric.Int64Counter
}

// NewInstrumentedStore wraps inner. backend labels every measurement.
func NewInstrumentedStore(inner storage.BucketStore, backend string) (*InstrumentedStore, error) {
	tracer := otel.Tracer("humanizer/storage")
	meter := otel.Meter("humanizer/storage")

	duration, err := meter.Float64Histogram(
		"storage.operation.duration",
		metric.WithDescription("Duration of bucket store operations in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	errCounter, err := meter.Int64Counter(
		"storage.operation.errors",
		metric.WithDescription("Number of bucket store operation errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	return &InstrumentedStore{
		inner:    inner,
		backend:  backend,
		tracer:   tracer,
		duration: duration,
		errors:   errCounter,
	}, nil
}

func (s *InstrumentedStore) startSpan(ctx context.Context, operation string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "storage."+operation,
		trace.WithAttributes(
			attribute.String("storage.operation", operation),
			attribute.String("storage.backend", s.backend),
		),
	)
}

func (s *InstrumentedStore) record(ctx context.Context, span trace.Span, operation string, start time.Time, err error) {
	attrs := metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("backend", s.backend),
	)
	s.duration.Record(ctx, time.Since(start).Seconds(), attrs)

	// A missing bucket is the normal first-request path, not a failure.
	if err != nil && !errors.Is(err, storage.ErrBucketNotFound) {
		s.errors.Add(ctx, 1, attrs)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}

	span.End()
}

func (s *InstrumentedStore) GetBucket(ctx context.Context, key string) (*models.RateLimitBucket, error) {
	ctx, span := s.startSpan(ctx, "GetBucket")
	start := time.Now()
	bucket, err := s.inner.GetBucket(ctx, key)
	s.record(ctx, span, "GetBucket", start, err)
	return bucket, err
}

func (s *InstrumentedStore) SaveBucket(ctx context.Context, bucket *models.RateLimitBucket) error {
	ctx, span := s.startSpan(ctx, "SaveBucket")
	span.SetAttributes(attribute.Int("bucket.tokens", bucket.Tokens))
	start := time.Now()
	err := s.inner.SaveBucket(ctx, bucket)
	s.record(ctx, span, "SaveBucket", start, err)
	return err
}

func (s *InstrumentedStore) Ping(ctx context.Context) error {
	ctx, span := s.startSpan(ctx, "Ping")
	start := time.Now()
	err := s.inner.Ping(ctx)
	s.record(ctx, span, "Ping", start, err)
	return err
}

func (s *InstrumentedStore) Close() error {
	return s.inner.Close()
}
