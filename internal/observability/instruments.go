package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Instruments records humanize pipeline metrics through the global meter
// provider. When metrics are disabled the global provider is a no-op.
type Instruments struct {
	requests       metric.Int64Counter
	decisions      metric.Int64Counter
	engineDuration metric.Float64Histogram
}

// NewInstruments creates the pipeline instruments.
func NewInstruments() (*Instruments, error) {
	meter := otel.Meter("humanizer/humanize")

	requests, err := meter.Int64Counter(
		"humanize.requests",
		metric.WithDescription("Humanize requests by outcome"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	decisions, err := meter.Int64Counter(
		"ratelimit.decisions",
		metric.WithDescription("Token bucket admission decisions"),
		metric.WithUnit("{decision}"),
	)
	if err != nil {
		return nil, err
	}

	engineDuration, err := meter.Float64Histogram(
		"engine.duration",
		metric.WithDescription("Time spent rewriting text in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &Instruments{
		requests:       requests,
		decisions:      decisions,
		engineDuration: engineDuration,
	}, nil
}

// RecordRequest counts one finished request. outcome is "ok" or an error code.
func (i *Instruments) RecordRequest(ctx context.Context, outcome string) {
	i.requests.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordDecision counts one admission decision.
func (i *Instruments) RecordDecision(ctx context.Context, allowed bool) {
	result := "denied"
	if allowed {
		result = "admitted"
	}
	i.decisions.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

// RecordEngine records one engine call.
func (i *Instruments) RecordEngine(ctx context.Context, variant string, elapsed time.Duration, err error) {
	i.engineDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(
		attribute.String("variant", variant),
		attribute.Bool("error", err != nil),
	))
}
