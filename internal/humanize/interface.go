package humanize

import (
	"context"
	"time"

	"humanizer/internal/models"
	"humanizer/internal/ratelimit"
)

// ServiceInterface is what the HTTP layer needs from the service.
type ServiceInterface interface {
	// Humanize runs one request through the pipeline. The decision is
	// non-nil whenever the rate limiter was consulted.
	Humanize(ctx context.Context, req *models.HumanizeRequest, caller Caller) (*models.HumanizeResponse, *ratelimit.Decision, error)

	// Health reports the state of every dependency.
	Health(ctx context.Context) *models.HealthCheckResponse
}

// Caller identifies who sent a request.
type Caller struct {
	RemoteIP string
	Key      string // device key metered by the rate limiter
}

// Admitter meters requests per device key.
type Admitter interface {
	Admit(ctx context.Context, key string) (ratelimit.Decision, error)
	Limit() int
}

// Scorer produces the detectability score for rewritten text.
type Scorer interface {
	Score(text string, intensity models.Intensity, withLength bool) int
}

// Pinger reports whether a backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Metrics receives pipeline measurements.
type Metrics interface {
	RecordRequest(ctx context.Context, outcome string)
	RecordDecision(ctx context.Context, allowed bool)
	RecordEngine(ctx context.Context, variant string, elapsed time.Duration, err error)
}

type nopMetrics struct{}

func (nopMetrics) RecordRequest(context.Context, string)                      {}
func (nopMetrics) RecordDecision(context.Context, bool)                       {}
func (nopMetrics) RecordEngine(context.Context, string, time.Duration, error) {}

var _ ServiceInterface = (*Service)(nil)
