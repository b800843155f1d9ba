// Package humanize runs the request pipeline: validate, verify the CAPTCHA,
// admit through the device token bucket, rewrite, score. Every failure is
// mapped to a *ServiceError before it leaves the package.
package humanize

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"humanizer/internal/captcha"
	"humanizer/internal/engine"
	"humanizer/internal/models"
	"humanizer/internal/ratelimit"
	"humanizer/internal/version"
)

const healthTimeout = 2 * time.Second

// Dependencies are the collaborators of a Service. Store and Metrics are
// optional.
type Dependencies struct {
	Verifier captcha.Verifier
	Limiter  Admitter
	Engine   engine.Engine
	Scorer   Scorer
	Store    Pinger
	Metrics  Metrics
}

// Service implements the humanize pipeline.
type Service struct {
	verifier captcha.Verifier
	limiter  Admitter
	engine   engine.Engine
	scorer   Scorer
	store    Pinger
	metrics  Metrics
}

// NewService creates a service from deps.
func NewService(deps Dependencies) *Service {
	metrics := deps.Metrics
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Service{
		verifier: deps.Verifier,
		limiter:  deps.Limiter,
		engine:   deps.Engine,
		scorer:   deps.Scorer,
		store:    deps.Store,
		metrics:  metrics,
	}
}

// Humanize validates req before anything else so a malformed request never
// consumes a token. The token is spent before the engine runs and is not
// refunded if the engine fails.
func (s *Service) Humanize(ctx context.Context, req *models.HumanizeRequest, caller Caller) (*models.HumanizeResponse, *ratelimit.Decision, error) {
	resp, decision, err := s.humanize(ctx, req, caller)

	outcome := "ok"
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		outcome = serviceErr.Code
	}
	s.metrics.RecordRequest(ctx, outcome)

	return resp, decision, err
}

func (s *Service) humanize(ctx context.Context, req *models.HumanizeRequest, caller Caller) (*models.HumanizeResponse, *ratelimit.Decision, error) {
	validated, err := models.ValidateHumanizeInput(req)
	if err != nil {
		var validationErr *models.ValidationError
		if errors.As(err, &validationErr) {
			return nil, nil, NewValidationError(validationErr)
		}
		return nil, nil, NewBadRequestError("Invalid request", err)
	}

	if err := s.verifier.Verify(ctx, req.RecaptchaToken, caller.RemoteIP); err != nil {
		if errors.Is(err, captcha.ErrSecurityCheckFailed) {
			slog.Warn("Captcha rejected request", "key", caller.Key, "error", err)
			return nil, nil, NewSecurityCheckFailedError(err)
		}
		return nil, nil, NewUpstreamError("Security verification is temporarily unavailable. Please try again shortly.", err)
	}

	decision, err := s.limiter.Admit(ctx, caller.Key)
	if err != nil {
		return nil, nil, NewInternalError("Unable to process the request right now. Please try again later.", err)
	}
	s.metrics.RecordDecision(ctx, decision.Allowed)

	if !decision.Allowed {
		slog.Warn("Rate limit denied request",
			"key", caller.Key,
			"retry_after", decision.RetryAfterSeconds,
		)
		return nil, &decision, NewRateLimitedError(decision.RetryAfterSeconds)
	}

	start := time.Now()
	text, err := s.engine.Humanize(ctx, validated)
	s.metrics.RecordEngine(ctx, s.engine.Variant(), time.Since(start), err)
	if err != nil {
		return nil, &decision, mapEngineError(err)
	}

	score := s.scorer.Score(text, validated.Intensity, s.engine.Variant() == engine.VariantRemote)

	slog.Debug("Humanized text",
		"key", caller.Key,
		"variant", s.engine.Variant(),
		"tone", validated.Tone,
		"intensity", int(validated.Intensity),
		"tokens_remaining", decision.TokensRemaining,
	)

	return &models.HumanizeResponse{HumanizedText: text, AIScore: score}, &decision, nil
}

func mapEngineError(err error) *ServiceError {
	switch {
	case errors.Is(err, engine.ErrUpstreamRateLimited):
		return NewUpstreamRateLimitedError(err)
	case errors.Is(err, engine.ErrUpstreamQuotaExhausted):
		return NewQuotaExhaustedError(err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return NewUpstreamError("The rewriting service timed out. Please try again.", err)
	case errors.Is(err, engine.ErrUpstream):
		return NewUpstreamError("The rewriting service is unavailable. Please try again shortly.", err)
	default:
		return NewInternalError("An unexpected error occurred.", err)
	}
}

// Health checks the bucket store and reports engine and captcha state.
func (s *Service) Health(ctx context.Context) *models.HealthCheckResponse {
	health := models.NewHealthCheckResponse(models.StatusHealthy)
	health.Version = version.GetInfo().Version

	if s.store != nil {
		pingCtx, cancel := context.WithTimeout(ctx, healthTimeout)
		err := s.store.Ping(pingCtx)
		cancel()
		if err != nil {
			health.AddComponent("storage", models.StatusUnhealthy, err.Error())
		} else {
			health.AddComponent("storage", models.StatusHealthy, "")
		}
	}

	health.AddComponent("engine", models.StatusHealthy, s.engine.Variant())

	if s.verifier.Ready() {
		health.AddComponent("captcha", models.StatusHealthy, "")
	} else {
		health.AddComponent("captcha", models.StatusUnhealthy, "verifier not initialized")
	}

	health.AddMetric("engine_variant", s.engine.Variant())
	health.AddMetric("rate_limit_max_tokens", s.limiter.Limit())

	return health
}
