// Package engine rewrites text so it reads as human-written. Two strategies
// exist: Remote delegates to an OpenAI-compatible chat-completions endpoint,
// Local applies rule-based substitutions and needs no credentials. New picks
// one at startup.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"humanizer/internal/models"
)

// Variant names reported by Engine.Variant.
const (
	VariantRemote = "remote"
	VariantLocal  = "local"
)

var (
	// ErrUpstreamRateLimited means the remote model rejected the call with 429.
	ErrUpstreamRateLimited = errors.New("upstream rate limited")

	// ErrUpstreamQuotaExhausted means the remote account ran out of credits (402).
	ErrUpstreamQuotaExhausted = errors.New("upstream quota exhausted")

	// ErrUpstream covers every other remote failure, including empty output.
	ErrUpstream = errors.New("upstream error")
)

// Engine rewrites validated input text.
type Engine interface {
	Humanize(ctx context.Context, req models.ValidatedRequest) (string, error)
	Variant() string
}

// New returns a Remote engine when an API key is configured, otherwise Local.
func New(cfg models.EngineConfig) Engine {
	if cfg.APIKey == "" {
		slog.Info("No engine API key configured, using local rewriter")
		return NewLocal()
	}

	slog.Info("Using remote rewriter", "base_url", cfg.BaseURL, "model", cfg.Model)
	return NewRemote(cfg, &http.Client{Timeout: cfg.Timeout})
}
