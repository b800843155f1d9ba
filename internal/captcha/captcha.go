// Package captcha verifies reCAPTCHA v3 tokens before a request may consume
// rate limit tokens. New chooses real verification or a pass-through once,
// at startup.
package captcha

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"humanizer/internal/models"
)

var (
	// ErrSecurityCheckFailed means the token was missing, invalid or scored
	// below the threshold.
	ErrSecurityCheckFailed = errors.New("security check failed")

	// ErrVerifierUnavailable means the verification endpoint could not be
	// reached or answered with garbage.
	ErrVerifierUnavailable = errors.New("captcha verifier unavailable")
)

// Verifier checks a client-supplied token.
type Verifier interface {
	Verify(ctx context.Context, token, remoteIP string) error

	// Ready reports whether the verifier has been initialized.
	Ready() bool
}

// New returns a Recaptcha verifier when a secret is configured, else Skip.
func New(cfg models.CaptchaConfig) Verifier {
	if cfg.Secret == "" {
		slog.Info("No captcha secret configured, skipping verification")
		return Skip{}
	}

	v := NewRecaptcha(cfg, &http.Client{Timeout: cfg.Timeout})
	v.Init()
	return v
}

// Skip accepts every token.
type Skip struct{}

func (Skip) Verify(ctx context.Context, token, remoteIP string) error { return nil }

func (Skip) Ready() bool { return true }
