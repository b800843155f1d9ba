package captcha

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"

	"humanizer/internal/models"
)

// Recaptcha verifies tokens against Google's siteverify endpoint.
type Recaptcha struct {
	client    *http.Client
	secret    string
	verifyURL string
	minScore  float64

	initOnce sync.Once
	ready    atomic.Bool
}

// NewRecaptcha creates a verifier. Init must be called before Verify succeeds.
func NewRecaptcha(cfg models.CaptchaConfig, client *http.Client) *Recaptcha {
	return &Recaptcha{
		client:    client,
		secret:    cfg.Secret,
		verifyURL: cfg.VerifyURL,
		minScore:  cfg.MinScore,
	}
}

// Init marks the verifier usable. It is safe to call any number of times
// from any goroutine; only the first call has an effect.
func (r *Recaptcha) Init() {
	r.initOnce.Do(func() {
		r.ready.Store(true)
		slog.Info("Captcha verifier initialized", "min_score", r.minScore)
	})
}

func (r *Recaptcha) Ready() bool {
	return r.ready.Load()
}

type siteverifyResponse struct {
	Success    bool     `json:"success"`
	Score      float64  `json:"score"`
	Action     string   `json:"action"`
	Hostname   string   `json:"hostname"`
	ErrorCodes []string `json:"error-codes"`
}

// Verify fails with ErrSecurityCheckFailed for an empty, rejected or
// low-scoring token, and ErrVerifierUnavailable when the endpoint fails.
func (r *Recaptcha) Verify(ctx context.Context, token, remoteIP string) error {
	if !r.Ready() {
		return fmt.Errorf("%w: not initialized", ErrVerifierUnavailable)
	}
	if token == "" {
		return fmt.Errorf("%w: missing token", ErrSecurityCheckFailed)
	}

	form := url.Values{}
	form.Set("secret", r.secret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrVerifierUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrVerifierUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrVerifierUnavailable, resp.StatusCode)
	}

	var result siteverifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("%w: malformed response: %w", ErrVerifierUnavailable, err)
	}

	if !result.Success {
		return fmt.Errorf("%w: %s", ErrSecurityCheckFailed, strings.Join(result.ErrorCodes, ","))
	}
	if result.Score < r.minScore {
		return fmt.Errorf("%w: score %.2f below %.2f", ErrSecurityCheckFailed, result.Score, r.minScore)
	}
	return nil
}
