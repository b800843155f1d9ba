// Package models - API response types and error codes.
//
// Every error body carries a human-readable message in "error" plus a
// machine-readable code, so browser callers that only look at "error" keep
// working.
package models

import (
	"time"
)

// HumanizeResponse is the 200 body of POST /humanize.
type HumanizeResponse struct {
	HumanizedText string `json:"humanizedText"`
	AIScore       int    `json:"aiScore"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error      string    `json:"error"`                // Human-readable message
	Code       string    `json:"code,omitempty"`       // Machine-readable error code
	RetryAfter int       `json:"retryAfter,omitempty"` // Seconds to wait, rate limit only
	Timestamp  time.Time `json:"timestamp"`
}

type HealthCheckResponse struct {
	Status     string                     `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Version    string                     `json:"version,omitempty"`
	Components map[string]ComponentHealth `json:"components,omitempty"`
	Metrics    map[string]interface{}     `json:"metrics,omitempty"`
}

type ComponentHealth struct {
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Health Status Constants
const (
	StatusHealthy   = "healthy"   // All systems operational
	StatusUnhealthy = "unhealthy" // Major system issues
	StatusDegraded  = "degraded"  // Partial functionality
)

// Error codes, one per failure class a caller can act on.
const (
	ErrorCodeBadRequest          = "BAD_REQUEST"           // 400: malformed body
	ErrorCodeValidation          = "VALIDATION_ERROR"      // 400: input rules violated
	ErrorCodeSecurityCheckFailed = "SECURITY_CHECK_FAILED" // 403: CAPTCHA rejected
	ErrorCodeRateLimited         = "RATE_LIMITED"          // 429: wait and retry
	ErrorCodeQuotaExhausted      = "QUOTA_EXHAUSTED"       // 402: operator must add credits
	ErrorCodeUpstream            = "UPSTREAM_ERROR"        // 500: remote model failed, retry later
	ErrorCodeInternalError       = "INTERNAL_ERROR"        // 500: unexpected failure
	ErrorCodeNotFound            = "NOT_FOUND"             // 404
	ErrorCodeMethodNotAllowed    = "METHOD_NOT_ALLOWED"    // 405
)

func NewErrorResponse(message string, code string) *ErrorResponse {
	return &ErrorResponse{
		Error:     message,
		Code:      code,
		Timestamp: time.Now(),
	}
}

func NewHealthCheckResponse(status string) *HealthCheckResponse {
	return &HealthCheckResponse{
		Status:     status,
		Timestamp:  time.Now(),
		Components: make(map[string]ComponentHealth),
		Metrics:    make(map[string]interface{}),
	}
}

// AddComponent records a component's health and downgrades the overall status
// when the component is not healthy.
func (h *HealthCheckResponse) AddComponent(name, status, message string) {
	h.Components[name] = ComponentHealth{
		Status:    status,
		Message:   message,
		Timestamp: time.Now(),
	}
	if status != StatusHealthy && h.Status == StatusHealthy {
		h.Status = StatusDegraded
	}
}

func (h *HealthCheckResponse) AddMetric(name string, value interface{}) {
	h.Metrics[name] = value
}
