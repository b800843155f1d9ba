package humanize

import (
	"fmt"
	"net/http"

	"humanizer/internal/models"
	"humanizer/internal/ratelimit"
)

// ServiceError is the only error type Service.Humanize returns. Message is
// safe to show to the caller; Err holds the cause for logs only.
type ServiceError struct {
	Code       string
	Message    string
	StatusCode int
	RetryAfter int // seconds, rate limit errors only
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Error constructors, one per failure class

func NewBadRequestError(message string, err error) *ServiceError {
	return &ServiceError{
		Code:       models.ErrorCodeBadRequest,
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Err:        err,
	}
}

func NewValidationError(err *models.ValidationError) *ServiceError {
	return &ServiceError{
		Code:       models.ErrorCodeValidation,
		Message:    err.Message,
		StatusCode: http.StatusBadRequest,
		Err:        err,
	}
}

func NewSecurityCheckFailedError(err error) *ServiceError {
	return &ServiceError{
		Code:       models.ErrorCodeSecurityCheckFailed,
		Message:    "Security verification failed. Please refresh the page and try again.",
		StatusCode: http.StatusForbidden,
		Err:        err,
	}
}

func NewRateLimitedError(retryAfterSeconds int) *ServiceError {
	return &ServiceError{
		Code:       models.ErrorCodeRateLimited,
		Message:    ratelimit.RetryMessage(retryAfterSeconds),
		StatusCode: http.StatusTooManyRequests,
		RetryAfter: retryAfterSeconds,
	}
}

func NewUpstreamRateLimitedError(err error) *ServiceError {
	return &ServiceError{
		Code:       models.ErrorCodeRateLimited,
		Message:    "Rate limit exceeded. Please try again in a moment.",
		StatusCode: http.StatusTooManyRequests,
		Err:        err,
	}
}

func NewQuotaExhaustedError(err error) *ServiceError {
	return &ServiceError{
		Code:       models.ErrorCodeQuotaExhausted,
		Message:    "AI credits exhausted. Please add credits to continue.",
		StatusCode: http.StatusPaymentRequired,
		Err:        err,
	}
}

func NewUpstreamError(message string, err error) *ServiceError {
	return &ServiceError{
		Code:       models.ErrorCodeUpstream,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Err:        err,
	}
}

func NewInternalError(message string, err error) *ServiceError {
	return &ServiceError{
		Code:       models.ErrorCodeInternalError,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Err:        err,
	}
}
