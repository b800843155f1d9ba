package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"humanizer/internal/humanize"
	"humanizer/internal/identity"
	"humanizer/internal/models"
	"humanizer/internal/ratelimit"
)

const defaultMaxBodyBytes = 64 << 10

// Handlers contains HTTP handlers for the humanizer API
type Handlers struct {
	service      humanize.ServiceInterface
	resolver     *identity.Resolver
	maxBodyBytes int64
}

// HandlerOption configures optional Handlers dependencies.
type HandlerOption func(*Handlers)

// WithResolver sets the device key resolver.
func WithResolver(resolver *identity.Resolver) HandlerOption {
	return func(h *Handlers) {
		h.resolver = resolver
	}
}

// WithMaxBodyBytes caps request bodies.
func WithMaxBodyBytes(n int64) HandlerOption {
	return func(h *Handlers) {
		if n > 0 {
			h.maxBodyBytes = n
		}
	}
}

// NewHandlers creates a new handlers instance
func NewHandlers(service humanize.ServiceInterface, opts ...HandlerOption) *Handlers {
	h := &Handlers{
		service:      service,
		resolver:     identity.NewResolver(identity.DefaultTimeout, ratelimit.ClientIP),
		maxBodyBytes: defaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Humanize rewrites text.
// POST /humanize
func (h *Handlers) Humanize(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)

	var req models.HumanizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeErrorResponse(w, http.StatusRequestEntityTooLarge, models.ErrorCodeBadRequest, "Request body too large")
			return
		}
		h.writeErrorResponse(w, http.StatusBadRequest, models.ErrorCodeBadRequest, "Invalid JSON body")
		return
	}

	caller := humanize.Caller{
		RemoteIP: ratelimit.ClientIP(r),
		Key:      h.resolver.RateLimitKey(r.Context(), r, req.RateLimitKey),
	}

	resp, decision, err := h.service.Humanize(r.Context(), &req, caller)
	if decision != nil {
		setRateLimitHeaders(w, decision)
	}
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, resp)
}

// Preflight answers CORS preflight requests when the CORS middleware is off.
// OPTIONS /humanize
func (h *Handlers) Preflight(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// HealthCheck handles health check requests
// GET /health
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := h.service.Health(r.Context())

	status := http.StatusOK
	if response.Status == models.StatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	h.writeJSONResponse(w, status, response)
}

func setRateLimitHeaders(w http.ResponseWriter, decision *ratelimit.Decision) {
	remaining := 0
	if decision.Allowed {
		remaining = decision.TokensRemaining
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
}

// writeServiceError maps err onto the error body. Causes are logged for 5xx
// responses and never written to the client.
func (h *Handlers) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var serviceErr *humanize.ServiceError
	if !errors.As(err, &serviceErr) {
		serviceErr = humanize.NewInternalError("An unexpected error occurred.", err)
	}

	if serviceErr.StatusCode >= http.StatusInternalServerError {
		slog.Error("Request failed",
			"path", r.URL.Path,
			"code", serviceErr.Code,
			"error", err,
		)
	}

	resp := models.NewErrorResponse(serviceErr.Message, serviceErr.Code)
	if serviceErr.RetryAfter > 0 {
		resp.RetryAfter = serviceErr.RetryAfter
		w.Header().Set("Retry-After", strconv.Itoa(serviceErr.RetryAfter))
	}
	h.writeJSONResponse(w, serviceErr.StatusCode, resp)
}

// writeJSONResponse writes a JSON response
func (h *Handlers) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	writeJSON(w, statusCode, data)
}

// writeErrorResponse writes an error response
func (h *Handlers) writeErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) {
	writeJSON(w, statusCode, models.NewErrorResponse(message, errorCode))
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Headers are already written.
		slog.Error("Error encoding JSON response", "error", err)
	}
}
