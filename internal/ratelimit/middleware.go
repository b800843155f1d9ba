package ratelimit

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"

	"humanizer/internal/models"
)

// FloodGuardMiddleware rejects requests from client IPs that exceed the
// limiter's rate. CORS preflights are never counted.
func FloodGuardMiddleware(limiter Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			key := "ip:" + ClientIP(r)
			allowed, info := limiter.Allow(key)
			if allowed {
				next.ServeHTTP(w, r)
				return
			}

			retryAfter := int(math.Ceil(info.RetryAfter.Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			WriteRateLimited(w, retryAfter)

			slog.Warn("Flood guard rejected request",
				"key", key,
				"limit", info.Limit,
				"retry_after", retryAfter,
			)
		})
	}
}

// WriteRateLimited writes a 429 JSON error telling the caller how long to wait.
func WriteRateLimited(w http.ResponseWriter, retryAfterSeconds int) {
	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)

	resp := models.NewErrorResponse(RetryMessage(retryAfterSeconds), models.ErrorCodeRateLimited)
	resp.RetryAfter = retryAfterSeconds
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("Failed to encode rate limit response", "error", err)
	}
}

// RetryMessage is the user-facing text for a rate limit denial.
func RetryMessage(retryAfterSeconds int) string {
	unit := "seconds"
	if retryAfterSeconds == 1 {
		unit = "second"
	}
	return fmt.Sprintf("Rate limit exceeded. Please wait %d %s before trying again.", retryAfterSeconds, unit)
}

// ClientIP extracts the client IP from the request, checking proxy headers.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		if ip := strings.TrimSpace(ips[0]); ip != "" {
			return ip
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
