package identity

import (
	"context"
	"net/http"
	"time"
)

// DefaultTimeout bounds fingerprint computation.
const DefaultTimeout = 2 * time.Second

// Resolver picks the device key for an incoming request.
type Resolver struct {
	timeout  time.Duration
	clientIP func(*http.Request) string
}

// NewResolver creates a resolver. clientIP extracts the caller's address,
// honouring whatever proxy headers the deployment trusts.
func NewResolver(timeout time.Duration, clientIP func(*http.Request) string) *Resolver {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Resolver{timeout: timeout, clientIP: clientIP}
}

// RateLimitKey returns supplied when it is a well-formed device key, else a
// fingerprint of the request's IP and browser headers.
func (r *Resolver) RateLimitKey(ctx context.Context, req *http.Request, supplied string) string {
	if ValidKey(supplied) {
		return supplied
	}

	return withTimeout(ctx, r.timeout, func() (string, bool) {
		return hashParts(
			r.clientIP(req),
			req.Header.Get("User-Agent"),
			req.Header.Get("Accept-Language"),
			req.Header.Get("Accept-Encoding"),
		)
	})
}
