package api

import (
	"net/http"

	"humanizer/internal/models"
	"humanizer/internal/ratelimit"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
)

// RouteOption configures optional route behavior.
type RouteOption func(*mux.Router)

// WithOTelMiddleware adds OpenTelemetry HTTP instrumentation middleware.
func WithOTelMiddleware(serviceName string) RouteOption {
	return func(r *mux.Router) {
		r.Use(otelmux.Middleware(serviceName,
			otelmux.WithFilter(func(r *http.Request) bool {
				return !isHealthPath(r.URL.Path) &&
					r.URL.Path != "/api/v1/openapi.yaml" &&
					r.URL.Path != "/api/v1/docs"
			}),
		))
	}
}

// WithFloodGuard rejects callers that exceed limiter's per-IP rate. Health
// checks are exempt.
func WithFloodGuard(limiter ratelimit.Limiter) RouteOption {
	guard := ratelimit.FloodGuardMiddleware(limiter)
	return func(r *mux.Router) {
		r.Use(func(next http.Handler) http.Handler {
			guarded := guard(next)
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				if isHealthPath(req.URL.Path) {
					next.ServeHTTP(w, req)
					return
				}
				guarded.ServeHTTP(w, req)
			})
		})
	}
}

// SetupRoutes configures the HTTP routes for the API. Middleware order:
// CORS, logging, recovery, then any RouteOption middleware.
func SetupRoutes(handlers *Handlers, config *models.Config, opts ...RouteOption) *mux.Router {
	router := mux.NewRouter()

	if config.Server.CORS.Enabled {
		router.Use(corsMiddleware(config.Server.CORS))
	}
	router.Use(loggingMiddleware)
	router.Use(recoveryMiddleware)

	for _, opt := range opts {
		opt(router)
	}

	for _, path := range []string{"/humanize", "/api/v1/humanize"} {
		router.HandleFunc(path, handlers.Humanize).Methods(http.MethodPost)
		router.HandleFunc(path, handlers.Preflight).Methods(http.MethodOptions)
	}

	router.HandleFunc("/health", handlers.HealthCheck).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/health", handlers.HealthCheck).Methods(http.MethodGet)

	router.HandleFunc("/api/v1/openapi.yaml", handlers.ServeOpenAPISpec).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/docs", handlers.ServeSwaggerUI).Methods(http.MethodGet)

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, models.NewErrorResponse("Not found", models.ErrorCodeNotFound))
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowedHandler)

	return router
}

// methodNotAllowedHandler handles requests with invalid HTTP methods
func methodNotAllowedHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed,
		models.NewErrorResponse("Method not allowed", models.ErrorCodeMethodNotAllowed))
}

func isHealthPath(path string) bool {
	return path == "/health" || path == "/api/v1/health"
}
