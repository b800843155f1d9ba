package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"humanizer/internal/api"
	"humanizer/internal/captcha"
	"humanizer/internal/config"
	"humanizer/internal/engine"
	"humanizer/internal/humanize"
	"humanizer/internal/identity"
	"humanizer/internal/logger"
	"humanizer/internal/observability"
	"humanizer/internal/ratelimit"
	"humanizer/internal/score"
	"humanizer/internal/storage"
	"humanizer/internal/version"
)

var (
	configFile   = flag.String("config", "", "Path to configuration file")
	writeExample = flag.String("write-example-config", "", "Write an example configuration to this path and exit")
	showVersion  = flag.Bool("version", false, "Print version information and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.GetInfo())
		return
	}
	if *writeExample != "" {
		if err := config.SaveExample(*writeExample); err != nil {
			slog.Error("Failed to write example configuration", "error", err)
			os.Exit(1)
		}
		return
	}

	// Load configuration
	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	ver := version.GetInfo()

	// Initialize structured logging
	log, closer, err := logger.Setup(cfg.Logging, ver)
	if err != nil {
		slog.Error("Failed to initialize logger", "error", err)
		os.Exit(1)
	}
	if closer != nil {
		defer closer.Close()
	}
	slog.SetDefault(log)

	// Initialize observability (OpenTelemetry)
	otelProvider, err := observability.Setup(cfg.Metrics, cfg.Observability, ver)
	if err != nil {
		slog.Error("Failed to initialize observability", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := otelProvider.Shutdown(shutdownCtx); err != nil {
			slog.Error("Failed to shutdown observability", "error", err)
		}
	}()

	// Initialize bucket storage
	store, err := storage.NewFactory().Create(cfg.Storage)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err, "type", cfg.Storage.Type)
		os.Exit(1)
	}
	defer store.Close()

	// Wrap storage with instrumentation if metrics are enabled
	activeStore := store
	if cfg.Metrics.Enabled {
		instrumented, err := observability.NewInstrumentedStore(store, cfg.Storage.Type)
		if err != nil {
			slog.Error("Failed to create instrumented storage", "error", err)
			os.Exit(1)
		}
		activeStore = instrumented
	}

	instruments, err := observability.NewInstruments()
	if err != nil {
		slog.Error("Failed to create instruments", "error", err)
		os.Exit(1)
	}

	verifier := captcha.New(cfg.Security.Captcha)
	rewriter := engine.New(cfg.Engine)
	limiter := ratelimit.NewTokenBucket(activeStore, cfg.Security.RateLimit.MaxTokens, cfg.Security.RateLimit.RefillInterval)

	slog.Info("Humanizer configured",
		"engine", rewriter.Variant(),
		"captcha", cfg.Security.Captcha.Secret != "",
		"storage", cfg.Storage.Type,
		"max_tokens", cfg.Security.RateLimit.MaxTokens,
		"refill_interval", cfg.Security.RateLimit.RefillInterval,
	)

	service := humanize.NewService(humanize.Dependencies{
		Verifier: verifier,
		Limiter:  limiter,
		Engine:   rewriter,
		Scorer:   score.New(),
		Store:    activeStore,
		Metrics:  instruments,
	})

	handlers := api.NewHandlers(service,
		api.WithResolver(identity.NewResolver(identity.DefaultTimeout, ratelimit.ClientIP)),
		api.WithMaxBodyBytes(cfg.Server.MaxBodyBytes),
	)

	// Setup routes with middleware
	routeOpts := []api.RouteOption{}
	if cfg.Observability.Tracing.Enabled {
		routeOpts = append(routeOpts, api.WithOTelMiddleware(cfg.Observability.ServiceName))
	}
	if fg := cfg.Security.FloodGuard; fg.Enabled {
		guard := ratelimit.NewFloodGuard(fg.RequestsPerMinute, fg.BurstSize, fg.CleanupInterval)
		defer guard.Close()
		routeOpts = append(routeOpts, api.WithFloodGuard(guard))
	}

	router := api.SetupRoutes(handlers, cfg, routeOpts...)

	// Start metrics server if enabled
	var metricsServer *observability.MetricsServer
	if cfg.Metrics.Enabled {
		metricsServer = observability.NewMetricsServer(cfg.Metrics.Port, cfg.Metrics.Path, otelProvider)
		go func() {
			if err := metricsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("Metrics server failed", "error", err)
			}
		}()
	}

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Starting server", "addr", server.Addr, "tls", cfg.Server.TLSEnabled)

		var err error
		if cfg.Server.TLSEnabled {
			err = server.ListenAndServeTLS(cfg.Server.TLSCertFile, cfg.Server.TLSKeyFile)
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Wait for interrupt signal or a listener failure
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	exitCode := 0
	select {
	case sig := <-quit:
		slog.Info("Shutting down server", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			slog.Error("Server failed to start", "error", err)
			exitCode = 1
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if metricsServer != nil {
		if err := metricsServer.Shutdown(ctx); err != nil {
			slog.Error("Metrics server forced to shutdown", "error", err)
		}
	}

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("Server shutdown complete")
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}
