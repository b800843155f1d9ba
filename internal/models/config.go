// Package models - Service configuration and operational settings.
// This file defines the configuration structures for every service component.
//
// Configuration is hierarchical (server, storage, security, engine, logging,
// metrics, observability), ships with defaults that run without any external
// dependency, and is validated as a whole before the service starts.
package models

import (
	"errors"
	"fmt"
	"time"
)

// Storage type constants
const (
	StorageTypeMemory   = "memory"
	StorageTypeJSON     = "json"
	StorageTypeSQLite   = "sqlite"
	StorageTypePostgres = "postgres"
	StorageTypeRedis    = "redis"
)

// Rate limit defaults. A bucket holds at most DefaultMaxTokens and regains one
// token every DefaultRefillInterval.
const (
	DefaultMaxTokens      = 5
	DefaultRefillInterval = 30 * time.Second
)

// DefaultCaptchaMinScore is the lowest reCAPTCHA v3 score accepted.
const DefaultCaptchaMinScore = 0.5

// Config is the root configuration structure containing all service settings.
//
// Configuration Structure:
// - Server: HTTP server, CORS and request limits
// - Storage: where rate limit buckets are persisted
// - Security: CAPTCHA gate, token bucket and per-IP flood guard
// - Engine: remote language model credentials (empty key selects the local rewriter)
// - Logging, Metrics, Observability: ambient operational settings
type Config struct {
	Server        ServerConfig        `yaml:"server" json:"server"`
	Storage       StorageConfig       `yaml:"storage" json:"storage"`
	Security      SecurityConfig      `yaml:"security" json:"security"`
	Engine        EngineConfig        `yaml:"engine" json:"engine"`
	Logging       LoggingConfig       `yaml:"logging" json:"logging"`
	Metrics       MetricsConfig       `yaml:"metrics" json:"metrics"`
	Observability ObservabilityConfig `yaml:"observability" json:"observability"`
}

type ServerConfig struct {
	Port         int           `yaml:"port" json:"port"`
	Host         string        `yaml:"host" json:"host"`
	ReadTimeout  time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" json:"idle_timeout"`
	TLSEnabled   bool          `yaml:"tls_enabled" json:"tls_enabled"`
	TLSCertFile  string        `yaml:"tls_cert_file" json:"tls_cert_file"`
	TLSKeyFile   string        `yaml:"tls_key_file" json:"tls_key_file"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" json:"max_body_bytes"`
	CORS         CORSConfig    `yaml:"cors" json:"cors"`
}

type CORSConfig struct {
	Enabled        bool     `yaml:"enabled" json:"enabled"`
	AllowedOrigins []string `yaml:"allowed_origins" json:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods" json:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers" json:"allowed_headers"`
	MaxAge         int      `yaml:"max_age" json:"max_age"`
}

type StorageConfig struct {
	Type      string         `yaml:"type" json:"type"`
	Path      string         `yaml:"path" json:"path"`
	Database  DatabaseConfig `yaml:"database" json:"database"`
	Redis     RedisConfig    `yaml:"redis" json:"redis"`
	Retention time.Duration  `yaml:"retention" json:"retention"` // idle buckets older than this may be dropped
}

type DatabaseConfig struct {
	DSN             string        `yaml:"dsn" json:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns" json:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" json:"conn_max_lifetime"`
}

type RedisConfig struct {
	Addr      string `yaml:"addr" json:"addr"`
	Password  string `yaml:"password" json:"password"`
	DB        int    `yaml:"db" json:"db"`
	PoolSize  int    `yaml:"pool_size" json:"pool_size"`
	KeyPrefix string `yaml:"key_prefix" json:"key_prefix"`
}

type SecurityConfig struct {
	Captcha    CaptchaConfig    `yaml:"captcha" json:"captcha"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit" json:"rate_limit"`
	FloodGuard FloodGuardConfig `yaml:"flood_guard" json:"flood_guard"`
}

// CaptchaConfig configures reCAPTCHA verification. An empty Secret disables
// the check entirely.
type CaptchaConfig struct {
	Secret    string        `yaml:"secret" json:"-"`
	VerifyURL string        `yaml:"verify_url" json:"verify_url"`
	MinScore  float64       `yaml:"min_score" json:"min_score"`
	Timeout   time.Duration `yaml:"timeout" json:"timeout"`
}

type RateLimitConfig struct {
	MaxTokens      int           `yaml:"max_tokens" json:"max_tokens"`
	RefillInterval time.Duration `yaml:"refill_interval" json:"refill_interval"`
}

// FloodGuardConfig configures the coarse per-IP limiter that sits in front of
// every route.
type FloodGuardConfig struct {
	Enabled           bool          `yaml:"enabled" json:"enabled"`
	RequestsPerMinute int           `yaml:"requests_per_minute" json:"requests_per_minute"`
	BurstSize         int           `yaml:"burst_size" json:"burst_size"`
	CleanupInterval   time.Duration `yaml:"cleanup_interval" json:"cleanup_interval"`
}

// EngineConfig configures the remote text-generation collaborator. When APIKey
// is empty the service falls back to the local rule-based rewriter.
type EngineConfig struct {
	APIKey  string        `yaml:"api_key" json:"-"`
	BaseURL string        `yaml:"base_url" json:"base_url"`
	Model   string        `yaml:"model" json:"model"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

type LoggingConfig struct {
	Level    string `yaml:"level" json:"level"`
	Format   string `yaml:"format" json:"format"`
	Output   string `yaml:"output" json:"output"`
	FilePath string `yaml:"file_path" json:"file_path"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
	Port    int    `yaml:"port" json:"port"`
}

type ObservabilityConfig struct {
	ServiceName string        `yaml:"service_name" json:"service_name"`
	Tracing     TracingConfig `yaml:"tracing" json:"tracing"`
}

type TracingConfig struct {
	Enabled      bool    `yaml:"enabled" json:"enabled"`
	Exporter     string  `yaml:"exporter" json:"exporter"`
	SampleRate   float64 `yaml:"sample_rate" json:"sample_rate"`
	OTLPEndpoint string  `yaml:"otlp_endpoint" json:"otlp_endpoint"`
}

// NewDefaultConfig creates a configuration that runs with no external
// services: in-memory buckets, no CAPTCHA, and the local rewriter.
//
// Default Values:
// - Port 8080, 30-second read/write timeouts
// - 5 tokens per device, one token regained every 30 seconds
// - Flood guard at 120 requests per minute per IP
// - Permissive CORS so a browser front-end on any origin can call the API
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8080,
			Host:         "0.0.0.0",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  120 * time.Second,
			MaxBodyBytes: 64 << 10,
			CORS: CORSConfig{
				Enabled:        true,
				AllowedOrigins: []string{"*"},
				AllowedMethods: []string{"POST", "GET", "OPTIONS"},
				AllowedHeaders: []string{"authorization", "x-client-info", "apikey", "content-type"},
				MaxAge:         86400,
			},
		},
		Storage: StorageConfig{
			Type:      StorageTypeMemory,
			Path:      "./data/buckets.json",
			Retention: 24 * time.Hour,
			Database: DatabaseConfig{
				MaxOpenConns:    10,
				MaxIdleConns:    5,
				ConnMaxLifetime: 5 * time.Minute,
			},
			Redis: RedisConfig{
				PoolSize:  10,
				KeyPrefix: "humanizer:bucket",
			},
		},
		Security: SecurityConfig{
			Captcha: CaptchaConfig{
				VerifyURL: "https://www.google.com/recaptcha/api/siteverify",
				MinScore:  DefaultCaptchaMinScore,
				Timeout:   5 * time.Second,
			},
			RateLimit: RateLimitConfig{
				MaxTokens:      DefaultMaxTokens,
				RefillInterval: DefaultRefillInterval,
			},
			FloodGuard: FloodGuardConfig{
				Enabled:           true,
				RequestsPerMinute: 120,
				BurstSize:         20,
				CleanupInterval:   5 * time.Minute,
			},
		},
		Engine: EngineConfig{
			BaseURL: "https://ai.gateway.lovable.dev/v1",
			Model:   "google/gemini-2.5-flash",
			Timeout: 45 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
			Port:    9090,
		},
		Observability: ObservabilityConfig{
			ServiceName: "humanizer",
			Tracing: TracingConfig{
				Enabled:    false,
				Exporter:   "stdout",
				SampleRate: 1.0,
			},
		},
	}
}

func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("invalid server config: %w", err)
	}

	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("invalid storage config: %w", err)
	}

	if err := c.Security.Validate(); err != nil {
		return fmt.Errorf("invalid security config: %w", err)
	}

	if err := c.Engine.Validate(); err != nil {
		return fmt.Errorf("invalid engine config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("invalid logging config: %w", err)
	}

	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("invalid metrics config: %w", err)
	}

	if err := c.Observability.Validate(); err != nil {
		return fmt.Errorf("invalid observability config: %w", err)
	}

	return nil
}

func (sc *ServerConfig) Validate() error {
	if sc.Port <= 0 || sc.Port > 65535 {
		return errors.New("port must be between 1 and 65535")
	}

	if sc.Host == "" {
		return errors.New("host cannot be empty")
	}

	if sc.ReadTimeout < 0 || sc.WriteTimeout < 0 || sc.IdleTimeout < 0 {
		return errors.New("timeouts cannot be negative")
	}

	if sc.MaxBodyBytes <= 0 {
		return errors.New("max body bytes must be positive")
	}

	if sc.TLSEnabled {
		if sc.TLSCertFile == "" {
			return errors.New("TLS cert file is required when TLS is enabled")
		}
		if sc.TLSKeyFile == "" {
			return errors.New("TLS key file is required when TLS is enabled")
		}
	}

	return nil
}

func (stc *StorageConfig) Validate() error {
	switch stc.Type {
	case StorageTypeMemory:
		return nil
	case StorageTypeJSON:
		if stc.Path == "" {
			return errors.New("path is required for JSON storage")
		}
	case StorageTypeSQLite, StorageTypePostgres:
		if stc.Database.DSN == "" {
			return fmt.Errorf("database DSN is required for %s storage", stc.Type)
		}
	case StorageTypeRedis:
		if stc.Redis.Addr == "" {
			return errors.New("redis address is required for redis storage")
		}
	default:
		return fmt.Errorf("invalid storage type: %s", stc.Type)
	}

	if stc.Retention < 0 {
		return errors.New("retention cannot be negative")
	}

	return nil
}

func (sec *SecurityConfig) Validate() error {
	if sec.RateLimit.MaxTokens < 1 {
		return errors.New("max tokens must be at least 1")
	}
	if sec.RateLimit.RefillInterval < time.Second {
		return errors.New("refill interval must be at least 1s")
	}

	if sec.Captcha.Secret != "" {
		if sec.Captcha.VerifyURL == "" {
			return errors.New("captcha verify URL is required when a secret is set")
		}
		if sec.Captcha.MinScore < 0 || sec.Captcha.MinScore > 1 {
			return errors.New("captcha min score must be between 0 and 1")
		}
		if sec.Captcha.Timeout <= 0 {
			return errors.New("captcha timeout must be positive")
		}
	}

	if sec.FloodGuard.Enabled {
		if sec.FloodGuard.RequestsPerMinute <= 0 {
			return errors.New("flood guard requests per minute must be positive")
		}
		if sec.FloodGuard.BurstSize <= 0 {
			return errors.New("flood guard burst size must be positive")
		}
		if sec.FloodGuard.CleanupInterval <= 0 {
			return errors.New("flood guard cleanup interval must be positive")
		}
	}

	return nil
}

func (ec *EngineConfig) Validate() error {
	if ec.APIKey == "" {
		// Local rewriter needs nothing else.
		return nil
	}
	if ec.BaseURL == "" {
		return errors.New("engine base URL is required when an API key is set")
	}
	if ec.Model == "" {
		return errors.New("engine model is required when an API key is set")
	}
	if ec.Timeout <= 0 {
		return errors.New("engine timeout must be positive")
	}
	return nil
}

func (lc *LoggingConfig) Validate() error {
	if !oneOf(lc.Level, "debug", "info", "warn", "error") {
		return fmt.Errorf("invalid log level: %s", lc.Level)
	}

	if !oneOf(lc.Format, "json", "text") {
		return fmt.Errorf("invalid log format: %s", lc.Format)
	}

	if !oneOf(lc.Output, "stdout", "stderr", "file") {
		return fmt.Errorf("invalid log output: %s", lc.Output)
	}

	if lc.Output == "file" && lc.FilePath == "" {
		return errors.New("file path is required when output is file")
	}

	return nil
}

func (mc *MetricsConfig) Validate() error {
	if !mc.Enabled {
		return nil
	}

	if mc.Path == "" {
		return errors.New("metrics path cannot be empty")
	}

	if mc.Port <= 0 || mc.Port > 65535 {
		return errors.New("metrics port must be between 1 and 65535")
	}

	return nil
}

func (oc *ObservabilityConfig) Validate() error {
	if !oc.Tracing.Enabled {
		return nil
	}

	if !oneOf(oc.Tracing.Exporter, "stdout", "otlp") {
		return fmt.Errorf("invalid tracing exporter: %s", oc.Tracing.Exporter)
	}

	if oc.Tracing.SampleRate < 0 || oc.Tracing.SampleRate > 1 {
		return errors.New("tracing sample rate must be between 0 and 1")
	}

	if oc.Tracing.Exporter == "otlp" && oc.Tracing.OTLPEndpoint == "" {
		return errors.New("OTLP endpoint is required when exporter is otlp")
	}

	return nil
}

func oneOf(value string, allowed ...string) bool {
	for _, a := range allowed {
		if value == a {
			return true
		}
	}
	return false
}
