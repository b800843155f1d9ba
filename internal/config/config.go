// Package config loads the humanizer server configuration: defaults, then an
// optional YAML file, then HUMANIZER_* environment variables, then validation.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"humanizer/internal/models"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "HUMANIZER_"

// Load loads configuration from file and environment variables
func Load(configPath string) (*models.Config, error) {
	config := models.NewDefaultConfig()

	if configPath != "" {
		if err := loadFromFile(config, configPath); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	loadFromEnvironment(config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// inlineSecrets mirrors the secret-bearing keys of the file format.
type inlineSecrets struct {
	Security struct {
		Captcha struct {
			Secret string `yaml:"secret"`
		} `yaml:"captcha"`
	} `yaml:"security"`
	Engine struct {
		APIKey string `yaml:"api_key"`
	} `yaml:"engine"`
}

// warnInlineSecrets logs a warning for each credential written directly in
// the config file. They still take effect.
func warnInlineSecrets(data []byte) {
	var s inlineSecrets
	if err := yaml.Unmarshal(data, &s); err != nil {
		return
	}
	if s.Security.Captcha.Secret != "" {
		slog.Warn("Credential found in config file; prefer the environment variable.",
			"config_key", "security.captcha.secret", "env", EnvPrefix+"CAPTCHA_SECRET")
	}
	if s.Engine.APIKey != "" {
		slog.Warn("Credential found in config file; prefer the environment variable.",
			"config_key", "engine.api_key", "env", EnvPrefix+"ENGINE_API_KEY")
	}
}

// loadFromFile loads configuration from a YAML file
func loadFromFile(config *models.Config, filePath string) error {
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return fmt.Errorf("config file not found: %s", filePath)
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	warnInlineSecrets(data)
	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse YAML config: %w", err)
	}
	return nil
}

func env(name string) string {
	return os.Getenv(EnvPrefix + name)
}

func setString(dst *string, name string) {
	if v := env(name); v != "" {
		*dst = v
	}
}

func setInt(dst *int, name string) {
	if v := env(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		} else {
			slog.Warn("Ignoring malformed integer environment variable", "env", EnvPrefix+name, "value", v)
		}
	}
}

func setInt64(dst *int64, name string) {
	if v := env(name); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		} else {
			slog.Warn("Ignoring malformed integer environment variable", "env", EnvPrefix+name, "value", v)
		}
	}
}

func setFloat(dst *float64, name string) {
	if v := env(name); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		} else {
			slog.Warn("Ignoring malformed number environment variable", "env", EnvPrefix+name, "value", v)
		}
	}
}

func setDuration(dst *time.Duration, name string) {
	if v := env(name); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		} else {
			slog.Warn("Ignoring malformed duration environment variable", "env", EnvPrefix+name, "value", v)
		}
	}
}

func setBool(dst *bool, name string) {
	if v := env(name); v != "" {
		*dst = strings.ToLower(v) == "true"
	}
}

func setList(dst *[]string, name string) {
	if v := env(name); v != "" {
		var items []string
		for _, item := range strings.Split(v, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		*dst = items
	}
}

// loadFromEnvironment loads configuration from environment variables
func loadFromEnvironment(config *models.Config) {
	// Server
	setInt(&config.Server.Port, "PORT")
	setString(&config.Server.Host, "HOST")
	setDuration(&config.Server.ReadTimeout, "READ_TIMEOUT")
	setDuration(&config.Server.WriteTimeout, "WRITE_TIMEOUT")
	setDuration(&config.Server.IdleTimeout, "IDLE_TIMEOUT")
	setBool(&config.Server.TLSEnabled, "TLS_ENABLED")
	setString(&config.Server.TLSCertFile, "TLS_CERT_FILE")
	setString(&config.Server.TLSKeyFile, "TLS_KEY_FILE")
	setInt64(&config.Server.MaxBodyBytes, "MAX_BODY_BYTES")
	setList(&config.Server.CORS.AllowedOrigins, "CORS_ALLOWED_ORIGINS")

	// Storage
	setString(&config.Storage.Type, "STORAGE_TYPE")
	setString(&config.Storage.Path, "STORAGE_PATH")
	setDuration(&config.Storage.Retention, "STORAGE_RETENTION")
	setString(&config.Storage.Database.DSN, "DATABASE_DSN")
	setInt(&config.Storage.Database.MaxOpenConns, "DATABASE_MAX_OPEN_CONNS")
	setInt(&config.Storage.Database.MaxIdleConns, "DATABASE_MAX_IDLE_CONNS")
	setString(&config.Storage.Redis.Addr, "REDIS_ADDR")
	setString(&config.Storage.Redis.Password, "REDIS_PASSWORD")
	setInt(&config.Storage.Redis.DB, "REDIS_DB")
	setInt(&config.Storage.Redis.PoolSize, "REDIS_POOL_SIZE")
	setString(&config.Storage.Redis.KeyPrefix, "REDIS_KEY_PREFIX")

	// Security
	setString(&config.Security.Captcha.Secret, "CAPTCHA_SECRET")
	setString(&config.Security.Captcha.VerifyURL, "CAPTCHA_VERIFY_URL")
	setFloat(&config.Security.Captcha.MinScore, "CAPTCHA_MIN_SCORE")
	setDuration(&config.Security.Captcha.Timeout, "CAPTCHA_TIMEOUT")
	setInt(&config.Security.RateLimit.MaxTokens, "RATE_LIMIT_MAX_TOKENS")
	setDuration(&config.Security.RateLimit.RefillInterval, "RATE_LIMIT_REFILL_INTERVAL")
	setBool(&config.Security.FloodGuard.Enabled, "FLOOD_GUARD_ENABLED")
	setInt(&config.Security.FloodGuard.RequestsPerMinute, "FLOOD_GUARD_REQUESTS_PER_MINUTE")
	setInt(&config.Security.FloodGuard.BurstSize, "FLOOD_GUARD_BURST_SIZE")

	// Engine
	setString(&config.Engine.APIKey, "ENGINE_API_KEY")
	setString(&config.Engine.BaseURL, "ENGINE_BASE_URL")
	setString(&config.Engine.Model, "ENGINE_MODEL")
	setDuration(&config.Engine.Timeout, "ENGINE_TIMEOUT")

	// Logging
	setString(&config.Logging.Level, "LOG_LEVEL")
	setString(&config.Logging.Format, "LOG_FORMAT")
	setString(&config.Logging.Output, "LOG_OUTPUT")
	setString(&config.Logging.FilePath, "LOG_FILE_PATH")

	// Metrics
	setBool(&config.Metrics.Enabled, "METRICS_ENABLED")
	setString(&config.Metrics.Path, "METRICS_PATH")
	setInt(&config.Metrics.Port, "METRICS_PORT")

	// Observability
	setString(&config.Observability.ServiceName, "SERVICE_NAME")
	setBool(&config.Observability.Tracing.Enabled, "TRACING_ENABLED")
	setString(&config.Observability.Tracing.Exporter, "TRACING_EXPORTER")
	setFloat(&config.Observability.Tracing.SampleRate, "TRACING_SAMPLE_RATE")
	setString(&config.Observability.Tracing.OTLPEndpoint, "OTLP_ENDPOINT")
}

// SaveExample writes an example configuration to filePath.
// Credentials are left blank; they belong in the environment.
func SaveExample(filePath string) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	config := models.NewDefaultConfig()
	config.Storage.Type = models.StorageTypeSQLite
	config.Storage.Database.DSN = "./data/buckets.db"
	config.Server.TLSCertFile = "/path/to/cert.pem"
	config.Server.TLSKeyFile = "/path/to/key.pem"

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
