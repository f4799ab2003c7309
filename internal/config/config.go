// Package config provides application configuration loading from environment variables and .env files.
// It uses viper for flexible configuration management with sensible defaults.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all service configuration loaded from environment variables or .env file.
// Configuration priority: environment variables > .env file > defaults.
type Config struct {
	AppEnv         string // Application environment (dev, staging, prod)
	HTTPAddr       string // HTTP server bind address (e.g., ":8080")
	MetricsAddr    string // Metrics server bind address
	LogLevel       string // debug, info, warn, error
	LogFormat      string // json or console
	Registry       string // Decision maker registry id (default, extended)
	SourceType     string // Configuration source (file or postgres)
	ConfigPath     string // Path of the feature document for the file source
	Watch          bool   // Reload automatically when the source changes
	DatabaseDSN    string // PostgreSQL connection string
	Table          string // Table holding feature definitions
	RateLimitPerIP int    // Requests per minute per client IP
}

// Load reads configuration from environment variables and .env file (if present).
// Environment variables take precedence over .env file values.
//
// Load does not check constraints between fields; call Validate for that.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env") // Optional; silently ignored if file doesn't exist
	_ = v.ReadInConfig()
	v.AutomaticEnv()

	setConfigDefaults(v)

	return &Config{
		AppEnv:         v.GetString("APP_ENV"),
		HTTPAddr:       v.GetString("APP_HTTP_ADDR"),
		MetricsAddr:    v.GetString("METRICS_ADDR"),
		LogLevel:       v.GetString("LOG_LEVEL"),
		LogFormat:      v.GetString("LOG_FORMAT"),
		Registry:       v.GetString("DECIDER_REGISTRY"),
		SourceType:     strings.ToLower(v.GetString("DECIDER_SOURCE")),
		ConfigPath:     v.GetString("DECIDER_CONFIG_PATH"),
		Watch:          v.GetBool("DECIDER_WATCH"),
		DatabaseDSN:    v.GetString("DB_DSN"),
		Table:          v.GetString("DECIDER_TABLE"),
		RateLimitPerIP: v.GetInt("RATE_LIMIT_PER_IP"),
	}, nil
}

// setConfigDefaults sets default values for all configuration options.
// These defaults are suitable for local development.
func setConfigDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "dev")
	v.SetDefault("APP_HTTP_ADDR", ":8080")
	v.SetDefault("METRICS_ADDR", ":9090")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("DECIDER_REGISTRY", "default")
	v.SetDefault("DECIDER_SOURCE", "file")
	v.SetDefault("DECIDER_CONFIG_PATH", "features.yaml")
	v.SetDefault("DECIDER_WATCH", true)
	v.SetDefault("DB_DSN", "")
	v.SetDefault("DECIDER_TABLE", "decider_features")
	v.SetDefault("RATE_LIMIT_PER_IP", 1000)
}

// ValidationError represents a configuration validation error with details about what failed.
type ValidationError struct {
	Field   string // Name of the configuration variable
	Message string // Human-readable error message
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation failed [%s]: %s", e.Field, e.Message)
}

// Validate checks the configuration at startup so the service fails fast.
//
// Validation Rules:
//  1. SourceType must be "file" or "postgres"
//  2. The file source needs ConfigPath, the postgres source needs DatabaseDSN
//  3. HTTPAddr and MetricsAddr must be non-empty
//  4. RateLimitPerIP must not be negative (0 disables limiting)
//
// Returns the first failure as a ValidationError.
func (c *Config) Validate() error {
	switch c.SourceType {
	case "file":
		if strings.TrimSpace(c.ConfigPath) == "" {
			return ValidationError{
				Field:   "DECIDER_CONFIG_PATH",
				Message: "config path is required when DECIDER_SOURCE=file",
			}
		}
	case "postgres":
		if c.DatabaseDSN == "" {
			return ValidationError{
				Field:   "DB_DSN",
				Message: "database DSN is required when DECIDER_SOURCE=postgres",
			}
		}
	default:
		return ValidationError{
			Field:   "DECIDER_SOURCE",
			Message: fmt.Sprintf("must be 'file' or 'postgres', got '%s'", c.SourceType),
		}
	}

	if c.HTTPAddr == "" {
		return ValidationError{
			Field:   "APP_HTTP_ADDR",
			Message: "HTTP server address cannot be empty",
		}
	}

	if c.MetricsAddr == "" {
		return ValidationError{
			Field:   "METRICS_ADDR",
			Message: "metrics server address cannot be empty",
		}
	}

	if c.RateLimitPerIP < 0 {
		return ValidationError{
			Field:   "RATE_LIMIT_PER_IP",
			Message: fmt.Sprintf("must not be negative, got %d", c.RateLimitPerIP),
		}
	}

	return nil
}
