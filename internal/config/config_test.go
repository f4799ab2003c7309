package config

import (
	"errors"
	"testing"
)

var configEnv = []string{
	"APP_ENV", "APP_HTTP_ADDR", "METRICS_ADDR", "LOG_LEVEL", "LOG_FORMAT",
	"DECIDER_REGISTRY", "DECIDER_SOURCE", "DECIDER_CONFIG_PATH", "DECIDER_WATCH",
	"DB_DSN", "DECIDER_TABLE", "RATE_LIMIT_PER_IP",
}

// clearEnv blanks every variable Load reads; t.Setenv restores them afterwards.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configEnv {
		t.Setenv(key, "")
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.AppEnv != "dev" {
		t.Errorf("Expected AppEnv='dev', got '%s'", cfg.AppEnv)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("Expected HTTPAddr=':8080', got '%s'", cfg.HTTPAddr)
	}
	if cfg.MetricsAddr != ":9090" {
		t.Errorf("Expected MetricsAddr=':9090', got '%s'", cfg.MetricsAddr)
	}
	if cfg.Registry != "default" {
		t.Errorf("Expected Registry='default', got '%s'", cfg.Registry)
	}
	if cfg.SourceType != "file" || cfg.ConfigPath != "features.yaml" {
		t.Errorf("Expected file source on features.yaml, got %s %s", cfg.SourceType, cfg.ConfigPath)
	}
	if !cfg.Watch {
		t.Error("Expected Watch=true by default")
	}
	if cfg.Table != "decider_features" {
		t.Errorf("Expected Table='decider_features', got '%s'", cfg.Table)
	}
	if cfg.RateLimitPerIP != 1000 {
		t.Errorf("Expected RateLimitPerIP=1000, got %d", cfg.RateLimitPerIP)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_HTTP_ADDR", ":9999")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "console")
	t.Setenv("DECIDER_REGISTRY", "extended")
	t.Setenv("DECIDER_SOURCE", "Postgres")
	t.Setenv("DECIDER_WATCH", "false")
	t.Setenv("DB_DSN", "postgres://localhost/decider")
	t.Setenv("RATE_LIMIT_PER_IP", "50")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.HTTPAddr != ":9999" {
		t.Errorf("Expected HTTPAddr=':9999', got '%s'", cfg.HTTPAddr)
	}
	if cfg.LogLevel != "debug" || cfg.LogFormat != "console" {
		t.Errorf("unexpected log settings %s/%s", cfg.LogLevel, cfg.LogFormat)
	}
	if cfg.Registry != "extended" {
		t.Errorf("Expected Registry='extended', got '%s'", cfg.Registry)
	}
	if cfg.SourceType != "postgres" {
		t.Errorf("Expected SourceType='postgres', got '%s'", cfg.SourceType)
	}
	if cfg.Watch {
		t.Error("Expected Watch=false")
	}
	if cfg.RateLimitPerIP != 50 {
		t.Errorf("Expected RateLimitPerIP=50, got %d", cfg.RateLimitPerIP)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() failed: %v", err)
	}
}

func validConfig() *Config {
	return &Config{
		HTTPAddr:       ":8080",
		MetricsAddr:    ":9090",
		SourceType:     "file",
		ConfigPath:     "features.yaml",
		RateLimitPerIP: 100,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"unknown source", func(c *Config) { c.SourceType = "redis" }, "DECIDER_SOURCE"},
		{"file without path", func(c *Config) { c.ConfigPath = " " }, "DECIDER_CONFIG_PATH"},
		{"postgres without dsn", func(c *Config) { c.SourceType = "postgres" }, "DB_DSN"},
		{"empty http addr", func(c *Config) { c.HTTPAddr = "" }, "APP_HTTP_ADDR"},
		{"empty metrics addr", func(c *Config) { c.MetricsAddr = "" }, "METRICS_ADDR"},
		{"negative rate limit", func(c *Config) { c.RateLimitPerIP = -1 }, "RATE_LIMIT_PER_IP"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			var ve ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("Expected ValidationError, got %v", err)
			}
			if ve.Field != tt.field {
				t.Errorf("Expected field %s, got %s", tt.field, ve.Field)
			}
		})
	}
}

func TestValidate_Valid(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Errorf("Validate() failed: %v", err)
	}
}

func TestValidationError_Message(t *testing.T) {
	err := ValidationError{Field: "DB_DSN", Message: "missing"}
	if err.Error() != "config validation failed [DB_DSN]: missing" {
		t.Errorf("unexpected message %q", err.Error())
	}
}
