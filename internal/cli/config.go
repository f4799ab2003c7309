package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the CLI configuration file
type Config struct {
	DefaultProfile string             `yaml:"default_profile"`
	Profiles       map[string]Profile `yaml:"profiles"`
}

// Profile names a configuration source the CLI loads features from
type Profile struct {
	Source   string `yaml:"source"` // file or postgres
	Path     string `yaml:"path,omitempty"`
	DSN      string `yaml:"dsn,omitempty"`
	Table    string `yaml:"table,omitempty"`
	Registry string `yaml:"registry,omitempty"`
}

// GetConfigPath returns the path to the config file
func GetConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".decider", "config.yaml"), nil
}

// LoadConfig loads the configuration from path. A missing file yields an empty config.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{Profiles: make(map[string]Profile)}, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if cfg.Profiles == nil {
		cfg.Profiles = make(map[string]Profile)
	}
	return &cfg, nil
}

// SaveConfig writes cfg to path, creating the directory if needed
func SaveConfig(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ResolveProfile merges the sources of CLI settings field by field.
// Priority: command flags > environment variables > named profile > defaults.
// An empty name selects cfg.DefaultProfile; naming a profile that does not
// exist is an error.
func ResolveProfile(cfg *Config, name string, flags Profile) (Profile, error) {
	var base Profile
	if name == "" && cfg != nil {
		name = cfg.DefaultProfile
	}
	if name != "" {
		p, ok := cfg.Profiles[name]
		if !ok {
			return Profile{}, fmt.Errorf("profile %q not found in config file", name)
		}
		base = p
	}

	env := Profile{
		Source:   os.Getenv("DECIDER_SOURCE"),
		Path:     os.Getenv("DECIDER_CONFIG_PATH"),
		DSN:      os.Getenv("DB_DSN"),
		Table:    os.Getenv("DECIDER_TABLE"),
		Registry: os.Getenv("DECIDER_REGISTRY"),
	}

	out := Profile{
		Source:   first(flags.Source, env.Source, base.Source, "file"),
		Path:     first(flags.Path, env.Path, base.Path),
		DSN:      first(flags.DSN, env.DSN, base.DSN),
		Table:    first(flags.Table, env.Table, base.Table),
		Registry: first(flags.Registry, env.Registry, base.Registry),
	}
	if out.Source == "file" && out.Path == "" {
		return Profile{}, fmt.Errorf("a feature file is required: pass --config or set DECIDER_CONFIG_PATH")
	}
	return out, nil
}

func first(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
