// Package config loads the formflow server configuration.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Schemas   SchemasConfig   `yaml:"schemas"`
	Database  DatabaseConfig  `yaml:"database"`
	Logging   LoggingConfig   `yaml:"logging"`
	Theme     ThemeConfig     `yaml:"theme"`
	Templates TemplatesConfig `yaml:"templates"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	SessionTTL      time.Duration `yaml:"session_ttl"`
	MaxUploadMB     int64         `yaml:"max_upload_mb"`
}

// SchemasConfig points at the directory of form schemas.
type SchemasConfig struct {
	Dir    string `yaml:"dir"`
	Watch  bool   `yaml:"watch"`
	Strict bool   `yaml:"strict"` // reject duplicate field names
}

// DatabaseConfig configures the submissions database.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "console"
}

// ThemeConfig selects an optional go-theme manifest for the HTML renderer.
type ThemeConfig struct {
	Manifest string `yaml:"manifest"`
	Name     string `yaml:"name"`
	Variant  string `yaml:"variant"`
}

// TemplatesConfig selects the template engine of the HTML renderer and an
// optional directory, laid out as templates/*.tmpl, that replaces the
// embedded templates.
type TemplatesConfig struct {
	Engine string `yaml:"engine"` // "pongo2" or "go-template"
	Dir    string `yaml:"dir"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{
		Schemas: SchemasConfig{Watch: true},
		Metrics: MetricsConfig{Enabled: true},
	}
	setDefaults(cfg)
	return cfg
}

// Load reads configuration from a YAML file. Environment variables are
// expanded in the file and FORMFLOW_* variables override it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration on top of the defaults.
func Parse(data []byte) (*Config, error) {
	data = []byte(os.ExpandEnv(string(data)))

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}

	applyEnvOverrides(cfg)
	setDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return cfg, nil
}

// LoadWithFallback loads path when it exists and falls back to the defaults
// with environment overrides otherwise.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	cfg := Default()
	applyEnvOverrides(cfg)
	setDefaults(cfg)
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides applies FORMFLOW_* environment variables. They always
// win over file-based configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FORMFLOW_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("FORMFLOW_SCHEMAS"); v != "" {
		cfg.Schemas.Dir = v
	}
	if v := os.Getenv("FORMFLOW_WATCH"); v != "" {
		cfg.Schemas.Watch = parseBool(v)
	}
	if v := os.Getenv("FORMFLOW_DB"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("FORMFLOW_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("FORMFLOW_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("FORMFLOW_TEMPLATE_ENGINE"); v != "" {
		cfg.Templates.Engine = v
	}
}

func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

func setDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Server.SessionTTL == 0 {
		cfg.Server.SessionTTL = 2 * time.Hour
	}
	if cfg.Server.MaxUploadMB == 0 {
		cfg.Server.MaxUploadMB = 32
	}
	if cfg.Schemas.Dir == "" {
		cfg.Schemas.Dir = "forms"
	}
	if cfg.Database.DSN == "" {
		cfg.Database.DSN = "formflow.db"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
	if cfg.Templates.Engine == "" {
		cfg.Templates.Engine = "pongo2"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}

func validate(cfg *Config) error {
	switch strings.ToLower(cfg.Logging.Level) {
	case "trace", "debug", "info", "warn", "error", "disabled":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", cfg.Logging.Level)
	}
	switch cfg.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be 'json' or 'console', got %q", cfg.Logging.Format)
	}
	if cfg.Server.MaxUploadMB < 0 {
		return fmt.Errorf("server.max_upload_mb must not be negative")
	}
	if !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with '/', got %q", cfg.Metrics.Path)
	}
	switch cfg.Templates.Engine {
	case "pongo2", "go-template":
	default:
		return fmt.Errorf("templates.engine must be 'pongo2' or 'go-template', got %q", cfg.Templates.Engine)
	}
	if cfg.Theme.Name != "" && cfg.Theme.Manifest == "" {
		return fmt.Errorf("theme.manifest is required when theme.name is set")
	}
	return nil
}
