package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	appDir   = "goal"
	fileName = "config.yaml"
)

// Config is the on-disk configuration. Zero fields fall back to Defaults.
type Config struct {
	Backend      string        `yaml:"backend,omitempty"`
	SQLitePath   string        `yaml:"sqlite_path,omitempty"`
	PostgresURL  string        `yaml:"postgres_url,omitempty"`
	User         string        `yaml:"user,omitempty"`
	Theme        string        `yaml:"theme,omitempty"`
	LogFile      string        `yaml:"log_file,omitempty"`
	LogLevel     string        `yaml:"log_level,omitempty"`
	ErrorTimeout time.Duration `yaml:"error_timeout,omitempty"`
	AutoMigrate  *bool         `yaml:"auto_migrate,omitempty"`
	Telemetry    *bool         `yaml:"telemetry,omitempty"`
}

func Defaults(dir string) Config {
	yes := true
	return Config{
		Backend:      "sqlite",
		SQLitePath:   filepath.Join(dir, "goal.db"),
		Theme:        "dark",
		LogFile:      filepath.Join(dir, "goal.log"),
		LogLevel:     "info",
		ErrorTimeout: 5 * time.Second,
		AutoMigrate:  &yes,
		Telemetry:    &yes,
	}
}

// Dir is the per-user configuration directory.
func Dir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, appDir)
}

func Path() string {
	return filepath.Join(Dir(), fileName)
}

// Load reads path and layers it over the defaults. A missing or unreadable file
// yields the defaults; a malformed file is reported alongside the defaults so
// callers can log it and keep going.
func Load(path string) (Config, error) {
	dir := filepath.Dir(path)
	cfg := Defaults(dir)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	var file Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.merge(file)
	return cfg, nil
}

func (c *Config) merge(o Config) {
	if v := strings.TrimSpace(o.Backend); v != "" {
		c.Backend = strings.ToLower(v)
	}
	if v := strings.TrimSpace(o.SQLitePath); v != "" {
		c.SQLitePath = expandHome(v)
	}
	if v := strings.TrimSpace(o.PostgresURL); v != "" {
		c.PostgresURL = v
	}
	if v := strings.TrimSpace(o.User); v != "" {
		c.User = v
	}
	if v := strings.TrimSpace(o.Theme); v != "" {
		c.Theme = strings.ToLower(v)
	}
	if v := strings.TrimSpace(o.LogFile); v != "" {
		c.LogFile = expandHome(v)
	}
	if v := strings.TrimSpace(o.LogLevel); v != "" {
		c.LogLevel = strings.ToLower(v)
	}
	if o.ErrorTimeout > 0 {
		c.ErrorTimeout = o.ErrorTimeout
	}
	if o.AutoMigrate != nil {
		c.AutoMigrate = o.AutoMigrate
	}
	if o.Telemetry != nil {
		c.Telemetry = o.Telemetry
	}
}

// ApplyEnv overlays GOAL_* variables. The user falls back to $USER when neither
// the file nor GOAL_USER names one.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}
	if v := strings.TrimSpace(getenv("GOAL_BACKEND")); v != "" {
		c.Backend = strings.ToLower(v)
	}
	if v := strings.TrimSpace(getenv("GOAL_DATABASE_URL")); v != "" {
		c.PostgresURL = v
	}
	if v := strings.TrimSpace(getenv("GOAL_USER")); v != "" {
		c.User = v
	}
	if c.User == "" {
		c.User = strings.TrimSpace(getenv("USER"))
	}
}

func (c Config) Migrate() bool {
	return c.AutoMigrate == nil || *c.AutoMigrate
}

func (c Config) TelemetryEnabled() bool {
	return c.Telemetry == nil || *c.Telemetry
}

func (c Config) TelemetryPath() string {
	return filepath.Join(filepath.Dir(c.LogFile), "telemetry.ndjson")
}

func (c Config) Validate() error {
	switch c.Backend {
	case "sqlite", "memory":
	case "postgres":
		if c.PostgresURL == "" {
			return errors.New("backend postgres needs postgres_url or GOAL_DATABASE_URL")
		}
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	switch c.Theme {
	case "dark", "light", "auto":
	default:
		return fmt.Errorf("unknown theme %q", c.Theme)
	}
	return nil
}

// Save writes the config as yaml, creating the directory if needed.
func Save(cfg Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
