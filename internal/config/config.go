package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Match    MatchConfig    `yaml:"match"`
	Import   ImportConfig   `yaml:"import"`
	Webhooks WebhookConfig  `yaml:"webhooks"`
	Backup   BackupConfig   `yaml:"backup"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// DatabaseConfig holds SQLite settings.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// MatchConfig holds the fuzzy-matching tunables. The defaults are
// empirically chosen; they are configuration, not derived values.
type MatchConfig struct {
	Threshold    float64 `yaml:"threshold"`
	TitleWeight  float64 `yaml:"title_weight"`
	ArtistWeight float64 `yaml:"artist_weight"`
}

// ImportConfig holds the CSV import directory settings.
type ImportConfig struct {
	// Dir is watched for dropped tracker CSV exports; empty disables the
	// watcher.
	Dir string `yaml:"dir"`
	// DebounceSeconds is how long to wait after the last file event before
	// importing, so a burst of writes coalesces into one pass.
	DebounceSeconds int `yaml:"debounce_seconds"`
}

// WebhookConfig holds outbound notification settings.
type WebhookConfig struct {
	URLs []string `yaml:"urls"`
}

// BackupConfig holds database backup settings.
type BackupConfig struct {
	Enabled bool `yaml:"enabled"`
	// Path defaults to <db dir>/backups when empty.
	Path          string `yaml:"path"`
	IntervalHours int    `yaml:"interval_hours"`
	Retention     int    `yaml:"retention"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8480,
		},
		Database: DatabaseConfig{
			Path: "/data/backbeat.db",
		},
		Match: MatchConfig{
			Threshold:    0.75,
			TitleWeight:  0.6,
			ArtistWeight: 0.4,
		},
		Import: ImportConfig{
			DebounceSeconds: 2,
		},
		Backup: BackupConfig{
			IntervalHours: 24,
			Retention:     7,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads config from a YAML file (if it exists) and overrides with
// environment variables. Environment variables take precedence.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFromFile(path); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	cfg.loadFromEnv()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) loadFromEnv() {
	if v := os.Getenv("BB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("BB_DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("BB_IMPORT_DIR"); v != "" {
		c.Import.Dir = v
	}
	if v := os.Getenv("BB_MATCH_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Match.Threshold = f
		}
	}
	if v := os.Getenv("BB_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("BB_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}
	if c.Match.Threshold < 0 || c.Match.Threshold > 1 {
		return fmt.Errorf("match threshold must be in [0,1], got %g", c.Match.Threshold)
	}
	if c.Match.TitleWeight < 0 || c.Match.ArtistWeight < 0 {
		return fmt.Errorf("match weights must be non-negative")
	}
	if c.Import.DebounceSeconds <= 0 {
		c.Import.DebounceSeconds = 2
	}
	return nil
}
