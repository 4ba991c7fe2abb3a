package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sydlexius/phonyfy/internal/logging"
)

// DefaultPath is used when PH_CONFIG_PATH is unset.
const DefaultPath = "/data/config.yaml"

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Logging  logging.Config `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port     int    `yaml:"port"`
	BasePath string `yaml:"base_path"`
	// ImportRate is the number of catalog imports allowed per minute per client.
	ImportRate int `yaml:"import_rate"`
}

// DatabaseConfig holds SQLite settings.
type DatabaseConfig struct {
	Path string `yaml:"path"`
	// BackupDir defaults to a "backups" directory next to the database file.
	BackupDir       string `yaml:"backup_dir"`
	BackupRetention int    `yaml:"backup_retention"`
	// MaintenanceIntervalHours schedules optimize and backup. Zero disables it.
	MaintenanceIntervalHours int `yaml:"maintenance_interval_hours"`
}

// CatalogConfig holds catalog ingestion settings. Both are optional.
type CatalogConfig struct {
	SeedPath string `yaml:"seed_path"`
	WatchDir string `yaml:"watch_dir"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:       8080,
			BasePath:   "/",
			ImportRate: 10,
		},
		Database: DatabaseConfig{
			Path:                     "/data/phonyfy.db",
			BackupRetention:          7,
			MaintenanceIntervalHours: 24,
		},
		Logging: logging.DefaultConfig(),
	}
}

// PathFromEnv returns the config file path from PH_CONFIG_PATH or DefaultPath.
func PathFromEnv() string {
	if v := os.Getenv("PH_CONFIG_PATH"); v != "" {
		return v
	}
	return DefaultPath
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

	if err := cfg.loadFromEnv(); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // path is operator-supplied
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) loadFromEnv() error {
	if v := os.Getenv("PH_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PH_PORT: %w", err)
		}
		c.Server.Port = port
	}
	if v := os.Getenv("PH_BASE_PATH"); v != "" {
		c.Server.BasePath = v
	}
	if v := os.Getenv("PH_IMPORT_RATE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PH_IMPORT_RATE: %w", err)
		}
		c.Server.ImportRate = n
	}
	if v := os.Getenv("PH_DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("PH_BACKUP_DIR"); v != "" {
		c.Database.BackupDir = v
	}
	if v := os.Getenv("PH_BACKUP_RETENTION"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PH_BACKUP_RETENTION: %w", err)
		}
		c.Database.BackupRetention = n
	}
	if v := os.Getenv("PH_MAINTENANCE_INTERVAL_HOURS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PH_MAINTENANCE_INTERVAL_HOURS: %w", err)
		}
		c.Database.MaintenanceIntervalHours = n
	}
	if v := os.Getenv("PH_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("PH_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("PH_LOG_FILE"); v != "" {
		c.Logging.FilePath = v
	}
	if v := os.Getenv("PH_CATALOG_SEED"); v != "" {
		c.Catalog.SeedPath = v
	}
	if v := os.Getenv("PH_CATALOG_WATCH_DIR"); v != "" {
		c.Catalog.WatchDir = v
	}
	return nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Server.ImportRate < 1 {
		return fmt.Errorf("invalid import rate: %d", c.Server.ImportRate)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}
	if c.Database.BackupRetention < 1 {
		return fmt.Errorf("invalid backup retention: %d", c.Database.BackupRetention)
	}
	if c.Database.MaintenanceIntervalHours < 0 {
		return fmt.Errorf("invalid maintenance interval: %d", c.Database.MaintenanceIntervalHours)
	}
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Server.BasePath = strings.TrimRight(c.Server.BasePath, "/")
	if c.Server.BasePath != "" && !strings.HasPrefix(c.Server.BasePath, "/") {
		c.Server.BasePath = "/" + c.Server.BasePath
	}
	return nil
}
