// Package config loads service configuration. Manager reads config.yaml and
// NETBENEFIT_* environment variables through viper; EnvConfig is the
// environment-only configuration used by the stdio MCP server.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/medication-net-benefit/internal/domain"
)

// EnvConfig is a minimal configuration for standalone operation.
// It needs no config file and no external services.
type EnvConfig struct {
	DataDir     string // holds feedback.db and exports
	CatalogPath string // empty selects the bundled catalog

	CacheMaxItems int
	CacheTTL      time.Duration
	RedisURL      string // optional shared cache tier

	FeedbackEnabled bool

	LogLevel  string
	LogFormat string
}

// DefaultEnvConfig returns a configuration with sensible defaults.
func DefaultEnvConfig() *EnvConfig {
	homeDir, _ := os.UserHomeDir()

	return &EnvConfig{
		DataDir:         filepath.Join(homeDir, ".netbenefit"),
		CacheMaxItems:   1000,
		CacheTTL:        15 * time.Minute,
		FeedbackEnabled: true,
		LogLevel:        "info",
		LogFormat:       "json",
	}
}

// LoadEnvConfig loads configuration from environment variables.
// Falls back to defaults if not set.
func LoadEnvConfig() *EnvConfig {
	cfg := DefaultEnvConfig()

	if v := os.Getenv("NETBENEFIT_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	cfg.CatalogPath = os.Getenv("NETBENEFIT_CATALOG_PATH")

	if v := os.Getenv("NETBENEFIT_CACHE_MAX_ITEMS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.CacheMaxItems = n
		}
	}
	if v := os.Getenv("NETBENEFIT_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.CacheTTL = d
		}
	}
	cfg.RedisURL = os.Getenv("NETBENEFIT_REDIS_URL")

	if v := os.Getenv("NETBENEFIT_FEEDBACK"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.FeedbackEnabled = b
		}
	}

	if v := os.Getenv("NETBENEFIT_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("NETBENEFIT_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}

	return cfg
}

// FeedbackDBPath returns the path to the feedback SQLite database.
func (c *EnvConfig) FeedbackDBPath() string {
	return filepath.Join(c.DataDir, "feedback.db")
}

// ExportDir returns the directory for JSON exports.
func (c *EnvConfig) ExportDir() string {
	return filepath.Join(c.DataDir, "exports")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c *EnvConfig) EnsureDataDir() error {
	if err := os.MkdirAll(c.DataDir, 0o755); err != nil {
		return err
	}
	return os.MkdirAll(c.ExportDir(), 0o755)
}

// Config expands the environment settings into a full configuration.
func (c *EnvConfig) Config() *domain.Config {
	driver := "sqlite"
	if !c.FeedbackEnabled {
		driver = "none"
	}
	return &domain.Config{
		Catalog: domain.CatalogConfig{Path: c.CatalogPath},
		Cache: domain.CacheConfig{
			Enabled:        true,
			MemoryMaxItems: c.CacheMaxItems,
			MemoryTTL:      c.CacheTTL,
			RedisURL:       c.RedisURL,
			DefaultTTL:     24 * time.Hour,
			MaxRetries:     3,
			PoolSize:       10,
			PoolTimeout:    4 * time.Second,
		},
		Feedback: domain.FeedbackConfig{
			Driver:     driver,
			SQLitePath: c.FeedbackDBPath(),
		},
		Logging: domain.LoggingConfig{
			Level:  c.LogLevel,
			Format: c.LogFormat,
			Output: "stderr",
		},
		MCP: domain.MCPConfig{
			ServerName:    "medication-net-benefit",
			ServerVersion: "1.0.0",
		},
	}
}
