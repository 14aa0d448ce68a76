package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medication-net-benefit/internal/domain"
)

// inTempDir runs the test from an empty directory so no stray config.yaml or
// .env is picked up.
func inTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestNewManagerDefaults(t *testing.T) {
	inTempDir(t)

	m, err := NewManager("")
	require.NoError(t, err)
	require.NoError(t, m.Validate())

	cfg := m.GetConfig()
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, 8, cfg.Evaluation.MaxConcurrency)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, 15*time.Minute, cfg.Cache.MemoryTTL)
	assert.Equal(t, "sqlite", cfg.Feedback.Driver)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 10.0, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, "medication-net-benefit", cfg.MCP.ServerName)
	assert.Same(t, &cfg.Server, m.GetServerConfig())
	assert.True(t, m.IsDevelopment())
	assert.False(t, m.IsProduction())
	assert.Empty(t, m.ConfigFileUsed())
}

func TestNewManagerFileAndEnv(t *testing.T) {
	dir := inTempDir(t)
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9000
evaluation:
  max_concurrency: 2
feedback:
  driver: none
logging:
  level: debug
  format: text
`), 0o644))

	t.Setenv("NETBENEFIT_SERVER_PORT", "9100")
	t.Setenv("NETBENEFIT_ENVIRONMENT", "production")

	m, err := NewManager("")
	require.NoError(t, err)

	cfg := m.GetConfig()
	assert.Equal(t, 9100, cfg.Server.Port, "environment overrides the file")
	assert.Equal(t, 2, cfg.Evaluation.MaxConcurrency)
	assert.Equal(t, "none", cfg.Feedback.Driver)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, m.IsProduction())
	assert.Equal(t, path, m.ConfigFileUsed())
}

func TestNewManagerDotEnv(t *testing.T) {
	dir := inTempDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("NETBENEFIT_CACHE_ENABLED=false\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("NETBENEFIT_CACHE_ENABLED") })

	m, err := NewManager("")
	require.NoError(t, err)
	assert.False(t, m.GetConfig().Cache.Enabled)
}

func TestNewManagerExplicitFileMissing(t *testing.T) {
	inTempDir(t)
	_, err := NewManager("does-not-exist.yaml")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *domain.Config {
		return &domain.Config{
			Server:    domain.ServerConfig{Port: 8080, Mode: "release"},
			Cache:     domain.CacheConfig{Enabled: true, MemoryMaxItems: 10},
			Feedback:  domain.FeedbackConfig{Driver: "sqlite"},
			Logging:   domain.LoggingConfig{Level: "info", Format: "json"},
			RateLimit: domain.RateLimitConfig{Enabled: true, RequestsPerSecond: 5},
		}
	}
	require.NoError(t, Validate(valid()))

	tests := []struct {
		name    string
		mutate  func(*domain.Config)
		wantErr string
	}{
		{"port", func(c *domain.Config) { c.Server.Port = 0 }, "invalid server port"},
		{"mode", func(c *domain.Config) { c.Server.Mode = "turbo" }, "invalid server mode"},
		{"tls", func(c *domain.Config) { c.Server.TLSEnabled = true }, "cert_file"},
		{"concurrency", func(c *domain.Config) { c.Evaluation.MaxConcurrency = -1 }, "max_concurrency"},
		{"cache size", func(c *domain.Config) { c.Cache.MemoryMaxItems = 0 }, "memory_max_items"},
		{"driver", func(c *domain.Config) { c.Feedback.Driver = "mongo" }, "invalid feedback driver"},
		{"postgres url", func(c *domain.Config) { c.Feedback.Driver = "postgres" }, "postgres_url"},
		{"log level", func(c *domain.Config) { c.Logging.Level = "loud" }, "invalid log level"},
		{"log format", func(c *domain.Config) { c.Logging.Format = "xml" }, "invalid log format"},
		{"rate", func(c *domain.Config) { c.RateLimit.RequestsPerSecond = 0 }, "requests_per_second"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := Validate(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
