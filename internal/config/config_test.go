package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.InDelta(t, 2.0, cfg.Crawl.RequestsPerSecond, 0.001)
	assert.Equal(t, 4, cfg.Crawl.MaxConcurrent)
	assert.Equal(t, 10*time.Second, cfg.Crawl.Timeout())
	assert.Equal(t, 3, cfg.Crawl.MaxRetries)
	assert.Equal(t, 256, cfg.Crawl.GateCacheSize)
	assert.True(t, cfg.Crawl.HTTPFallback)
	assert.True(t, cfg.SMTP.Enabled)
	assert.Equal(t, "verify@verification.service", cfg.SMTP.MailFrom)
	assert.Equal(t, 25, cfg.SMTP.Port)
	assert.Equal(t, 5, cfg.SMTP.MaxConcurrent)
	assert.Equal(t, 2, cfg.SMTP.DNSRetries)
	assert.Equal(t, 90, cfg.Pipeline.TimeoutSecs)
	assert.True(t, cfg.Pipeline.AllowFallback)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
  database_url: patterns.db
log:
  level: debug
  format: console
server:
  port: 9090
smtp:
  enabled: false
  max_concurrent: 2
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "patterns.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.False(t, cfg.SMTP.Enabled)
	assert.Equal(t, 2, cfg.SMTP.MaxConcurrent)
	// Defaults still apply for unset values
	assert.Equal(t, 10, cfg.Crawl.TimeoutSecs)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("EMAILFINDER_LOG_LEVEL", "warn")
	t.Setenv("EMAILFINDER_STORE_DRIVER", "postgres")
	t.Setenv("EMAILFINDER_STORE_DATABASE_URL", "postgres://localhost/emails")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/emails", cfg.Store.DatabaseURL)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)

	t.Setenv("EMAILFINDER_SERVER_PORT", "3000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	chdirTemp(t)

	t.Setenv("EMAILFINDER_STORE_DRIVER", "mongo")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown store driver")
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Store: StoreConfig{Driver: "memory"},
			Crawl: CrawlConfig{RequestsPerSecond: 2, MaxConcurrent: 4},
			SMTP:  SMTPConfig{MaxConcurrent: 5},
		}
	}

	cfg := valid()
	assert.NoError(t, cfg.Validate())

	cfg = valid()
	cfg.Store.Driver = "sqlite"
	assert.Error(t, cfg.Validate(), "sqlite needs a database url")

	cfg = valid()
	cfg.Crawl.RequestsPerSecond = 0
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Crawl.MaxConcurrent = 0
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.SMTP.MaxConcurrent = -1
	assert.Error(t, cfg.Validate())
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse log level")
}
