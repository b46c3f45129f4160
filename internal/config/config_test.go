package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "bia.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.InDelta(t, 20.0, cfg.Server.RateLimitRPS, 0.001)
	assert.Equal(t, 40, cfg.Server.RateLimitBurst)
	assert.Equal(t, "fixture", cfg.Sources.Mode)
	assert.Equal(t, "testdata/fixtures", cfg.Sources.FixtureDir)
	assert.Equal(t, 10, cfg.Sources.Registry.TimeoutSecs)
	assert.Equal(t, 10, cfg.Sources.Monitoring.TimeoutSecs)
	assert.Equal(t, 30, cfg.Predictive.TimeoutSecs)
	assert.Equal(t, 90, cfg.Predictive.HorizonDays)
	assert.Equal(t, []string{"best_case", "likely_case", "worst_case"}, cfg.Predictive.Scenarios)
	assert.Equal(t, 3, cfg.Resilience.MaxAttempts)
	assert.Equal(t, 5, cfg.Resilience.FailureThreshold)
	assert.True(t, cfg.Monitoring.Enabled)
	assert.Equal(t, 300, cfg.Monitoring.CheckIntervalSecs)
	assert.Equal(t, 168, cfg.Monitoring.LookbackWindowHours)
	assert.InDelta(t, 0.25, cfg.Monitoring.LowConfidenceThreshold, 0.001)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/bia
log:
  level: debug
  format: console
sources:
  mode: http
  registry:
    base_url: https://cmdb.internal
    timeout_secs: 3
predictive:
  bin_path: /usr/local/bin/bia-predict
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/bia", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "http", cfg.Sources.Mode)
	assert.Equal(t, "https://cmdb.internal", cfg.Sources.Registry.BaseURL)
	assert.Equal(t, 3, cfg.Sources.Registry.TimeoutSecs)
	assert.Equal(t, "/usr/local/bin/bia-predict", cfg.Predictive.BinPath)
	// Defaults still apply for unset values
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	t.Setenv("BIA_STORE_DRIVER", "postgres")
	t.Setenv("BIA_LOG_LEVEL", "warn")
	t.Setenv("BIA_SERVER_PORT", "3000")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 3000, cfg.Server.Port)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.NotNil(t, zap.L())
	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))

	err := InitLogger(LogConfig{Level: "loud", Format: "json"})
	assert.Error(t, err)
}

func validDefaults() *Config {
	cfg := &Config{}
	cfg.Store.Driver = "sqlite"
	cfg.Store.DatabaseURL = "bia.db"
	cfg.Server.Port = 8080
	cfg.Server.RateLimitRPS = 10
	cfg.Sources.Mode = "fixture"
	cfg.Sources.FixtureDir = "testdata/fixtures"
	return cfg
}

func TestValidate_ServeValid(t *testing.T) {
	assert.NoError(t, validDefaults().Validate("serve"))
}

func TestValidate_InvalidPortAndRate(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0
	cfg.Server.RateLimitRPS = 0

	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
	assert.Contains(t, err.Error(), "server.rate_limit_rps must be > 0")

	// store mode does not care about server settings
	assert.NoError(t, cfg.Validate("store"))
}

func TestValidate_HTTPModeRequiresBaseURLs(t *testing.T) {
	cfg := validDefaults()
	cfg.Sources.Mode = "http"
	cfg.Sources.Registry.BaseURL = "https://cmdb.internal"

	err := cfg.Validate("generate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sources.personnel.base_url is required")
	assert.NotContains(t, err.Error(), "sources.registry.base_url")
}

func TestValidate_BadDriverAndMode(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "mysql"
	cfg.Sources.Mode = "magic"

	err := cfg.Validate("generate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver must be sqlite or postgres")
	assert.Contains(t, err.Error(), "sources.mode must be fixture or http")
}

func TestValidate_UnknownMode(t *testing.T) {
	err := validDefaults().Validate("unknown")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}
