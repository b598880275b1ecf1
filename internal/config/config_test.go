package config

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetDefaultConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	if cfg.Server.Port == 0 {
		t.Error("expected Server.Port to be non-zero")
	}
	if cfg.Database.Name == "" {
		t.Error("expected Database.Name to be set")
	}
	if cfg.Storage.Backend == "" {
		t.Error("expected Storage.Backend to be set")
	}
	if cfg.Reporting.RankingPoolSize != 5 {
		t.Errorf("expected ranking pool of 5, got %d", cfg.Reporting.RankingPoolSize)
	}
	assert.Equal(t, []string{"image/", "video/"}, cfg.Upload.AllowedPrefixes)
}

func TestConfig_SecurityDefaults(t *testing.T) {
	cfg := GetDefaultConfig()

	if !cfg.Security.CORS.Enabled {
		t.Error("expected CORS to be enabled")
	}
	if !cfg.Security.RateLimiting.Enabled {
		t.Error("expected rate limiting to be enabled")
	}
}

func TestDatabaseConfig_PostgresDSN(t *testing.T) {
	d := GetDefaultConfig().Database
	dsn := d.PostgresDSN()
	assert.Contains(t, dsn, "host=localhost")
	assert.Contains(t, dsn, "dbname=materialhub")
	assert.Contains(t, dsn, "sslmode=disable")

	d.DSN = "postgres://u:p@db/x"
	assert.Equal(t, "postgres://u:p@db/x", d.PostgresDSN())
}

func TestLoad_OverridesDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.SetConfigType("yaml")
	err := viper.ReadConfig(strings.NewReader(`
server:
  port: 9090
storage:
  backend: redis
billing:
  cost_per_lead: 20.5
`))
	require.NoError(t, err)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "redis", cfg.Storage.Backend)
	assert.Equal(t, 20.5, cfg.Billing.CostPerLead)
	// 未覆盖的字段保持默认
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, int64(10000000), cfg.Billing.TokenTotal)
}

func TestLoad_EnvOverrides(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	SetupEnv(viper.GetViper())

	t.Setenv("MATERIALHUB_STORAGE_BACKEND", "memory")
	t.Setenv("MATERIALHUB_SERVER_PORT", "9999")
	t.Setenv("MATERIALHUB_SECURITY_RATE_LIMITING_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Storage.Backend)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.False(t, cfg.Security.RateLimiting.Enabled)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
}

func TestLoad_FileThenEnv(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	SetupEnv(viper.GetViper())

	viper.SetConfigType("yaml")
	require.NoError(t, viper.ReadConfig(strings.NewReader(`
server:
  port: 9090
`)))
	t.Setenv("MATERIALHUB_SERVER_PORT", "7070")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
}

func TestConfigureLogger(t *testing.T) {
	logger := logrus.New()
	err := ConfigureLogger(logger, LogConfig{Level: "debug", Format: "text", Output: "stdout"})
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())

	var buf bytes.Buffer
	logger.SetOutput(&buf)
	logger.Info("hello")
	assert.Contains(t, buf.String(), "hello")
}

func TestConfigureLogger_InvalidLevelFallsBack(t *testing.T) {
	logger := logrus.New()
	err := ConfigureLogger(logger, LogConfig{Level: "noisy", Format: "json", Output: "stdout"})
	require.NoError(t, err)
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
}

func TestConfigureLogger_FileOutput(t *testing.T) {
	logger := logrus.New()
	path := filepath.Join(t.TempDir(), "logs", "app.log")
	err := ConfigureLogger(logger, LogConfig{Level: "info", Format: "json", Output: "file", FilePath: path, MaxSize: 1})
	require.NoError(t, err)
	assert.DirExists(t, filepath.Dir(path))
}
