package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "app:\n  name: contchain\n"))
	require.NoError(t, err)

	assert.Equal(t, "https://data.nasdaq.com/api/v3", cfg.Provider.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.Provider.Timeout)
	assert.Equal(t, 4, cfg.Provider.MaxAttempts)
	assert.Equal(t, 200, cfg.Build.WindowDays)
	assert.Equal(t, 2006, cfg.Build.StartYear)
	assert.Equal(t, 2016, cfg.Build.EndYear)
	assert.Equal(t, 24*time.Hour, cfg.Scheduler.Interval)
	assert.Equal(t, 24*time.Hour, cfg.Cache.TTL)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, 20, cfg.Export.VolPeriod)
	assert.Equal(t, "contchain", cfg.Metrics.Namespace)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := writeConfig(t, `
provider:
  api_key: from-file
  max_backoff: 2m
build:
  start_year: 2010
  end_year: 2012
  products: [CL, NG]
cache:
  enabled: true
  addr: redis:6379
`)
	t.Setenv("CONTCHAIN_PROVIDER_API_KEY", "from-env")
	t.Setenv("CONTCHAIN_BUILD_WORKERS", "8")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Provider.APIKey)
	assert.Equal(t, 2*time.Minute, cfg.Provider.MaxBackoff)
	assert.Equal(t, 8, cfg.Build.Workers)
	assert.Equal(t, []string{"CL", "NG"}, cfg.Build.Products)
	assert.Equal(t, 2010, cfg.Build.StartYear)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, "redis:6379", cfg.Cache.Addr)
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"empty year range": "build:\n  start_year: 2018\n  end_year: 2017\n",
		"zero window":      "build:\n  window_days: 0\n",
		"zero workers":     "build:\n  workers: 0\n",
		"backoff order":    "provider:\n  initial_backoff: 1m\n  max_backoff: 1s\n",
		"short vol period": "export:\n  vol_period: 1\n",
		"telegram token":   "alerting:\n  telegram:\n    enabled: true\n    chat_id: \"1\"\n",
		"cache addr":       "cache:\n  enabled: true\n  addr: \"\"\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestResolveOverrides(t *testing.T) {
	cfg := &Config{Export: ExportConfig{VolPeriod: 20, MaxDataPoints: 500}}
	assert.Equal(t, 20, cfg.ResolveVolPeriod(0))
	assert.Equal(t, 60, cfg.ResolveVolPeriod(60))
	assert.Equal(t, 500, cfg.ResolveMaxPoints(-1))
	assert.Equal(t, 10, cfg.ResolveMaxPoints(10))
}
