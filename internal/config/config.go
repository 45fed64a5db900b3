package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"continuous-futures/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Provider  ProviderConfig  `mapstructure:"provider"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Build     BuildConfig     `mapstructure:"build"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Alerting  AlertingConfig  `mapstructure:"alerting"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Export    ExportConfig    `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// ProviderConfig covers the market data API and the resilience wrapped around it.
type ProviderConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	APIKey            string        `mapstructure:"api_key"`
	Timeout           time.Duration `mapstructure:"timeout"`
	UserAgent         string        `mapstructure:"user_agent"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	MaxAttempts       int           `mapstructure:"max_attempts"`
	InitialBackoff    time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff        time.Duration `mapstructure:"max_backoff"`
	BreakerFailures   int           `mapstructure:"breaker_failures"`
	BreakerTimeout    time.Duration `mapstructure:"breaker_timeout"`
}

// CacheConfig enables the Redis cache of raw contract downloads.
type CacheConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
	Prefix   string        `mapstructure:"prefix"`
}

// BuildConfig selects the contract range and products of a build.
type BuildConfig struct {
	StartYear  int      `mapstructure:"start_year"`
	EndYear    int      `mapstructure:"end_year"`
	WindowDays int      `mapstructure:"window_days"`
	Workers    int      `mapstructure:"workers"`
	Products   []string `mapstructure:"products"`
}

// SchedulerConfig governs rebuild cadence.
type SchedulerConfig struct {
	Interval        time.Duration `mapstructure:"interval"`
	AlignToInterval bool          `mapstructure:"align_to_interval"`
	AdvisoryLockKey int64         `mapstructure:"advisory_lock_key"`
	StartupDelay    time.Duration `mapstructure:"startup_delay"`
}

// AlertingConfig routes withheld-product notifications.
type AlertingConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig describes the Telegram bot used for alerts.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// MetricsConfig exposes Prometheus metrics during `run`.
type MetricsConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
	Namespace  string `mapstructure:"namespace"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	VolPeriod     int `mapstructure:"vol_period"`
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CONTCHAIN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "contchain")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", "30m")

	v.SetDefault("provider.base_url", "https://data.nasdaq.com/api/v3")
	v.SetDefault("provider.api_key", "")
	v.SetDefault("provider.timeout", "30s")
	v.SetDefault("provider.user_agent", "contchain/1.0")
	v.SetDefault("provider.requests_per_second", 2.0)
	v.SetDefault("provider.burst", 4)
	v.SetDefault("provider.max_attempts", 4)
	v.SetDefault("provider.initial_backoff", "1s")
	v.SetDefault("provider.max_backoff", "30s")
	v.SetDefault("provider.breaker_failures", 5)
	v.SetDefault("provider.breaker_timeout", "1m")

	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.addr", "localhost:6379")
	v.SetDefault("cache.password", "")
	v.SetDefault("cache.db", 0)
	v.SetDefault("cache.ttl", "24h")
	v.SetDefault("cache.prefix", "contchain")

	v.SetDefault("build.start_year", 2006)
	v.SetDefault("build.end_year", 2016)
	v.SetDefault("build.window_days", 200)
	v.SetDefault("build.workers", 4)
	v.SetDefault("build.products", []string{})

	v.SetDefault("scheduler.interval", "24h")
	v.SetDefault("scheduler.align_to_interval", true)
	v.SetDefault("scheduler.advisory_lock_key", int64(0x636f6e74))
	v.SetDefault("scheduler.startup_delay", "0s")

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.bot_token", "")
	v.SetDefault("alerting.telegram.chat_id", "")
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")

	v.SetDefault("metrics.listen_addr", "")
	v.SetDefault("metrics.namespace", "contchain")

	v.SetDefault("export.vol_period", 20)
	v.SetDefault("export.max_data_points", 100000)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Build.StartYear <= 0 || c.Build.EndYear < c.Build.StartYear {
		return fmt.Errorf("build.start_year and build.end_year must form a non-empty range")
	}
	if c.Build.WindowDays <= 0 {
		return fmt.Errorf("build.window_days must be greater than zero")
	}
	if c.Build.Workers <= 0 {
		return fmt.Errorf("build.workers must be greater than zero")
	}
	if c.Provider.MaxAttempts <= 0 {
		return fmt.Errorf("provider.max_attempts must be greater than zero")
	}
	if c.Provider.RequestsPerSecond < 0 {
		return fmt.Errorf("provider.requests_per_second cannot be negative")
	}
	if c.Provider.InitialBackoff > c.Provider.MaxBackoff {
		return fmt.Errorf("provider.initial_backoff cannot exceed provider.max_backoff")
	}
	if c.Cache.Enabled && c.Cache.Addr == "" {
		return fmt.Errorf("cache.addr is required when the cache is enabled")
	}
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be greater than zero")
	}
	if c.Export.VolPeriod < 2 {
		return fmt.Errorf("export.vol_period must be at least 2")
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token is required")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id is required")
		}
	}
	return nil
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}

// ResolveVolPeriod returns either the CLI override or config default.
func (c *Config) ResolveVolPeriod(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.VolPeriod
}
