package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"hydro-extremes/internal/logging"
)

// Source kinds.
const (
	SourcePlatform = "platform"
	SourcePostgres = "postgres"
	SourceFile     = "file"
)

// Config materialises application configuration.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Logging  logging.Config `mapstructure:"logging"`
	Source   SourceConfig   `mapstructure:"source"`
	Platform PlatformConfig `mapstructure:"platform"`
	Database DatabaseConfig `mapstructure:"database"`
	Report   ReportConfig   `mapstructure:"report"`
	Watch    WatchConfig    `mapstructure:"watch"`
	Alerting AlertingConfig `mapstructure:"alerting"`
	Export   ExportConfig   `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// SourceConfig selects where series data is read from.
type SourceConfig struct {
	Kind string `mapstructure:"kind"`
	Path string `mapstructure:"path"`
}

// PlatformConfig covers the time series platform HTTP API.
type PlatformConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	Token          string        `mapstructure:"token"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MinConns        int           `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// ReportConfig holds report defaults.
type ReportConfig struct {
	User   string `mapstructure:"user"`
	Format string `mapstructure:"format"`
}

// WatchConfig governs the scheduled trailing-window report.
type WatchConfig struct {
	Interval        time.Duration `mapstructure:"interval"`
	AlignToBucket   bool          `mapstructure:"align_to_bucket"`
	StartupDelay    time.Duration `mapstructure:"startup_delay"`
	WindowDays      int           `mapstructure:"window_days"`
	AdvisoryLockKey int64         `mapstructure:"advisory_lock_key"`
	Retention       time.Duration `mapstructure:"retention"`
	MetricsAddr     string        `mapstructure:"metrics_addr"`
	Primary         string        `mapstructure:"primary"`
	Upchain         string        `mapstructure:"upchain"`
	Derived         string        `mapstructure:"derived"`
}

// AlertingConfig defines notification routing.
type AlertingConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Channels []string       `mapstructure:"channels"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig holds Telegram bot parameters.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("HYDROEXTREMES")
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
	v.SetDefault("app.name", "hydro-extremes")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stderr")

	v.SetDefault("source.kind", SourcePlatform)
	v.SetDefault("source.path", "")

	v.SetDefault("platform.base_url", "")
	v.SetDefault("platform.token", "")
	v.SetDefault("platform.request_timeout", "30s")
	v.SetDefault("platform.user_agent", "hydro-extremes/1.0")

	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.min_conns", 1)
	v.SetDefault("database.conn_max_lifetime", "30m")

	v.SetDefault("report.user", "")
	v.SetDefault("report.format", "json")

	v.SetDefault("watch.interval", "1h")
	v.SetDefault("watch.align_to_bucket", true)
	v.SetDefault("watch.startup_delay", "0s")
	v.SetDefault("watch.window_days", 30)
	v.SetDefault("watch.advisory_lock_key", int64(0x68796478))
	v.SetDefault("watch.retention", "2160h")
	v.SetDefault("watch.metrics_addr", "")
	v.SetDefault("watch.primary", "")
	v.SetDefault("watch.upchain", "")
	v.SetDefault("watch.derived", "")

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.channels", []string{"telegram"})
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.bot_token", "")
	v.SetDefault("alerting.telegram.chat_id", "")
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")

	v.SetDefault("export.max_data_points", 2000)
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
	switch strings.ToLower(c.Source.Kind) {
	case SourcePlatform:
		if c.Platform.RequestTimeout <= 0 {
			return fmt.Errorf("platform.request_timeout must be greater than zero")
		}
	case SourcePostgres:
	case SourceFile:
		if c.Source.Path == "" {
			return fmt.Errorf("source.path is required when source.kind is %q", SourceFile)
		}
	default:
		return fmt.Errorf("source.kind must be one of %s, %s, %s; got %q", SourcePlatform, SourcePostgres, SourceFile, c.Source.Kind)
	}
	switch strings.ToLower(c.Report.Format) {
	case "json", "table":
	default:
		return fmt.Errorf("report.format must be json or table; got %q", c.Report.Format)
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	if c.Watch.Interval <= 0 {
		return fmt.Errorf("watch.interval must be greater than zero")
	}
	if c.Watch.WindowDays <= 0 {
		return fmt.Errorf("watch.window_days must be greater than zero")
	}
	if c.Watch.Retention < 0 {
		return fmt.Errorf("watch.retention cannot be negative")
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

// SourceKind returns the normalised source kind.
func (c *Config) SourceKind() string {
	return strings.ToLower(c.Source.Kind)
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}

// ResolveUser returns the CLI override or the configured requesting user.
func (c *Config) ResolveUser(override string) string {
	if override != "" {
		return override
	}
	return c.Report.User
}
