package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "hydro-extremes", cfg.App.Name)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "stderr", cfg.Logging.Output)
	assert.Equal(t, SourcePlatform, cfg.SourceKind())
	assert.Equal(t, 30*time.Second, cfg.Platform.RequestTimeout)
	assert.Equal(t, "json", cfg.Report.Format)
	assert.Equal(t, time.Hour, cfg.Watch.Interval)
	assert.Equal(t, 30, cfg.Watch.WindowDays)
	assert.True(t, cfg.Watch.AlignToBucket)
	assert.Equal(t, []string{"telegram"}, cfg.Alerting.Channels)
	assert.Equal(t, 2000, cfg.Export.MaxDataPoints)
	assert.Equal(t, 30*time.Minute, cfg.Database.ConnMaxLifetime)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("HYDROEXTREMES_SOURCE_KIND", "file")
	t.Setenv("HYDROEXTREMES_SOURCE_PATH", "/tmp/series.json")
	t.Setenv("HYDROEXTREMES_WATCH_INTERVAL", "15m")
	t.Setenv("HYDROEXTREMES_WATCH_PRIMARY", "abc123")
	t.Setenv("HYDROEXTREMES_ALERTING_CHANNELS", "telegram,log")
	t.Setenv("HYDROEXTREMES_REPORT_USER", "ops")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, SourceFile, cfg.SourceKind())
	assert.Equal(t, "/tmp/series.json", cfg.Source.Path)
	assert.Equal(t, 15*time.Minute, cfg.Watch.Interval)
	assert.Equal(t, "abc123", cfg.Watch.Primary)
	assert.Equal(t, []string{"telegram", "log"}, cfg.Alerting.Channels)
	assert.Equal(t, "ops", cfg.ResolveUser(""))
	assert.Equal(t, "cli", cfg.ResolveUser("cli"))
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
source:
  kind: postgres
database:
  dsn: postgres://localhost/hydro
watch:
  window_days: 7
  upchain: up-1
export:
  max_data_points: 500
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, SourcePostgres, cfg.SourceKind())
	assert.Equal(t, "postgres://localhost/hydro", cfg.Database.DSN)
	assert.Equal(t, 7, cfg.Watch.WindowDays)
	assert.Equal(t, "up-1", cfg.Watch.Upchain)
	assert.Equal(t, 500, cfg.ResolveMaxPoints(0))
	assert.Equal(t, 50, cfg.ResolveMaxPoints(50))
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return *cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"unknown source kind", func(c *Config) { c.Source.Kind = "ftp" }, "source.kind"},
		{"file source without path", func(c *Config) { c.Source.Kind = SourceFile }, "source.path"},
		{"bad report format", func(c *Config) { c.Report.Format = "xml" }, "report.format"},
		{"zero max points", func(c *Config) { c.Export.MaxDataPoints = 0 }, "export.max_data_points"},
		{"zero interval", func(c *Config) { c.Watch.Interval = 0 }, "watch.interval"},
		{"zero window", func(c *Config) { c.Watch.WindowDays = 0 }, "watch.window_days"},
		{"negative retention", func(c *Config) { c.Watch.Retention = -time.Hour }, "watch.retention"},
		{"telegram without token", func(c *Config) {
			c.Alerting.Telegram.Enabled = true
			c.Alerting.Telegram.ChatID = "1"
		}, "bot_token"},
		{"telegram without chat", func(c *Config) {
			c.Alerting.Telegram.Enabled = true
			c.Alerting.Telegram.BotToken = "t"
		}, "chat_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}

	cfg := valid()
	assert.NoError(t, cfg.Validate())
}
