package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"hydro-extremes/internal/alerting"
	"hydro-extremes/internal/config"
	"hydro-extremes/internal/observability"
	"hydro-extremes/internal/report"
	"hydro-extremes/internal/source"
	"hydro-extremes/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	Stdout io.Writer
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger(), Stdout: os.Stdout}
}

// openSource returns the configured series source and a release func.
func (a *App) openSource(ctx context.Context) (source.Source, func(), error) {
	switch a.Config.SourceKind() {
	case config.SourceFile:
		f, err := source.LoadFile(a.Config.Source.Path)
		if err != nil {
			return nil, nil, err
		}
		return f, func() {}, nil
	case config.SourcePostgres:
		store, closeStore, err := a.openStore(ctx)
		if err != nil {
			return nil, nil, err
		}
		if store == nil {
			return nil, nil, fmt.Errorf("database.dsn is required when source.kind is %q", config.SourcePostgres)
		}
		return store, closeStore, nil
	default:
		cfg := a.Config.Platform
		if cfg.BaseURL == "" {
			return nil, nil, fmt.Errorf("platform.base_url is required when source.kind is %q", config.SourcePlatform)
		}
		return source.NewPlatform(source.PlatformOptions{
			BaseURL:   cfg.BaseURL,
			Token:     cfg.Token,
			Timeout:   cfg.RequestTimeout,
			UserAgent: cfg.UserAgent,
		}, a.Logger), func() {}, nil
	}
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	store, err := storage.Open(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

func (a *App) newBuilder(src source.Source, metrics *observability.Metrics) *report.Builder {
	return report.NewBuilder(src, report.Options{Metrics: metrics}, a.Logger)
}

func (a *App) newNotifier() alerting.Notifier {
	notifiers := alerting.Multi{}
	for _, channel := range a.Config.Alerting.Channels {
		switch channel {
		case "telegram":
			if a.Config.Alerting.Telegram.Enabled {
				cfg := a.Config.Alerting.Telegram
				notifiers = append(notifiers, alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger))
			}
		case "log":
			notifiers = append(notifiers, alerting.NewLogNotifier(a.Logger))
		default:
			a.Logger.Warn().Str("channel", channel).Msg("unknown alerting channel ignored")
		}
	}
	if len(notifiers) == 0 {
		return nil
	}
	return notifiers
}

// ReportOptions hold parameters for a one-off report.
type ReportOptions struct {
	Params  report.RequestParameters
	User    string
	Format  string
	OutPath string
}

// ExportOptions hold parameters for exporting a report's series.
type ExportOptions struct {
	Params    report.RequestParameters
	User      string
	PNGPath   string
	CSVPath   string
	MaxPoints int
}
