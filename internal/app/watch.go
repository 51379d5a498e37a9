package app

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hydro-extremes/internal/observability"
	"hydro-extremes/internal/scheduler"
	"hydro-extremes/internal/service"
	"hydro-extremes/internal/storage"
)

// Watch runs the scheduled trailing-window report until interrupted.
func (a *App) Watch(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	src, closeSource, err := a.openSource(ctx)
	if err != nil {
		return err
	}
	defer closeSource()

	var notifications storage.NotificationStore
	if store, ok := src.(*storage.Store); ok {
		notifications = store
	} else {
		store, closeStore, err := a.openStore(ctx)
		if err != nil {
			return err
		}
		if store == nil {
			a.Logger.Warn().Msg("database.dsn not configured; notification history disabled")
		} else {
			notifications = store
			defer closeStore()
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(reg)

	if addr := a.Config.Watch.MetricsAddr; addr != "" {
		srv := a.metricsServer(addr, reg)
		go func() {
			a.Logger.Info().Str("addr", addr).Msg("metrics server listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.Logger.Error().Err(err).Msg("metrics server failed")
			}
		}()
		defer func() {
			shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancelShutdown()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	sched := scheduler.New(scheduler.Options{
		Interval:       a.Config.Watch.Interval,
		AlignToStart:   a.Config.Watch.AlignToBucket,
		StartupDelay:   a.Config.Watch.StartupDelay,
		RunImmediately: true,
	}, a.Logger)

	svc := service.New(a.Config, sched, a.newBuilder(src, metrics), a.newNotifier(), notifications, metrics, a.Logger)

	a.Logger.Info().Str("primary", a.Config.Watch.Primary).Msg("starting watch")
	err = svc.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("watch terminated with error")
		return err
	}

	a.Logger.Info().Msg("watch stopped")
	return nil
}

func (a *App) metricsServer(addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
