package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"hydro-extremes/internal/alerting"
	"hydro-extremes/internal/config"
	"hydro-extremes/internal/extremes"
	"hydro-extremes/internal/observability"
	"hydro-extremes/internal/report"
	"hydro-extremes/internal/scheduler"
	"hydro-extremes/internal/storage"
)

// ReportBuilder produces extremes reports.
type ReportBuilder interface {
	Build(ctx context.Context, params report.RequestParameters, requestingUser string) (*report.Report, error)
}

// Service rebuilds a trailing-window report on every tick and notifies when
// the primary series reaches a new extreme.
type Service struct {
	scheduler     *scheduler.Scheduler
	builder       ReportBuilder
	notifier      alerting.Notifier
	notifications storage.NotificationStore
	metrics       *observability.Metrics
	logger        zerolog.Logger

	primary    string
	upchain    string
	derived    string
	windowDays int
	user       string
	channels   []string
	alertsOn   bool
	retention  time.Duration
	locker     storage.AdvisoryLocker
	lockKey    int64

	last map[extremes.Comparator][]extremes.Point
}

// New constructs the watch service. notifications and metrics may be nil.
func New(cfg *config.Config, sched *scheduler.Scheduler, builder ReportBuilder, notifier alerting.Notifier, notifications storage.NotificationStore, metrics *observability.Metrics, logger zerolog.Logger) *Service {
	var locker storage.AdvisoryLocker
	if l, ok := notifications.(storage.AdvisoryLocker); ok {
		locker = l
	}

	return &Service{
		scheduler:     sched,
		builder:       builder,
		notifier:      notifier,
		notifications: notifications,
		metrics:       metrics,
		logger:        logger.With().Str("component", "service").Logger(),
		primary:       cfg.Watch.Primary,
		upchain:       cfg.Watch.Upchain,
		derived:       cfg.Watch.Derived,
		windowDays:    cfg.Watch.WindowDays,
		user:          cfg.Report.User,
		channels:      cfg.Alerting.Channels,
		alertsOn:      cfg.Alerting.Enabled,
		retention:     cfg.Watch.Retention,
		locker:        locker,
		lockKey:       cfg.Watch.AdvisoryLockKey,
		last:          make(map[extremes.Comparator][]extremes.Point),
	}
}

// Run begins the aligned watch loop.
func (s *Service) Run(ctx context.Context) error {
	if s.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	if s.primary == "" {
		return fmt.Errorf("watch.primary is required")
	}
	if s.metrics != nil {
		s.metrics.WatchRunning.Set(1)
		defer s.metrics.WatchRunning.Set(0)
	}
	return s.scheduler.Run(ctx, s.ProcessBucket)
}

// ProcessBucket builds the report for the window ending on bucket's date.
func (s *Service) ProcessBucket(ctx context.Context, bucket time.Time) error {
	unlock, proceed, err := s.acquireLock(ctx)
	if err != nil {
		return err
	}
	if !proceed {
		s.logger.Debug().Time("bucket", bucket).Msg("skip bucket because advisory lock held elsewhere")
		return nil
	}
	if unlock != nil {
		defer unlock()
	}

	return s.executeBucket(ctx, bucket)
}

// Window returns the request covering the trailing window that ends on bucket's UTC date.
func (s *Service) Window(bucket time.Time) report.RequestParameters {
	y, m, d := bucket.UTC().Date()
	end := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	days := s.windowDays
	if days <= 0 {
		days = 1
	}
	return report.RequestParameters{
		PrimaryTimeseriesIdentifier: s.primary,
		UpchainTimeseriesIdentifier: s.upchain,
		DerivedTimeseriesIdentifier: s.derived,
		StartDate:                   end.AddDate(0, 0, -(days - 1)),
		EndDate:                     end,
	}
}

func (s *Service) executeBucket(ctx context.Context, bucket time.Time) error {
	params := s.Window(bucket)
	r, err := s.builder.Build(ctx, params, s.user)
	if err != nil {
		return fmt.Errorf("build report: %w", err)
	}

	s.logger.Info().Time("bucket", bucket).
		Int("minima", len(r.Primary.Extremes.Minima)).
		Int("maxima", len(r.Primary.Extremes.Maxima)).
		Msg("report refreshed")

	for _, cmp := range extremes.Comparators {
		current := r.Primary.Extremes.Points(cmp)
		fresh := freshExtremes(cmp, s.last[cmp], current)
		if len(current) > 0 {
			previous := s.last[cmp]
			s.last[cmp] = current
			if len(fresh) > 0 {
				s.notify(ctx, bucket, r, cmp, fresh, previous)
			}
		}
	}

	s.prune(ctx, bucket)
	return nil
}

func (s *Service) notify(ctx context.Context, bucket time.Time, r *report.Report, cmp extremes.Comparator, fresh, previous []extremes.Point) {
	if !s.alertsOn || s.notifier == nil {
		return
	}

	points := make([]extremes.Point, 0, len(fresh))
	for _, p := range fresh {
		if s.notifications == nil {
			points = append(points, p)
			continue
		}
		isNew, err := s.notifications.RecordNotification(ctx, storage.NotificationRecord{
			UniqueID:   s.primary,
			Comparator: cmp.String(),
			PointTime:  p.Time,
			Value:      p.Value,
			Channels:   s.channels,
		})
		if err != nil {
			s.logger.Error().Err(err).Time("bucket", bucket).Msg("failed to persist notification record")
			points = append(points, p)
			continue
		}
		if isNew {
			points = append(points, p)
		}
	}
	if len(points) == 0 {
		return
	}

	note := alerting.Notification{
		Bucket:     bucket,
		SeriesID:   s.primary,
		Label:      r.Metadata.PrimaryLabel,
		Station:    r.Metadata.StationName,
		Unit:       r.Metadata.PrimaryUnit,
		Comparator: cmp,
		Points:     points,
		Previous:   previous,
		Channels:   s.channels,
	}
	if err := s.notifier.Notify(ctx, note); err != nil {
		s.logger.Error().Err(err).Time("bucket", bucket).Msg("failed to dispatch notification")
		return
	}
	if s.metrics != nil {
		s.metrics.NotificationsSent.Inc()
	}
}

func (s *Service) prune(ctx context.Context, bucket time.Time) {
	if s.notifications == nil || s.retention <= 0 {
		return
	}
	if err := s.notifications.DeleteNotificationsBefore(ctx, bucket.Add(-s.retention)); err != nil {
		s.logger.Error().Err(err).Time("bucket", bucket).Msg("failed to prune notification records")
	}
}

// freshExtremes returns the current extremes worth announcing. The first
// observation is a baseline. An extreme that merely dropped out of the window
// is not announced; a strictly more extreme value announces the whole
// tie-set; an equal value announces only the points not seen before.
func freshExtremes(cmp extremes.Comparator, previous, current []extremes.Point) []extremes.Point {
	if len(previous) == 0 || len(current) == 0 {
		return nil
	}
	prev, cur := previous[0].Value, current[0].Value
	more := cur.GreaterThan(prev)
	if cmp == extremes.Min {
		more = cur.LessThan(prev)
	}
	if more {
		return current
	}
	if !cur.Equal(prev) {
		return nil
	}

	seen := make(map[int64]struct{}, len(previous))
	for _, p := range previous {
		seen[p.Time.UnixNano()] = struct{}{}
	}
	fresh := make([]extremes.Point, 0)
	for _, p := range current {
		if _, ok := seen[p.Time.UnixNano()]; !ok {
			fresh = append(fresh, p)
		}
	}
	return fresh
}

func (s *Service) acquireLock(ctx context.Context) (func(), bool, error) {
	if s.lockKey == 0 || s.locker == nil {
		return nil, true, nil
	}
	unlock, acquired, err := s.locker.TryAdvisoryLock(ctx, s.lockKey)
	if err != nil {
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}
