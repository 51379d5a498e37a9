package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const (
	insertNotificationSQL = `INSERT INTO extremes_notifications (
        unique_id,
        comparator,
        point_ts,
        value,
        channels
    ) VALUES (
        $1,$2,$3,$4,$5
    )
    ON CONFLICT (unique_id, comparator, point_ts) DO NOTHING
    RETURNING id, created_at;`

	deleteNotificationsBeforeSQL = `DELETE FROM extremes_notifications WHERE created_at < $1;`
)

// NotificationRecord captures a delivered extremes notification for de-duplication.
type NotificationRecord struct {
	ID         int64
	UniqueID   string
	Comparator string
	PointTime  time.Time
	Value      decimal.Decimal
	Channels   []string
	CreatedAt  time.Time
}

// NotificationStore persists notifications so restarts do not repeat them.
type NotificationStore interface {
	RecordNotification(ctx context.Context, rec NotificationRecord) (bool, error)
	DeleteNotificationsBefore(ctx context.Context, olderThan time.Time) error
}

// RecordNotification stores rec and reports whether it was new.
func (s *Store) RecordNotification(ctx context.Context, rec NotificationRecord) (bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return false, err
	}

	row := pool.QueryRow(ctx, insertNotificationSQL,
		rec.UniqueID,
		rec.Comparator,
		rec.PointTime,
		rec.Value.String(),
		rec.Channels,
	)
	var (
		id        int64
		createdAt time.Time
	)
	scanErr := row.Scan(&id, &createdAt)
	if errors.Is(scanErr, pgx.ErrNoRows) {
		return false, nil
	}
	if scanErr != nil {
		return false, fmt.Errorf("insert notification: %w", scanErr)
	}
	return true, nil
}

// DeleteNotificationsBefore prunes old notification records.
func (s *Store) DeleteNotificationsBefore(ctx context.Context, olderThan time.Time) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, deleteNotificationsBeforeSQL, olderThan); execErr != nil {
		return fmt.Errorf("delete notifications before: %w", execErr)
	}
	return nil
}
