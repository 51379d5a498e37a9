package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"hydro-extremes/internal/extremes"
	"hydro-extremes/internal/source"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	listDescriptionsSQL = `SELECT
        unique_id,
        identifier,
        parameter,
        unit,
        location_identifier,
        computation_identifier,
        computation_period_identifier,
        utc_offset
    FROM time_series_descriptions
    WHERE unique_id = ANY($1)
    ORDER BY unique_id;`

	listPointsBetweenSQL = `SELECT
        ts,
        value::text
    FROM time_series_points
    WHERE unique_id = $1
      AND ts >= $2
      AND ts <= $3
    ORDER BY ts;`

	listQualifiersOverlappingSQL = `SELECT
        identifier,
        start_time,
        end_time,
        date_applied,
        applied_by
    FROM time_series_qualifiers
    WHERE unique_id = $1
      AND ((start_time <= $3 AND end_time >= $2) OR start_time > end_time)
    ORDER BY start_time, identifier;`

	getLocationSQL = `SELECT identifier, name FROM locations WHERE identifier = $1;`

	listQualifierMetadataSQL = `SELECT
        identifier,
        code,
        display_name
    FROM qualifier_metadata
    WHERE identifier = ANY($1);`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// AdvisoryLocker exposes advisory lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Store serves time series from PostgreSQL and records watch notifications.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a release func.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		// The lock is session scoped; a failed unlock is released with the connection.
		_, _ = conn.Exec(ctxUnlock, advisoryUnlockSQL, key)
		conn.Release()
	}
	return unlock, true, nil
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// Descriptions returns the stored descriptions among uniqueIDs.
func (s *Store) Descriptions(ctx context.Context, uniqueIDs []string) ([]source.Description, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listDescriptionsSQL, uniqueIDs)
	if queryErr != nil {
		return nil, fmt.Errorf("list descriptions: %w", queryErr)
	}
	defer rows.Close()

	descs := make([]source.Description, 0, len(uniqueIDs))
	for rows.Next() {
		var (
			d           source.Description
			computation sql.NullString
			period      sql.NullString
		)
		if err := rows.Scan(
			&d.UniqueID,
			&d.Identifier,
			&d.Parameter,
			&d.Unit,
			&d.LocationIdentifier,
			&computation,
			&period,
			&d.UtcOffset,
		); err != nil {
			return nil, fmt.Errorf("scan description: %w", err)
		}
		d.ComputationIdentifier = computation.String
		d.ComputationPeriodIdentifier = period.String
		descs = append(descs, d)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return descs, nil
}

// Points loads the points and overlapping qualifiers of a series.
func (s *Store) Points(ctx context.Context, uniqueID string, interval source.Interval, res extremes.Resolution) (source.SeriesData, error) {
	pool, err := s.getPool()
	if err != nil {
		return source.SeriesData{}, err
	}

	rows, queryErr := pool.Query(ctx, listPointsBetweenSQL, uniqueID, interval.Start, interval.End)
	if queryErr != nil {
		return source.SeriesData{}, fmt.Errorf("list points between: %w", queryErr)
	}
	points := make([]extremes.Point, 0)
	for rows.Next() {
		p, scanErr := scanPoint(rows, res)
		if scanErr != nil {
			rows.Close()
			return source.SeriesData{}, scanErr
		}
		points = append(points, p)
	}
	rows.Close()
	if rows.Err() != nil {
		return source.SeriesData{}, rows.Err()
	}

	qualifiers, err := s.qualifiers(ctx, pool, uniqueID, interval)
	if err != nil {
		return source.SeriesData{}, err
	}
	return source.SeriesData{Points: points, Qualifiers: qualifiers}, nil
}

func (s *Store) qualifiers(ctx context.Context, pool *pgxpool.Pool, uniqueID string, interval source.Interval) ([]extremes.Qualifier, error) {
	rows, err := pool.Query(ctx, listQualifiersOverlappingSQL, uniqueID, interval.Start, interval.End)
	if err != nil {
		return nil, fmt.Errorf("list qualifiers: %w", err)
	}
	defer rows.Close()

	qualifiers := make([]extremes.Qualifier, 0)
	for rows.Next() {
		var (
			q       extremes.Qualifier
			applied sql.NullTime
			user    sql.NullString
		)
		if err := rows.Scan(&q.Identifier, &q.StartTime, &q.EndTime, &applied, &user); err != nil {
			return nil, fmt.Errorf("scan qualifier: %w", err)
		}
		q.DateApplied = applied.Time
		q.User = user.String
		qualifiers = append(qualifiers, q)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return qualifiers, nil
}

// Location returns the station named identifier.
func (s *Store) Location(ctx context.Context, identifier string) (source.Location, error) {
	pool, err := s.getPool()
	if err != nil {
		return source.Location{}, err
	}

	var loc source.Location
	scanErr := pool.QueryRow(ctx, getLocationSQL, identifier).Scan(&loc.Identifier, &loc.Name)
	if errors.Is(scanErr, pgx.ErrNoRows) {
		return source.Location{}, source.ErrNotFound
	}
	if scanErr != nil {
		return source.Location{}, fmt.Errorf("get location: %w", scanErr)
	}
	return loc, nil
}

// QualifierMetadata returns metadata for the requested identifiers.
func (s *Store) QualifierMetadata(ctx context.Context, identifiers []string) (map[string]source.QualifierMetadata, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listQualifierMetadataSQL, identifiers)
	if queryErr != nil {
		return nil, fmt.Errorf("list qualifier metadata: %w", queryErr)
	}
	defer rows.Close()

	out := make(map[string]source.QualifierMetadata, len(identifiers))
	for rows.Next() {
		var q source.QualifierMetadata
		if err := rows.Scan(&q.Identifier, &q.Code, &q.DisplayName); err != nil {
			return nil, fmt.Errorf("scan qualifier metadata: %w", err)
		}
		out[q.Identifier] = q
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func scanPoint(rows pgx.Rows, res extremes.Resolution) (extremes.Point, error) {
	var (
		ts       time.Time
		valueStr string
	)
	if err := rows.Scan(&ts, &valueStr); err != nil {
		return extremes.Point{}, err
	}
	value, err := parseValue(valueStr)
	if err != nil {
		return extremes.Point{}, err
	}
	return res.Point(ts, value), nil
}

func parseValue(raw string) (decimal.Decimal, error) {
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse point value %q: %w", raw, err)
	}
	return value, nil
}

var _ source.Source = (*Store)(nil)
