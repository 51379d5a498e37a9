package extremes

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// Resolution describes the temporal granularity of a series together with
// the fixed offset its timestamps are expressed in.
type Resolution struct {
	daily bool
	loc   *time.Location
}

// Instantaneous is the resolution of a series with time-of-day timestamps.
func Instantaneous(loc *time.Location) Resolution {
	return Resolution{loc: loc}
}

// Daily is the resolution of a series with one value per calendar day.
func Daily(loc *time.Location) Resolution {
	return Resolution{daily: true, loc: loc}
}

// FixedOffset converts an offset in hours (as published by the data platform) to a zone.
func FixedOffset(hours float64) *time.Location {
	seconds := int(math.Round(hours * 3600))
	if seconds == 0 {
		return time.UTC
	}
	sign := '+'
	abs := seconds
	if abs < 0 {
		sign = '-'
		abs = -abs
	}
	name := fmt.Sprintf("UTC%c%02d:%02d", sign, abs/3600, (abs%3600)/60)
	return time.FixedZone(name, seconds)
}

// IsDaily reports whether the series is date-only.
func (r Resolution) IsDaily() bool {
	return r.daily
}

// Location returns the series offset, UTC when unset.
func (r Resolution) Location() *time.Location {
	if r.loc == nil {
		return time.UTC
	}
	return r.loc
}

// AsDaily keeps the offset and forces daily granularity.
func (r Resolution) AsDaily() Resolution {
	return Resolution{daily: true, loc: r.loc}
}

// Point builds a point at this resolution. Daily points are truncated to
// midnight of their calendar date in the series offset.
func (r Resolution) Point(t time.Time, value decimal.Decimal) Point {
	local := t.In(r.Location())
	if !r.daily {
		return Point{Time: local, Value: value}
	}
	y, m, d := local.Date()
	return Point{Time: time.Date(y, m, d, 0, 0, 0, 0, r.Location()), Value: value, Daily: true}
}

// Normalize re-expresses an existing point at this resolution. A point that
// already carries only a date keeps that date rather than being shifted.
func (r Resolution) Normalize(p Point) Point {
	if p.Daily {
		y, m, d := p.Time.Date()
		return Point{Time: time.Date(y, m, d, 0, 0, 0, 0, r.Location()), Value: p.Value, Daily: true}
	}
	return r.Point(p.Time, p.Value)
}

// Bounds returns the instants spanning the calendar dates of from and to,
// both inclusive, in this resolution's offset.
func (r Resolution) Bounds(from, to time.Time) (time.Time, time.Time) {
	loc := r.Location()
	fy, fm, fd := from.Date()
	ty, tm, td := to.Date()
	start := time.Date(fy, fm, fd, 0, 0, 0, 0, loc)
	end := time.Date(ty, tm, td, 0, 0, 0, 0, loc).AddDate(0, 0, 1).Add(-time.Nanosecond)
	return start, end
}

func (r Resolution) String() string {
	kind := "instantaneous"
	if r.daily {
		kind = "daily"
	}
	return kind + "@" + r.Location().String()
}

type civilDate struct {
	year  int
	month time.Month
	day   int
}

func (r Resolution) dateOf(t time.Time) civilDate {
	y, m, d := t.In(r.Location()).Date()
	return civilDate{year: y, month: m, day: d}
}
