package extremes

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// Point is a single observation of a series. Daily points carry only a date;
// their Time is midnight of that date in the series offset.
type Point struct {
	Time  time.Time
	Value decimal.Decimal
	Daily bool
}

// NewPoint builds an instantaneous point.
func NewPoint(t time.Time, value decimal.Decimal) Point {
	return Point{Time: t, Value: value}
}

// Date returns the calendar date of a point in its own location.
func (p Point) Date() string {
	return p.Time.Format(dateLayout)
}

// String renders the point for logs.
func (p Point) String() string {
	if p.Daily {
		return fmt.Sprintf("%s=%s", p.Date(), p.Value.String())
	}
	return fmt.Sprintf("%s=%s", p.Time.Format(time.RFC3339), p.Value.String())
}

type pointJSON struct {
	Time  string          `json:"time"`
	Value decimal.Decimal `json:"value"`
}

// MarshalJSON writes daily points as a bare date and instantaneous points as RFC3339 with offset.
func (p Point) MarshalJSON() ([]byte, error) {
	out := pointJSON{Value: p.Value}
	if p.Daily {
		out.Time = p.Date()
	} else {
		out.Time = p.Time.Format(time.RFC3339Nano)
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts either a date or an RFC3339 timestamp.
func (p *Point) UnmarshalJSON(data []byte) error {
	var in pointJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	if t, err := time.Parse(dateLayout, in.Time); err == nil {
		*p = Point{Time: t, Value: in.Value, Daily: true}
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, in.Time)
	if err != nil {
		return fmt.Errorf("parse point time %q: %w", in.Time, err)
	}
	*p = Point{Time: t, Value: in.Value}
	return nil
}

// Comparator selects one side of an extremes pair.
type Comparator uint8

const (
	Min Comparator = iota
	Max
)

// Comparators lists every comparator in report order.
var Comparators = []Comparator{Min, Max}

func (c Comparator) String() string {
	switch c {
	case Min:
		return "min"
	case Max:
		return "max"
	default:
		return fmt.Sprintf("comparator(%d)", uint8(c))
	}
}

// RelatedKey names the series a set of cross-referenced points came from.
type RelatedKey uint8

const (
	RelatedPrimary RelatedKey = iota + 1
	RelatedUpchain
)

func (k RelatedKey) String() string {
	switch k {
	case RelatedPrimary:
		return "relatedPrimary"
	case RelatedUpchain:
		return "relatedUpchain"
	default:
		return fmt.Sprintf("related(%d)", uint8(k))
	}
}

// MarshalText lets RelatedKey act as a JSON object key.
func (k RelatedKey) MarshalText() ([]byte, error) {
	switch k {
	case RelatedPrimary, RelatedUpchain:
		return []byte(k.String()), nil
	default:
		return nil, fmt.Errorf("unknown related key %d", uint8(k))
	}
}

// SeriesExtremes holds the minimum and maximum tie-sets of one series.
type SeriesExtremes struct {
	Minima []Point
	Maxima []Point
}

// Empty reports whether the series produced no extremes.
func (s SeriesExtremes) Empty() bool {
	return len(s.Minima) == 0 && len(s.Maxima) == 0
}

// Points returns the tie-set for a comparator.
func (s SeriesExtremes) Points(c Comparator) []Point {
	if c == Max {
		return s.Maxima
	}
	return s.Minima
}

// ByComparator exposes both tie-sets keyed by comparator.
func (s SeriesExtremes) ByComparator() map[Comparator][]Point {
	return map[Comparator][]Point{
		Min: s.Minima,
		Max: s.Maxima,
	}
}
