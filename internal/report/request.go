package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"hydro-extremes/internal/extremes"
	"hydro-extremes/internal/source"
)

// ErrInvalidRequest marks request parameters that cannot produce a report.
var ErrInvalidRequest = errors.New("invalid report request")

const dateLayout = "2006-01-02"

// RequestParameters select the series and the calendar date range of a report.
type RequestParameters struct {
	PrimaryTimeseriesIdentifier string
	UpchainTimeseriesIdentifier string
	DerivedTimeseriesIdentifier string
	StartDate                   time.Time
	EndDate                     time.Time
}

// Validate checks the parameters before any retrieval happens.
func (p RequestParameters) Validate() error {
	if strings.TrimSpace(p.PrimaryTimeseriesIdentifier) == "" {
		return fmt.Errorf("%w: primary time series identifier is required", ErrInvalidRequest)
	}
	if p.StartDate.IsZero() || p.EndDate.IsZero() {
		return fmt.Errorf("%w: start and end dates are required", ErrInvalidRequest)
	}
	if p.EndDate.Before(p.StartDate) {
		return fmt.Errorf("%w: end date %s is before start date %s", ErrInvalidRequest,
			p.EndDate.Format(dateLayout), p.StartDate.Format(dateLayout))
	}
	return nil
}

// SeriesIdentifiers lists the distinct non-empty identifiers in request order.
func (p RequestParameters) SeriesIdentifiers() []string {
	ids := make([]string, 0, 3)
	seen := make(map[string]struct{}, 3)
	for _, id := range []string{p.PrimaryTimeseriesIdentifier, p.UpchainTimeseriesIdentifier, p.DerivedTimeseriesIdentifier} {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

// Interval expresses the requested dates as instants in a series' offset.
func (p RequestParameters) Interval(res extremes.Resolution) source.Interval {
	start, end := res.Bounds(p.StartDate, p.EndDate)
	return source.Interval{Start: start, End: end}
}

type requestJSON struct {
	PrimaryTimeseriesIdentifier string `json:"primaryTimeseriesIdentifier"`
	UpchainTimeseriesIdentifier string `json:"upchainTimeseriesIdentifier,omitempty"`
	DerivedTimeseriesIdentifier string `json:"derivedTimeseriesIdentifier,omitempty"`
	StartDate                   string `json:"startDate"`
	EndDate                     string `json:"endDate"`
}

// MarshalJSON writes the date range as plain dates.
func (p RequestParameters) MarshalJSON() ([]byte, error) {
	return json.Marshal(requestJSON{
		PrimaryTimeseriesIdentifier: p.PrimaryTimeseriesIdentifier,
		UpchainTimeseriesIdentifier: p.UpchainTimeseriesIdentifier,
		DerivedTimeseriesIdentifier: p.DerivedTimeseriesIdentifier,
		StartDate:                   p.StartDate.Format(dateLayout),
		EndDate:                     p.EndDate.Format(dateLayout),
	})
}

// ParseDate reads a YYYY-MM-DD request date.
func ParseDate(value string) (time.Time, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q must be YYYY-MM-DD", ErrInvalidRequest, value)
	}
	return t, nil
}
