package source

import (
	"context"
	"errors"
	"strings"
	"time"

	"hydro-extremes/internal/extremes"
)

// ErrNotFound is returned when a requested entity does not exist upstream.
var ErrNotFound = errors.New("source: not found")

const dailyPeriod = "Daily"

// Description is the upstream metadata of one time series.
type Description struct {
	UniqueID                    string  `json:"uniqueId"`
	Identifier                  string  `json:"identifier"`
	Parameter                   string  `json:"parameter"`
	Unit                        string  `json:"unit"`
	LocationIdentifier          string  `json:"locationIdentifier"`
	ComputationIdentifier       string  `json:"computationIdentifier"`
	ComputationPeriodIdentifier string  `json:"computationPeriodIdentifier"`
	UtcOffset                   float64 `json:"utcOffset"`
}

// Resolution derives the series granularity and offset from its description.
func (d Description) Resolution() extremes.Resolution {
	loc := extremes.FixedOffset(d.UtcOffset)
	if strings.EqualFold(d.ComputationPeriodIdentifier, dailyPeriod) {
		return extremes.Daily(loc)
	}
	return extremes.Instantaneous(loc)
}

// Interval bounds a point query; both ends are inclusive.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the interval.
func (i Interval) Contains(t time.Time) bool {
	return !t.Before(i.Start) && !t.After(i.End)
}

// SeriesData is the raw content of one series over an interval.
type SeriesData struct {
	Points     []extremes.Point
	Qualifiers []extremes.Qualifier
}

// Location is the station a series belongs to.
type Location struct {
	Identifier string `json:"identifier"`
	Name       string `json:"name"`
}

// QualifierMetadata is the human-readable description of a qualifier identifier.
type QualifierMetadata struct {
	Identifier  string `json:"identifier"`
	Code        string `json:"code"`
	DisplayName string `json:"displayName"`
}

// DescriptionSource resolves series descriptions by unique id. Unknown ids are omitted.
type DescriptionSource interface {
	Descriptions(ctx context.Context, uniqueIDs []string) ([]Description, error)
}

// PointSource retrieves the points and qualifiers of a series. Returned
// points are expressed at the given resolution.
type PointSource interface {
	Points(ctx context.Context, uniqueID string, interval Interval, res extremes.Resolution) (SeriesData, error)
}

// LocationSource looks up station metadata.
type LocationSource interface {
	Location(ctx context.Context, identifier string) (Location, error)
}

// QualifierLookup translates qualifier identifiers to metadata.
type QualifierLookup interface {
	QualifierMetadata(ctx context.Context, identifiers []string) (map[string]QualifierMetadata, error)
}

// Source bundles every collaborator the report builder needs.
type Source interface {
	DescriptionSource
	PointSource
	LocationSource
	QualifierLookup
}
