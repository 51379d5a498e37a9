package source

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"hydro-extremes/internal/extremes"
)

// Document is the on-disk layout read by File.
type Document struct {
	Descriptions      []Description         `json:"descriptions"`
	Series            map[string]SeriesFile `json:"series"`
	Locations         []Location            `json:"locations"`
	QualifierMetadata []QualifierMetadata   `json:"qualifierMetadata"`
}

// SeriesFile holds the raw content of one series in a Document.
type SeriesFile struct {
	Points     []extremes.Point     `json:"points"`
	Qualifiers []extremes.Qualifier `json:"qualifiers"`
}

// File serves series data from a JSON document, for offline runs and fixtures.
type File struct {
	doc Document
}

// NewFile wraps an in-memory document.
func NewFile(doc Document) *File {
	return &File{doc: doc}
}

// LoadFile reads a JSON document from disk.
func LoadFile(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read source file: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode source file %s: %w", path, err)
	}
	return NewFile(doc), nil
}

// Descriptions returns the known descriptions among uniqueIDs.
func (f *File) Descriptions(ctx context.Context, uniqueIDs []string) ([]Description, error) {
	wanted := make(map[string]struct{}, len(uniqueIDs))
	for _, id := range uniqueIDs {
		wanted[id] = struct{}{}
	}
	out := make([]Description, 0, len(uniqueIDs))
	for _, d := range f.doc.Descriptions {
		if _, ok := wanted[d.UniqueID]; ok {
			out = append(out, d)
		}
	}
	return out, nil
}

// Points returns the points inside interval, normalised to res, and the
// series qualifiers that overlap it.
func (f *File) Points(ctx context.Context, uniqueID string, interval Interval, res extremes.Resolution) (SeriesData, error) {
	series, ok := f.doc.Series[uniqueID]
	if !ok {
		return SeriesData{Points: []extremes.Point{}, Qualifiers: []extremes.Qualifier{}}, nil
	}

	data := SeriesData{
		Points:     make([]extremes.Point, 0, len(series.Points)),
		Qualifiers: make([]extremes.Qualifier, 0, len(series.Qualifiers)),
	}
	for _, p := range series.Points {
		normalized := res.Normalize(p)
		if interval.Contains(normalized.Time) {
			data.Points = append(data.Points, normalized)
		}
	}
	for _, q := range series.Qualifiers {
		if q.Inverted() || (!q.EndTime.Before(interval.Start) && !q.StartTime.After(interval.End)) {
			data.Qualifiers = append(data.Qualifiers, q)
		}
	}
	return data, nil
}

// Location returns the station named identifier.
func (f *File) Location(ctx context.Context, identifier string) (Location, error) {
	for _, loc := range f.doc.Locations {
		if loc.Identifier == identifier {
			return loc, nil
		}
	}
	return Location{}, ErrNotFound
}

// QualifierMetadata returns metadata for the requested identifiers.
func (f *File) QualifierMetadata(ctx context.Context, identifiers []string) (map[string]QualifierMetadata, error) {
	wanted := make(map[string]struct{}, len(identifiers))
	for _, id := range identifiers {
		wanted[id] = struct{}{}
	}
	out := make(map[string]QualifierMetadata, len(identifiers))
	for _, q := range f.doc.QualifierMetadata {
		if _, ok := wanted[q.Identifier]; ok {
			out[q.Identifier] = q
		}
	}
	return out, nil
}

var _ Source = (*File)(nil)
