package report

import (
	"encoding/json"
	"time"

	"hydro-extremes/internal/extremes"
	"hydro-extremes/internal/source"
)

// Title is the report title written to metadata.
const Title = "Extremes"

const pointsKey = "points"

// CrossReferenced is one series' extremes, the related series' points that
// coincide with them, and the qualifiers applying to them.
type CrossReferenced struct {
	Extremes   extremes.SeriesExtremes
	Related    map[extremes.RelatedKey]extremes.SeriesExtremes
	Qualifiers []extremes.Qualifier
}

func newCrossReferenced(ext extremes.SeriesExtremes, qualifiers []extremes.Qualifier) CrossReferenced {
	return CrossReferenced{
		Extremes:   ext,
		Related:    make(map[extremes.RelatedKey]extremes.SeriesExtremes),
		Qualifiers: qualifiers,
	}
}

func emptyCrossReferenced() CrossReferenced {
	return newCrossReferenced(extremes.FindExtremes(nil), []extremes.Qualifier{})
}

// relate records matched points under key. Nothing is stored when no point matched.
func (c *CrossReferenced) relate(key extremes.RelatedKey, matched extremes.SeriesExtremes) {
	if matched.Empty() {
		return
	}
	c.Related[key] = matched
}

// RelatedPoints returns the related points for one comparator, or nil.
func (c CrossReferenced) RelatedPoints(key extremes.RelatedKey, cmp extremes.Comparator) []extremes.Point {
	related, ok := c.Related[key]
	if !ok {
		return nil
	}
	return related.Points(cmp)
}

type crossReferencedJSON struct {
	Min        map[string][]extremes.Point `json:"min"`
	Max        map[string][]extremes.Point `json:"max"`
	Qualifiers []extremes.Qualifier        `json:"qualifiers"`
}

// MarshalJSON nests related points next to the series' own points, per comparator.
func (c CrossReferenced) MarshalJSON() ([]byte, error) {
	out := crossReferencedJSON{
		Min:        c.side(extremes.Min),
		Max:        c.side(extremes.Max),
		Qualifiers: c.Qualifiers,
	}
	if out.Qualifiers == nil {
		out.Qualifiers = []extremes.Qualifier{}
	}
	return json.Marshal(out)
}

func (c CrossReferenced) side(cmp extremes.Comparator) map[string][]extremes.Point {
	own := c.Extremes.Points(cmp)
	if own == nil {
		own = []extremes.Point{}
	}
	side := map[string][]extremes.Point{pointsKey: own}
	for key, related := range c.Related {
		if points := related.Points(cmp); len(points) > 0 {
			side[key.String()] = points
		}
	}
	return side
}

// Metadata describes the report and the series it covers.
type Metadata struct {
	Title             string                              `json:"title"`
	RequestingUser    string                              `json:"requestingUser"`
	RequestParameters RequestParameters                   `json:"requestParameters"`
	StationID         string                              `json:"stationId"`
	StationName       string                              `json:"stationName"`
	Timezone          string                              `json:"timezone"`
	PrimaryParameter  string                              `json:"primaryParameter"`
	PrimaryUnit       string                              `json:"primaryUnit"`
	PrimaryLabel      string                              `json:"primaryLabel"`
	UpchainLabel      string                              `json:"upchainLabel,omitempty"`
	UpchainParameter  string                              `json:"upchainParameter,omitempty"`
	UpchainUnit       string                              `json:"upchainUnit,omitempty"`
	DvLabel           string                              `json:"dvLabel,omitempty"`
	DvComputation     string                              `json:"dvComputation,omitempty"`
	DvParameter       string                              `json:"dvParameter,omitempty"`
	DvUnit            string                              `json:"dvUnit,omitempty"`
	QualifierMetadata map[string]source.QualifierMetadata `json:"qualifierMetadata,omitempty"`
	GeneratedAt       time.Time                           `json:"generatedAt"`
}

// Report is the assembled extremes report.
type Report struct {
	Primary  CrossReferenced `json:"primary"`
	Upchain  CrossReferenced `json:"upchain"`
	Derived  CrossReferenced `json:"dv"`
	Metadata Metadata        `json:"reportMetadata"`
}

// Sections lists the report sections with their display names.
func (r *Report) Sections() []Section {
	return []Section{
		{Name: "primary", Label: r.Metadata.PrimaryLabel, Data: r.Primary},
		{Name: "upchain", Label: r.Metadata.UpchainLabel, Data: r.Upchain},
		{Name: "dv", Label: r.Metadata.DvLabel, Data: r.Derived},
	}
}

// Section pairs a report section with its label.
type Section struct {
	Name  string
	Label string
	Data  CrossReferenced
}
