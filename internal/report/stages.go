package report

import (
	"hydro-extremes/internal/extremes"
	"hydro-extremes/internal/source"
)

// SeriesInput is one retrieved series together with its descriptor.
type SeriesInput struct {
	Description source.Description
	Resolution  extremes.Resolution
	Data        source.SeriesData
}

// Inputs is everything the assembler needs; retrieval produces it and the
// stages below only read it.
type Inputs struct {
	Params   RequestParameters
	Primary  SeriesInput
	Upchain  *SeriesInput
	Derived  *SeriesInput
	Location source.Location
}

func analyze(in SeriesInput) CrossReferenced {
	ext := extremes.FindExtremes(in.Data.Points)
	return newCrossReferenced(ext, extremes.FilterQualifiers(ext.ByComparator(), in.Data.Qualifiers))
}

// primaryStage always yields a section; missing data gives empty extremes.
func primaryStage(in SeriesInput) CrossReferenced {
	return analyze(in)
}

func upchainStage(in *SeriesInput) CrossReferenced {
	if in == nil || len(in.Data.Points) == 0 {
		return emptyCrossReferenced()
	}
	return analyze(*in)
}

// derivedStage expects the input already retrieved at daily resolution.
func derivedStage(in *SeriesInput) CrossReferenced {
	if in == nil || len(in.Data.Points) == 0 {
		return emptyCrossReferenced()
	}
	return analyze(*in)
}

// crossReference matches each series' extremes against the other's points.
// It returns the upchain points aligned with the primary extremes and the
// primary points aligned with the upchain extremes.
func crossReference(primary, upchain CrossReferenced, primaryIn, upchainIn SeriesInput) (relatedUpchain, relatedPrimary extremes.SeriesExtremes) {
	if primary.Extremes.Empty() || upchain.Extremes.Empty() {
		empty := extremes.FindExtremes(nil)
		return empty, empty
	}
	relatedUpchain = extremes.MatchRelated(primary.Extremes, upchainIn.Data.Points, upchainIn.Resolution)
	relatedPrimary = extremes.MatchRelated(upchain.Extremes, primaryIn.Data.Points, primaryIn.Resolution)
	return relatedUpchain, relatedPrimary
}

// qualifierIdentifiers collects the distinct identifiers of every section's
// filtered qualifiers, in section order.
func qualifierIdentifiers(sections ...CrossReferenced) []string {
	seen := make(map[string]struct{})
	ids := make([]string, 0)
	for _, s := range sections {
		for _, q := range s.Qualifiers {
			if _, ok := seen[q.Identifier]; ok {
				continue
			}
			seen[q.Identifier] = struct{}{}
			ids = append(ids, q.Identifier)
		}
	}
	return ids
}
