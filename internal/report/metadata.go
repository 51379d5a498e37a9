package report

import (
	"fmt"
	"math"
	"time"

	"hydro-extremes/internal/source"
)

func buildMetadata(in *Inputs, requestingUser string, generatedAt time.Time) Metadata {
	primary := in.Primary.Description
	meta := Metadata{
		Title:             Title,
		RequestingUser:    requestingUser,
		RequestParameters: in.Params,
		StationID:         primary.LocationIdentifier,
		StationName:       in.Location.Name,
		Timezone:          timezoneName(primary.UtcOffset),
		PrimaryParameter:  primary.Parameter,
		PrimaryUnit:       primary.Unit,
		PrimaryLabel:      primary.Identifier,
		GeneratedAt:       generatedAt,
	}

	if in.Upchain != nil {
		meta.UpchainLabel = in.Upchain.Description.Identifier
		meta.UpchainParameter = in.Upchain.Description.Parameter
		meta.UpchainUnit = in.Upchain.Description.Unit
	}
	if in.Derived != nil {
		meta.DvLabel = in.Derived.Description.Identifier
		meta.DvComputation = in.Derived.Description.ComputationIdentifier
		meta.DvParameter = in.Derived.Description.Parameter
		meta.DvUnit = in.Derived.Description.Unit
	}
	return meta
}

// timezoneName renders a UTC offset in hours as a POSIX Etc zone, whose sign
// is inverted: UTC-5 is Etc/GMT+5.
func timezoneName(hours float64) string {
	if hours == 0 {
		return "Etc/GMT"
	}
	if hours != math.Trunc(hours) {
		minutes := int(math.Round(math.Abs(hours) * 60))
		sign := '-'
		if hours < 0 {
			sign = '+'
		}
		return fmt.Sprintf("Etc/GMT%c%d:%02d", sign, minutes/60, minutes%60)
	}
	return fmt.Sprintf("Etc/GMT%+d", -int(hours))
}

func withQualifierMetadata(meta Metadata, lookup map[string]source.QualifierMetadata) Metadata {
	if len(lookup) == 0 {
		return meta
	}
	meta.QualifierMetadata = lookup
	return meta
}
