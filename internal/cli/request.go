package cli

import (
	"fmt"

	"github.com/spf13/pflag"

	"hydro-extremes/internal/report"
)

// requestFlags are the series and date flags shared by report and export.
type requestFlags struct {
	primary string
	upchain string
	derived string
	from    string
	to      string
	user    string
}

func (f *requestFlags) register(flags *pflag.FlagSet) {
	flags.StringVar(&f.primary, "primary", "", "Primary time series unique id (required)")
	flags.StringVar(&f.upchain, "upchain", "", "Upchain time series unique id")
	flags.StringVar(&f.derived, "derived", "", "Derived (daily) time series unique id")
	flags.StringVar(&f.from, "from", "", "Start date YYYY-MM-DD, inclusive (required)")
	flags.StringVar(&f.to, "to", "", "End date YYYY-MM-DD, inclusive (required)")
	flags.StringVar(&f.user, "user", "", "Requesting user recorded in report metadata (defaults to config)")
}

func (f *requestFlags) params() (report.RequestParameters, error) {
	from, err := report.ParseDate(f.from)
	if err != nil {
		return report.RequestParameters{}, fmt.Errorf("invalid --from value: %w", err)
	}
	to, err := report.ParseDate(f.to)
	if err != nil {
		return report.RequestParameters{}, fmt.Errorf("invalid --to value: %w", err)
	}
	params := report.RequestParameters{
		PrimaryTimeseriesIdentifier: f.primary,
		UpchainTimeseriesIdentifier: f.upchain,
		DerivedTimeseriesIdentifier: f.derived,
		StartDate:                   from,
		EndDate:                     to,
	}
	if err := params.Validate(); err != nil {
		return report.RequestParameters{}, err
	}
	return params, nil
}
