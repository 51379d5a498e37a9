package cli

import (
	"github.com/spf13/cobra"

	"hydro-extremes/internal/app"
)

var (
	reportRequest requestFlags
	reportFormat  string
	reportOut     string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Build an extremes report for a date range",
	RunE: func(cmd *cobra.Command, args []string) error {
		params, err := reportRequest.params()
		if err != nil {
			return err
		}

		opts := app.ReportOptions{
			Params:  params,
			User:    reportRequest.user,
			Format:  reportFormat,
			OutPath: reportOut,
		}

		return getApp().Report(cmd.Context(), opts)
	},
}

func init() {
	reportRequest.register(reportCmd.Flags())
	reportCmd.Flags().StringVar(&reportFormat, "format", "", "Output format: json or table (defaults to config)")
	reportCmd.Flags().StringVar(&reportOut, "out", "", "Write the report to this file instead of stdout")
}
