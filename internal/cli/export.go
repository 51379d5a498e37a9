package cli

import (
	"github.com/spf13/cobra"

	"hydro-extremes/internal/app"
)

var (
	exportRequest   requestFlags
	exportPNGPath   string
	exportCSVPath   string
	exportMaxPoints int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export report extremes as CSV and/or the series as a PNG chart",
	RunE: func(cmd *cobra.Command, args []string) error {
		params, err := exportRequest.params()
		if err != nil {
			return err
		}

		opts := app.ExportOptions{
			Params:    params,
			User:      exportRequest.user,
			PNGPath:   exportPNGPath,
			CSVPath:   exportCSVPath,
			MaxPoints: exportMaxPoints,
		}

		return getApp().Export(cmd.Context(), opts)
	},
}

func init() {
	exportRequest.register(exportCmd.Flags())
	exportCmd.Flags().StringVar(&exportPNGPath, "png", "", "Path to write PNG chart")
	exportCmd.Flags().StringVar(&exportCSVPath, "csv", "", "Path to write CSV extremes")
	exportCmd.Flags().IntVar(&exportMaxPoints, "max-points", 0, "Maximum points charted per series (defaults to config)")
}
