package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"continuous-futures/internal/app"
	"continuous-futures/internal/series"
)

var (
	exportProduct   string
	exportFrom      string
	exportTo        string
	exportPNGPath   string
	exportCSVPath   string
	exportMaxPoints int
	exportVolPeriod int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a stored continuous series with its historical volatility as CSV and/or PNG",
	RunE: func(cmd *cobra.Command, args []string) error {
		if exportProduct == "" {
			return fmt.Errorf("--product must be provided")
		}

		opts := app.ExportOptions{
			Product:   exportProduct,
			PNGPath:   exportPNGPath,
			CSVPath:   exportCSVPath,
			MaxPoints: exportMaxPoints,
			VolPeriod: exportVolPeriod,
		}

		if exportFrom != "" {
			from, err := series.ParseDate(exportFrom)
			if err != nil {
				return fmt.Errorf("invalid --from value: %w", err)
			}
			opts.From = &from
		}

		if exportTo != "" {
			to, err := series.ParseDate(exportTo)
			if err != nil {
				return fmt.Errorf("invalid --to value: %w", err)
			}
			opts.To = &to
		}

		return getApp().Export(cmd.Context(), opts)
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportProduct, "product", "", "Product symbol to export")
	exportCmd.Flags().StringVar(&exportFrom, "from", "", "First date (YYYY-MM-DD, inclusive)")
	exportCmd.Flags().StringVar(&exportTo, "to", "", "Last date (YYYY-MM-DD, inclusive)")
	exportCmd.Flags().StringVar(&exportPNGPath, "png", "", "Path to write PNG chart")
	exportCmd.Flags().StringVar(&exportCSVPath, "csv", "", "Path to write CSV data")
	exportCmd.Flags().IntVar(&exportMaxPoints, "max-points", 0, "Maximum data points to export (defaults to config)")
	exportCmd.Flags().IntVar(&exportVolPeriod, "vol-period", 0, "Historical volatility window in trading days (defaults to config)")
}
