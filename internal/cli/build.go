package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"continuous-futures/internal/app"
)

var (
	buildProducts []string
	buildFromYear int
	buildToYear   int
	buildDryRun   bool
	buildWorkers  int
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Fetch, chain and store continuous series once",
	RunE: func(cmd *cobra.Command, args []string) error {
		if buildFromYear < 0 || buildToYear < 0 {
			return fmt.Errorf("--from-year and --to-year must be positive")
		}
		if buildWorkers < 0 {
			return fmt.Errorf("--workers cannot be negative")
		}

		opts := app.BuildOptions{
			Products: buildProducts,
			FromYear: buildFromYear,
			ToYear:   buildToYear,
			DryRun:   buildDryRun,
			Workers:  buildWorkers,
		}

		report, err := getApp().Build(cmd.Context(), opts)
		fmt.Fprintf(cmd.OutOrStdout(), "built: %v\nwithheld: %v\n", report.Built, report.Withheld)
		return err
	},
}

func init() {
	buildCmd.Flags().StringSliceVar(&buildProducts, "products", nil, "Product symbols to build (defaults to build.products, then the whole catalog)")
	buildCmd.Flags().IntVar(&buildFromYear, "from-year", 0, "First contract year (defaults to build.start_year)")
	buildCmd.Flags().IntVar(&buildToYear, "to-year", 0, "Last contract year (defaults to build.end_year)")
	buildCmd.Flags().BoolVar(&buildDryRun, "dry-run", false, "Build without writing to storage")
	buildCmd.Flags().IntVar(&buildWorkers, "workers", 0, "Number of products built concurrently (defaults to build.workers)")
}
