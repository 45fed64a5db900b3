package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"continuous-futures/internal/app"
)

var (
	showProduct string
	showLimit   int
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display a product's most recent stored closes",
	RunE: func(cmd *cobra.Command, args []string) error {
		if showProduct == "" {
			return fmt.Errorf("--product must be provided")
		}
		if showLimit <= 0 {
			return fmt.Errorf("--limit must be greater than zero")
		}

		opts := app.ShowOptions{
			Product: showProduct,
			Limit:   showLimit,
		}

		return getApp().Show(cmd.Context(), opts)
	},
}

func init() {
	showCmd.Flags().StringVar(&showProduct, "product", "", "Product symbol")
	showCmd.Flags().IntVar(&showLimit, "limit", 20, "Number of closes to display")
}
