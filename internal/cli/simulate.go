package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

var simulateProduct string

var simulateCmd = &cobra.Command{
	Use:   "simulate-alert",
	Short: "Send a sample withheld-product alert through the configured channel",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulateProduct == "" {
			return errors.New("--product must be provided")
		}
		return getApp().SimulateAlert(cmd.Context(), simulateProduct)
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulateProduct, "product", "CL", "Product symbol named in the alert")
}
