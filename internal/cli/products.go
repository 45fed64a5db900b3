package cli

import (
	"github.com/spf13/cobra"
)

var productsCmd = &cobra.Command{
	Use:   "products",
	Short: "List the built-in product catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Products()
	},
}
