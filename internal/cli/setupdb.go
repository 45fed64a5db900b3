package cli

import (
	"github.com/spf13/cobra"
)

var setupDBCmd = &cobra.Command{
	Use:   "setup-db",
	Short: "Create the schema and seed vendor and product rows",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().SetupDB(cmd.Context())
	},
}
