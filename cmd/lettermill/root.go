package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the Lettermill CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lettermill",
		Short: "Lettermill - a newsletter delivery backend",
		Long: `Lettermill runs the newsletter backend: subscription intake with
email confirmation, and the authenticated admin surface for managing it.`,
	}

	// Global flag for config file path
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (default: XDG config dir)")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())

	return cmd
}
