package main

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "muniadmin",
		Short: "Municipal administration back office",
		Long: `muniadmin serves the authorization API of the municipal back office
seeds its permission catalog and role matrix, and runs the background
jobs that keep persisted grants aligned with that matrix.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewSeedCmd())
	cmd.AddCommand(NewWorkerCmd())

	return cmd
}
