package cmd

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Preview changes without applying them",
	Long:  `Connects to every selected host and reports whether its certificate would be replaced. Nothing is backed up or uploaded.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		pterm.DefaultHeader.Println("certsync Plan: Dry Run")
		return runSync(cmd, true)
	},
}

func init() {
	rootCmd.AddCommand(planCmd)
	addSelectionFlags(planCmd)
}
