package cmd

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/melih-ucgun/certsync/internal/fleet"
	"github.com/melih-ucgun/certsync/internal/inventory"
	"github.com/melih-ucgun/certsync/internal/state"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Push the certificate to every selected host",
	Long:  `Backs up the remote certificate, compares it with the local one and uploads the local certificate where they differ.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		return runSync(cmd, dryRun)
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
	addSelectionFlags(syncCmd)
	syncCmd.Flags().BoolP("dry-run", "d", false, "report what would change without touching the devices")
}

func addSelectionFlags(cmd *cobra.Command) {
	cmd.Flags().StringSliceP("host", "H", nil, "limit the run to these hosts")
	cmd.Flags().String("when", "", "expression selecting hosts, e.g. 'Vars[\"site\"] == \"lab\"'")
	cmd.Flags().String("certificate", "", "local certificate, overrides the config file")
	cmd.Flags().String("backup", "", "backup directory, overrides the config file")
	cmd.Flags().Bool("no-history", false, "do not record the run in the history")
}

func runSync(cmd *cobra.Command, dryRun bool) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		pterm.Error.Println("Failed to load config:", err)
		return err
	}

	names, _ := cmd.Flags().GetStringSlice("host")
	when, _ := cmd.Flags().GetString("when")
	hosts, err := inventory.Select(cfg.Hosts, names, when)
	if err != nil {
		return err
	}
	if len(hosts) == 0 {
		pterm.Info.Println("No hosts selected.")
		return nil
	}

	f := fleet.NewFleetManager(hosts, settings(cfg))
	f.Certificate = cfg.Certificate
	f.BackupDir = cfg.Backup
	f.RemotePath = cfg.RemotePath
	f.DryRun = dryRun
	if v, _ := cmd.Flags().GetString("certificate"); v != "" {
		f.Certificate = v
	}
	if v, _ := cmd.Flags().GetString("backup"); v != "" {
		f.BackupDir = v
	}

	outcomes, runErr := f.Run(cmd.Context())

	if noHistory, _ := cmd.Flags().GetBool("no-history"); !noHistory && len(outcomes) > 0 {
		tx := fleet.Transaction(outcomes, f.RemotePath, dryRun)
		if err := state.NewHistoryManager(cfg.HistoryDir).AddTransaction(tx); err != nil {
			pterm.Warning.Printf("Failed to record history: %v\n", err)
		} else {
			pterm.Info.Printf("Recorded run %s\n", tx.ID)
		}
	}

	format, _ := cmd.Flags().GetString("output")
	if format == "" {
		pterm.Println()
		if err := fleet.PrintSummary(outcomes); err != nil {
			return err
		}
	}
	if err := renderOutcomes(cmd.OutOrStdout(), format, outcomes); err != nil {
		return err
	}
	if runErr != nil {
		return fmt.Errorf("sync incomplete: %w", runErr)
	}
	return nil
}
