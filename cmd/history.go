package cmd

import (
	"fmt"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/melih-ucgun/certsync/internal/config"
	"github.com/melih-ucgun/certsync/internal/state"
)

var historyCmd = &cobra.Command{
	Use:   "history [runID]",
	Short: "View recorded runs",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hm := state.NewHistoryManager(historyDir(cmd))

		if len(args) == 1 {
			tx, err := hm.GetTransaction(args[0])
			if err != nil {
				return err
			}
			printTransaction(tx)
			return nil
		}

		history, err := hm.LoadHistory()
		if err != nil {
			pterm.Error.Println("Failed to load history:", err)
			return err
		}

		if len(history) == 0 {
			pterm.Info.Println("No history found.")
			return nil
		}

		pterm.DefaultHeader.Println("Run History")

		tableData := [][]string{{"ID", "Date", "Status", "Hosts", "Updated"}}

		// Show latest first
		for i := len(history) - 1; i >= 0; i-- {
			tx := history[i]
			updated := 0
			for _, c := range tx.Changes {
				if c.Action == state.ActionUpdated {
					updated++
				}
			}
			status := statusStyle(tx.Status).Sprint(tx.Status)
			if tx.DryRun {
				status += " (dry run)"
			}

			tableData = append(tableData, []string{
				tx.ID,
				formatTimestamp(tx.Timestamp),
				status,
				fmt.Sprintf("%d", len(tx.Changes)),
				fmt.Sprintf("%d", updated),
			})
		}

		return pterm.DefaultTable.WithHasHeader().WithData(tableData).Render()
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
}

// historyDir reads history_dir from the config file if one can be loaded.
func historyDir(cmd *cobra.Command) string {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return ""
	}
	return cfg.HistoryDir
}

func statusStyle(status string) *pterm.Style {
	switch status {
	case state.StatusFailed:
		return pterm.NewStyle(pterm.FgRed)
	case state.StatusReverted:
		return pterm.NewStyle(pterm.FgYellow)
	default:
		return pterm.NewStyle(pterm.FgGreen)
	}
}

func formatTimestamp(ts string) string {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ts
	}
	return t.Format("2006-01-02 15:04:05")
}

func printTransaction(tx *state.Transaction) {
	pterm.DefaultHeader.Printf("Run %s", tx.ID)
	pterm.Printf("Date:   %s\nStatus: %s\n\n", formatTimestamp(tx.Timestamp), statusStyle(tx.Status).Sprint(tx.Status))

	rows := [][]string{{"Host", "Action", "Target", "Backup", "Fingerprint"}}
	for _, c := range tx.Changes {
		backup := c.BackupPath
		if backup == "" {
			backup = "-"
		}
		fp := c.Fingerprint
		if len(fp) > 16 {
			fp = fp[:16]
		}
		rows = append(rows, []string{c.Host, c.Action, c.Target, backup, fp})
	}
	pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
}
