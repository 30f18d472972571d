package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/melih-ucgun/certsync/internal/core"
	"github.com/melih-ucgun/certsync/internal/state"
)

var rollbackCmd = &cobra.Command{
	Use:   "rollback [runID]",
	Short: "Restore the certificates replaced by a run",
	Long:  `Uploads the backups taken during a run back to each host that was updated.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		txID := args[0]
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		hm := state.NewHistoryManager(cfg.HistoryDir)

		tx, err := hm.GetTransaction(txID)
		if err != nil {
			pterm.Error.Println(err)
			return err
		}
		if tx.DryRun {
			return fmt.Errorf("run %s was a dry run, nothing to roll back", txID)
		}

		pterm.DefaultHeader.Printf("Rolling Back: %s", txID)
		pterm.Warning.Println("This uploads the backed up certificates over the current ones.")

		confirmed, _ := cmd.Flags().GetBool("yes")
		if !confirmed {
			result, _ := pterm.DefaultInteractiveConfirm.Show("Are you sure?")
			if !result {
				pterm.Info.Println("Rollback cancelled.")
				return nil
			}
		}

		connect := func(ctx context.Context, hostName string) (core.Session, error) {
			h, err := findHost(cfg, hostName)
			if err != nil {
				return nil, err
			}
			return settings(cfg).Connect(ctx, h)
		}

		restored, rollbackErr := rollbackChanges(cmd.Context(), tx.Changes, connect)

		if rollbackErr == nil {
			if err := hm.UpdateStatus(txID, state.StatusReverted); err != nil {
				pterm.Warning.Printf("Failed to update history: %v\n", err)
			}
		}
		if len(restored) > 0 {
			record := state.NewTransaction()
			if rollbackErr != nil {
				record.Status = state.StatusFailed
			}
			record.Changes = restored
			if err := hm.AddTransaction(record); err != nil {
				pterm.Warning.Printf("Failed to record history: %v\n", err)
			}
		}
		return rollbackErr
	},
}

func init() {
	rootCmd.AddCommand(rollbackCmd)
	rollbackCmd.Flags().BoolP("yes", "y", false, "Confirm rollback automatically")
}

type connectFunc func(ctx context.Context, hostName string) (core.Session, error)

// rollbackChanges restores every updated change, newest first, and returns
// the restored ones. Changes that were not updates are skipped.
func rollbackChanges(ctx context.Context, changes []state.TransactionChange, connect connectFunc) ([]state.TransactionChange, error) {
	var restored []state.TransactionChange
	var errs []error
	for i := len(changes) - 1; i >= 0; i-- {
		change := changes[i]
		if change.Action != state.ActionUpdated {
			continue
		}
		pterm.Info.Printf("Restoring %s:%s...\n", change.Host, change.Target)

		if err := revertChange(ctx, change, connect); err != nil {
			pterm.Error.Printf("Failed to restore %s: %v\n", change.Host, err)
			errs = append(errs, fmt.Errorf("%s: %w", change.Host, err))
			continue
		}
		pterm.Success.Printf("Restored %s\n", change.Host)
		change.Action = state.ActionRolledBack
		restored = append(restored, change)
	}
	return restored, errors.Join(errs...)
}

// revertChange uploads the change's backup over its target. The backup is
// checked before any connection is made.
func revertChange(ctx context.Context, change state.TransactionChange, connect connectFunc) error {
	if change.BackupPath == "" {
		return fmt.Errorf("no backup available, cannot safely revert")
	}
	if _, err := os.Stat(change.BackupPath); err != nil {
		return fmt.Errorf("backup file not found: %s", change.BackupPath)
	}

	session, err := connect(ctx, change.Host)
	if err != nil {
		return err
	}
	defer session.Close()

	_, err = session.WriteFile(change.BackupPath, change.Target)
	return err
}
