package app

import (
	"github.com/spf13/cobra"
)

var (
	flagBaseDir string

	// RootCmd is the root command for prefsafe
	RootCmd = &cobra.Command{
		Use:   "prefsafe",
		Short: "Snapshot, restore, and audit macOS settings",
		Long: `prefsafe tracks a fixed set of macOS preference domains and kernel
tunables, snapshots them into named backups, restores them with an
automatic safety backup, and reconstructs what changed recently from
the system log.

Every restore captures the current settings first (pre_restore_*
snapshots), so a bad restore is always one command away from undone.

Examples:
  # Snapshot the tracked domains now
  prefsafe backup

  # Keep a named profile (never pruned)
  prefsafe backup --name gaming

  # List stored snapshots
  prefsafe backup --list

  # Restore the most recent snapshot
  prefsafe restore latest

  # What changed in the last 6 hours?
  prefsafe history --hours 6

  # Revert one key to the system default
  prefsafe revert --domain com.apple.dock --key autohide

  # Factory-reset everything touched in the last 2 hours
  prefsafe revert --window 2`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	RootCmd.PersistentFlags().StringVar(&flagBaseDir, "base-dir", "", "snapshot store directory (default: ~/.prefsafe)")

	RootCmd.SuggestionsMinimumDistance = 2

	RootCmd.AddCommand(backupCmd)
	RootCmd.AddCommand(restoreCmd)
	RootCmd.AddCommand(historyCmd)
	RootCmd.AddCommand(revertCmd)
	RootCmd.AddCommand(pruneCmd)
	RootCmd.AddCommand(statusCmd)
	RootCmd.AddCommand(watchCmd)
}

// Execute runs the root command
func Execute() error {
	return RootCmd.Execute()
}
