package app

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ashgrove-systems/prefsafe/internal/output"
	"github.com/ashgrove-systems/prefsafe/internal/snapstore"
)

var (
	backupFlagName      string
	backupFlagList      bool
	backupFlagScheduled bool
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Snapshot the tracked settings into a new backup",
	Long: `Capture the current value of every tracked preference domain and
kernel tunable into a named, timestamped snapshot.

A domain whose export fails is logged and omitted; capture never aborts
because one domain failed. Live system state is not modified.

Names:
  default          the creation timestamp, e.g. 2024-05-01_12-00-00
  --name gaming    a profile (profiles/gaming), exempt from pruning`,
	Example: `  prefsafe backup                # timestamped snapshot
  prefsafe backup --name gaming  # named profile
  prefsafe backup --list         # list stored snapshots
  prefsafe backup --scheduled    # maintenance run: capture, then prune`,
	RunE: runBackup,
}

func init() {
	backupCmd.Flags().StringVar(&backupFlagName, "name", "", "store as a named profile instead of a timestamp")
	backupCmd.Flags().BoolVar(&backupFlagList, "list", false, "list stored snapshots")
	backupCmd.Flags().BoolVar(&backupFlagScheduled, "scheduled", false, "maintenance run: capture, update last-run marker, prune")
}

func runBackup(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.close()

	if backupFlagList {
		handles, err := e.store.List()
		if err != nil {
			return fmt.Errorf("failed to list snapshots: %w", err)
		}
		fmt.Print(output.RenderSnapshotTable(handles))
		return nil
	}

	mgr := e.manager()

	if backupFlagScheduled {
		if due, last := scheduledRunDue(e); !due {
			fmt.Printf("Skipping: last scheduled run was %s, not due yet.\n",
				last.Format("2006-01-02 15:04:05"))
			return nil
		}
		_, retain, err := e.store.Schedule()
		if err != nil {
			retain = e.cfg.RetainCount
		}
		handle, report, err := mgr.Maintain(retain)
		if err != nil {
			return fmt.Errorf("scheduled backup failed: %w", err)
		}
		fmt.Printf("✓ Snapshot %s created (%d domains", handle.Name, report.Restored)
		if report.Failed > 0 {
			fmt.Printf(", %d failed", report.Failed)
		}
		fmt.Println(")")
		return nil
	}

	name := ""
	if backupFlagName != "" {
		name = snapstore.ProfilePrefix + backupFlagName
	}

	spinner := output.NewSpinner("Capturing tracked domains...")
	spinner.Start()
	handle, report, err := mgr.Capture(name)
	spinner.Stop()
	if err != nil {
		return fmt.Errorf("backup failed: %w", err)
	}

	fmt.Printf("✓ Snapshot %s created (%d domains", handle.Name, report.Restored)
	if report.Failed > 0 {
		fmt.Printf(", %d failed: %v", report.Failed, report.FailedDomains)
	}
	fmt.Println(")")
	for _, w := range report.Warnings {
		fmt.Printf("  warning: %s\n", w)
	}
	return nil
}

// scheduledRunDue reports whether the schedule interval has elapsed
// since the last maintenance run.
func scheduledRunDue(e *env) (bool, time.Time) {
	interval, _, err := e.store.Schedule()
	if err != nil || interval <= 0 {
		return true, time.Time{}
	}
	last, err := e.store.LastRun()
	if err != nil || last.IsZero() {
		return true, time.Time{}
	}
	if time.Since(last) >= time.Duration(interval)*time.Hour {
		return true, last
	}
	return false, last
}
