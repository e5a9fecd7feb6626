package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ashgrove-systems/prefsafe/internal/output"
)

var (
	historyFlagHours int
	historyFlagOps   bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show what changed recently in the tracked domains",
	Long: `Query the system log for preference writes to the tracked domains
within a trailing time window and group them per domain.

This is read-only: nothing is modified. Use 'prefsafe revert' to act on
what you see here.

With --ops, show prefsafe's own operation journal instead: every
backup, restore, and revert this tool has run, with per-domain
outcomes.`,
	Example: `  prefsafe history             # last 6 hours
  prefsafe history --hours 24  # last day
  prefsafe history --ops       # prefsafe's own operations`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyFlagHours, "hours", 6, "trailing window in hours")
	historyCmd.Flags().BoolVar(&historyFlagOps, "ops", false, "show the operation journal instead of system changes")
}

func runHistory(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.close()

	if historyFlagOps {
		ops, err := e.journal.RecentOperations(20)
		if err != nil {
			return fmt.Errorf("failed to read operation journal: %w", err)
		}
		if len(ops) == 0 {
			fmt.Println("No operations journaled yet.")
			return nil
		}
		for _, op := range ops {
			fmt.Printf("%s  %-13s %-30s ok=%d failed=%d\n",
				op.StartedAt.Format("2006-01-02 15:04:05"),
				op.Kind, op.Target, op.Succeeded, op.Failed)
		}
		return nil
	}

	spinner := output.NewSpinner(fmt.Sprintf("Querying system log (last %dh)...", historyFlagHours))
	spinner.Start()
	groups, err := e.historyEngine().ChangesInWindow(historyFlagHours)
	spinner.Stop()
	if err != nil {
		return fmt.Errorf("history query failed: %w", err)
	}

	fmt.Print(output.RenderChangeTable(groups))
	return nil
}
