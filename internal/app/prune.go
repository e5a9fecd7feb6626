package app

import (
	"fmt"

	"github.com/spf13/cobra"
)

var pruneFlagKeep int

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete old snapshots beyond the retention limit",
	Long: `Delete all but the N most recent snapshots.

Safety snapshots (pre_restore_*) and named profiles (profiles/*) are
never pruned. Pruning only ever runs from this command or from a
scheduled 'backup --scheduled' pass, never implicitly during a restore.`,
	Example: `  prefsafe prune           # keep the configured count
  prefsafe prune --keep 5  # keep the 5 most recent`,
	RunE: runPrune,
}

func init() {
	pruneCmd.Flags().IntVar(&pruneFlagKeep, "keep", 0, "snapshots to keep (default: configured retain_count)")
}

func runPrune(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.close()

	keep := pruneFlagKeep
	if keep <= 0 {
		keep = e.cfg.RetainCount
	}

	deleted, err := e.store.Prune(keep)
	if err != nil {
		return fmt.Errorf("prune failed: %w", err)
	}

	if len(deleted) == 0 {
		fmt.Printf("Nothing to prune; %d or fewer snapshots stored.\n", keep)
		return nil
	}
	fmt.Printf("✓ Pruned %d snapshots:\n", len(deleted))
	for _, name := range deleted {
		fmt.Printf("  - %s\n", name)
	}
	return nil
}
