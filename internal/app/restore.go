package app

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ashgrove-systems/prefsafe/internal/output"
)

var restoreFlagYes bool

var restoreCmd = &cobra.Command{
	Use:   "restore <name | latest>",
	Short: "Restore settings from a snapshot",
	Long: `Apply a stored snapshot back onto the live system.

Before anything is applied, the current settings are captured into a
safety snapshot (pre_restore_*), so the restore itself can be undone.
Domains are applied independently: one failure does not stop the rest,
and the affected UI services are restarted once at the end.

Arguments:
  name    the snapshot name, as shown by 'prefsafe backup --list'
  latest  the most recently created snapshot`,
	Example: `  prefsafe restore latest
  prefsafe restore 2024-05-01_12-00-00
  prefsafe restore profiles/gaming --yes`,
	Args: cobra.ExactArgs(1),
	RunE: runRestore,
}

func init() {
	restoreCmd.Flags().BoolVar(&restoreFlagYes, "yes", false, "skip confirmation prompt")
}

func runRestore(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.close()

	name := args[0]
	if name == "latest" {
		handles, err := e.store.List()
		if err != nil {
			return fmt.Errorf("failed to list snapshots: %w", err)
		}
		if len(handles) == 0 {
			fmt.Fprintln(os.Stderr, "Error: no snapshots available.")
			fmt.Fprintln(os.Stderr, "\nRun 'prefsafe backup' to create one.")
			os.Exit(1)
		}
		name = handles[len(handles)-1].Name
		fmt.Printf("Using latest snapshot: %s\n", name)
	}

	if !restoreFlagYes {
		if !confirm(fmt.Sprintf("Restore snapshot %s over the current settings?", name)) {
			fmt.Println("Restore cancelled.")
			return nil
		}
	}

	spinner := output.NewSpinner("Restoring snapshot...")
	spinner.Start()
	report, err := e.manager().Restore(name)
	spinner.Stop()

	if report != nil {
		fmt.Print(output.RenderReport(report))
	}
	if err != nil {
		return fmt.Errorf("restore failed: %w", err)
	}
	return nil
}
