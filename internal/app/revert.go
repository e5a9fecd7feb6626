package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ashgrove-systems/prefsafe/internal/output"
)

var (
	revertFlagDomain string
	revertFlagKey    string
	revertFlagWindow int
	revertFlagYes    bool
)

var revertCmd = &cobra.Command{
	Use:   "revert",
	Short: "Revert settings to system defaults",
	Long: `Revert tracked settings to their system defaults, either one key at a
time or everything touched within a recent window.

Key mode (--domain and --key) deletes one preference key and restarts
only the service owning that domain.

Window mode (--window) deletes every tracked domain with at least one
change in the trailing window — whole domains, back to factory
defaults. Unlike 'restore', this takes NO safety snapshot: it is a
blunt bulk revert, which is why it asks for confirmation. Run
'prefsafe backup' first if you want a way back.`,
	Example: `  prefsafe revert --domain com.apple.dock --key autohide
  prefsafe revert --window 2
  prefsafe revert --window 2 --yes`,
	RunE: runRevert,
}

func init() {
	revertCmd.Flags().StringVar(&revertFlagDomain, "domain", "", "domain of the key to revert")
	revertCmd.Flags().StringVar(&revertFlagKey, "key", "", "key to revert to the system default")
	revertCmd.Flags().IntVar(&revertFlagWindow, "window", 0, "revert every domain touched in the trailing window (hours)")
	revertCmd.Flags().BoolVar(&revertFlagYes, "yes", false, "skip confirmation prompt")
}

func runRevert(cmd *cobra.Command, args []string) error {
	keyMode := revertFlagDomain != "" || revertFlagKey != ""
	windowMode := revertFlagWindow > 0

	switch {
	case keyMode && windowMode:
		return fmt.Errorf("--domain/--key and --window are mutually exclusive")
	case keyMode && (revertFlagDomain == "" || revertFlagKey == ""):
		return fmt.Errorf("key mode needs both --domain and --key")
	case !keyMode && !windowMode:
		return fmt.Errorf("nothing to do: pass --domain/--key or --window\n\nSee 'prefsafe revert --help'")
	}

	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.close()

	engine := e.historyEngine()

	if keyMode {
		result, err := engine.RevertKey(revertFlagDomain, revertFlagKey)
		if err != nil {
			return fmt.Errorf("revert failed: %w", err)
		}
		fmt.Printf("✓ %s %s reverted to system default (was: %s)\n",
			result.Domain, result.Key, result.OldValue)
		fmt.Printf("  restarted: %s\n", result.Service)
		return nil
	}

	if !revertFlagYes {
		prompt := fmt.Sprintf(
			"Factory-reset every tracked domain changed in the last %dh? No safety snapshot is taken.",
			revertFlagWindow)
		if !confirm(prompt) {
			fmt.Println("Revert cancelled.")
			return nil
		}
	}

	spinner := output.NewSpinner("Reverting changed domains...")
	spinner.Start()
	report, err := engine.RevertWindow(revertFlagWindow)
	spinner.Stop()
	if err != nil {
		return fmt.Errorf("revert failed: %w", err)
	}

	if report.Restored == 0 && report.Failed == 0 {
		fmt.Println("No tracked domain changed in this window; nothing reverted.")
		return nil
	}
	fmt.Print(output.RenderReport(report))
	return nil
}
