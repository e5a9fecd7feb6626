package app

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ashgrove-systems/prefsafe/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Journal live preference changes as they happen",
	Long: `Watch the preferences directory for writes to the tracked domains'
plist files and record each change in the operation journal.

The system log only retains events for a limited window; running watch
gives 'prefsafe status' a local record of when tracked settings
changed, independent of that window.

Runs in the foreground; stop with Ctrl+C.`,
	Example: `  prefsafe watch`,
	RunE:    runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.close()

	w, err := watcher.New(e.journal, e.cfg.PreferencesDir, e.cfg.TrackedDomains, e.log)
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := w.Start(); err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	fmt.Printf("Watching %s for changes to %d tracked domains. Ctrl+C to stop.\n",
		e.cfg.PreferencesDir, len(e.cfg.TrackedDomains))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	fmt.Println("\nStopping watcher...")
	return w.Stop()
}
