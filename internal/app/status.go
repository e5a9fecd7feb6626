package app

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ashgrove-systems/prefsafe/internal/snapstore"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show store, schedule, and recent activity",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.close()

	handles, err := e.store.List()
	if err != nil {
		return fmt.Errorf("failed to list snapshots: %w", err)
	}

	var regular, safety, profiles int
	for _, h := range handles {
		switch {
		case strings.HasPrefix(h.Name, snapstore.PreRestorePrefix):
			safety++
		case snapstore.IsProtected(h.Name):
			profiles++
		default:
			regular++
		}
	}

	fmt.Printf("Store:     %s\n", e.store.BaseDir())
	fmt.Printf("Snapshots: %d backups, %d safety, %d profiles\n", regular, safety, profiles)
	fmt.Printf("Tracked:   %d domains, %d kernel params\n",
		len(e.cfg.TrackedDomains), len(e.cfg.KernelParams))

	if interval, retain, err := e.store.Schedule(); err == nil {
		fmt.Printf("Schedule:  every %dh, retain %d\n", interval, retain)
	}
	if last, err := e.store.LastRun(); err == nil {
		if last.IsZero() {
			fmt.Println("Last run:  never")
		} else {
			fmt.Printf("Last run:  %s\n", last.Format("2006-01-02 15:04:05"))
		}
	}

	ops, err := e.journal.RecentOperations(5)
	if err != nil {
		return fmt.Errorf("failed to read operation journal: %w", err)
	}
	if len(ops) > 0 {
		fmt.Println("\nRecent operations:")
		for _, op := range ops {
			fmt.Printf("  %s  %-13s %-30s ok=%d failed=%d\n",
				op.StartedAt.Format("2006-01-02 15:04"),
				op.Kind, op.Target, op.Succeeded, op.Failed)
		}
	}

	events, err := e.journal.RecentPrefEvents(5)
	if err != nil {
		return fmt.Errorf("failed to read preference events: %w", err)
	}
	if len(events) > 0 {
		fmt.Println("\nRecent observed changes (watch):")
		for _, ev := range events {
			fmt.Printf("  %s  %s\n", ev.ObservedAt.Format("2006-01-02 15:04"), ev.Domain)
		}
	}
	return nil
}
