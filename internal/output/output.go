// Package output renders prefsafe's terminal output: snapshot and
// change-history tables, operation reports, and a spinner for the slow
// external commands. ASCII tables with ANSI color, TTY-gated.
package output

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/ashgrove-systems/prefsafe/internal/history"
	"github.com/ashgrove-systems/prefsafe/internal/snapshots"
	"github.com/ashgrove-systems/prefsafe/internal/snapstore"
)

const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorGray   = "\033[90m"
)

// IsColorEnabled returns true if ANSI color codes should be emitted.
// It checks that os.Stdout is a TTY and that NO_COLOR is not set.
func IsColorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd())
}

func colorize(color, s string) string {
	if !IsColorEnabled() {
		return s
	}
	return color + s + colorReset
}

// RenderSnapshotTable renders the stored snapshots, oldest first.
func RenderSnapshotTable(handles []*snapstore.Handle) string {
	if len(handles) == 0 {
		return "No snapshots found.\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-42s %-20s %s\n", "Name", "Created", "Kind"))
	sb.WriteString(strings.Repeat("─", 72))
	sb.WriteString("\n")

	for _, h := range handles {
		kind := "backup"
		switch {
		case strings.HasPrefix(h.Name, snapstore.PreRestorePrefix):
			kind = colorize(colorYellow, "safety")
		case strings.HasPrefix(h.Name, snapstore.ProfilePrefix):
			kind = colorize(colorGreen, "profile")
		}
		sb.WriteString(fmt.Sprintf("%-42s %-20s %s\n",
			truncate(h.Name, 42),
			h.CreatedAt.Format("2006-01-02 15:04:05"),
			kind))
	}
	return sb.String()
}

// RenderChangeTable renders the grouped change history of one window.
func RenderChangeTable(groups []history.DomainChanges) string {
	if len(groups) == 0 {
		return "No changes in this window.\n"
	}

	var sb strings.Builder
	for _, group := range groups {
		sb.WriteString(fmt.Sprintf("%s (%d changes)\n",
			colorize(colorGreen, group.Domain), len(group.Events)))
		for _, ev := range group.Events {
			key := ev.Key
			if key == "" {
				key = colorize(colorGray, "(key unknown)")
			}
			sb.WriteString(fmt.Sprintf("  %s  %s\n",
				ev.Timestamp.Format("15:04:05"), key))
		}
	}
	return sb.String()
}

// RenderReport renders a restore or revert report with its three-way
// outcome.
func RenderReport(r *snapshots.Report) string {
	var sb strings.Builder

	switch {
	case r.Failed == 0 && r.Restored > 0:
		sb.WriteString(colorize(colorGreen, fmt.Sprintf("✓ %d domains applied, no failures\n", r.Restored)))
	case r.Restored == 0 && r.Failed > 0:
		sb.WriteString(colorize(colorRed, fmt.Sprintf("✗ all %d domains failed\n", r.Failed)))
	case r.Failed > 0:
		sb.WriteString(colorize(colorYellow,
			fmt.Sprintf("⚠ %d domains applied, %d failed\n", r.Restored, r.Failed)))
	default:
		sb.WriteString("Nothing to apply.\n")
	}

	for _, domain := range r.FailedDomains {
		sb.WriteString(fmt.Sprintf("  failed: %s\n", domain))
	}
	for _, warning := range r.Warnings {
		sb.WriteString(colorize(colorYellow, fmt.Sprintf("  warning: %s\n", warning)))
	}
	return sb.String()
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

// Spinner displays an animated indicator for indeterminate operations.
// Off-TTY it prints the message once and stays silent.
type Spinner struct {
	message string
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewSpinner creates a spinner with the given message.
func NewSpinner(message string) *Spinner {
	return &Spinner{
		message: message,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

// Start begins the spinner animation.
func (s *Spinner) Start() {
	if !isatty.IsTerminal(os.Stdout.Fd()) {
		fmt.Println(s.message)
		close(s.doneCh)
		return
	}

	go func() {
		defer close(s.doneCh)
		frames := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
		i := 0
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-s.stopCh:
				fmt.Printf("\r%s\r", strings.Repeat(" ", len(s.message)+2))
				return
			case <-ticker.C:
				fmt.Printf("\r%s %s", frames[i%len(frames)], s.message)
				i++
			}
		}
	}()
}

// Stop halts the spinner and clears its line.
func (s *Spinner) Stop() {
	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}
	<-s.doneCh
}
