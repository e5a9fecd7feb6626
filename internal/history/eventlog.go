package history

import (
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// EventLog produces raw textual change events from the system log for a
// predicate and trailing time window. The engine owns parsing; the
// adapter only returns lines.
type EventLog interface {
	Query(predicate string, window time.Duration) ([]string, error)
}

// LogShow implements EventLog by shelling out to log(1).
type LogShow struct{}

// NewEventLog returns the real log-show-backed adapter.
func NewEventLog() *LogShow {
	return &LogShow{}
}

func (l *LogShow) Query(predicate string, window time.Duration) ([]string, error) {
	last := fmt.Sprintf("%dm", int(window.Minutes()))

	cmd := exec.Command("log", "show",
		"--style", "syslog",
		"--last", last,
		"--predicate", predicate)
	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return nil, fmt.Errorf("log show failed: %w (stderr: %s)",
				err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, fmt.Errorf("log show failed: %w", err)
	}

	var lines []string
	for _, line := range strings.Split(string(output), "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines, nil
}

// predicateFor builds the log-show predicate matching preference writes
// for one domain.
func predicateFor(domain string) string {
	return fmt.Sprintf(`process == "cfprefsd" AND eventMessage CONTAINS "%s"`, domain)
}
