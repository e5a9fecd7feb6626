package history

import (
	"strings"
	"time"
)

// ChangeEvent is one parsed preference write from the system log.
// Events are ephemeral: re-derived on every query, never persisted.
type ChangeEvent struct {
	Domain    string
	Key       string
	Timestamp time.Time
	Raw       string
}

// Timestamp layouts seen in log-show syslog output. The fractional part
// varies between macOS releases.
var timestampLayouts = []string{
	"2006-01-02 15:04:05.000000-0700",
	"2006-01-02 15:04:05.000-0700",
	"2006-01-02 15:04:05-0700",
}

// parseLine extracts a ChangeEvent from one syslog-style line, e.g.
//
//	2024-05-01 12:00:03.123456+0200 host cfprefsd[88]: (CFPrefs) wrote the key "autohide" in com.apple.dock
//
// Lines without a leading timestamp are headers or continuations and are
// skipped. The key is best-effort: a write event whose key cannot be
// derived still counts as a change to the domain.
func parseLine(domain, line string) (ChangeEvent, bool) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return ChangeEvent{}, false
	}

	raw := fields[0] + " " + fields[1]
	var ts time.Time
	parsed := false
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			ts = t
			parsed = true
			break
		}
	}
	if !parsed {
		return ChangeEvent{}, false
	}

	return ChangeEvent{
		Domain:    domain,
		Key:       extractKey(fields),
		Timestamp: ts,
		Raw:       strings.TrimSpace(line),
	}, true
}

// extractKey returns the token following "key", stripped of quoting.
func extractKey(fields []string) string {
	for i, f := range fields {
		if f == "key" && i+1 < len(fields) {
			return strings.Trim(fields[i+1], `"'.,;`)
		}
	}
	return ""
}
