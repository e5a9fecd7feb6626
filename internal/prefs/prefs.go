// Package prefs is the boundary between prefsafe and the macOS
// preference machinery. It defines narrow interfaces for the defaults
// database, kernel tunables, and UI-service restarts, plus the real
// implementations that shell out to the system commands. The engines
// depend only on the interfaces so their ordering and failure-tolerance
// logic is testable against fakes.
package prefs

import "errors"

// ErrNotFound is returned when a domain or key does not exist in the
// preference store.
var ErrNotFound = errors.New("not found")

// ServiceAllUI names the shared restart signal sent after a full restore
// or bulk revert: every UI process with a tracked domain is restarted.
const ServiceAllUI = "all-ui"

// Defaults reads and writes whole preference domains and single keys.
type Defaults interface {
	// Export serializes the full contents of a domain.
	Export(domain string) ([]byte, error)

	// Import replaces the contents of a domain with a previously
	// exported record.
	Import(domain string, data []byte) error

	// ReadKey returns the current value of one key, or ErrNotFound.
	ReadKey(domain, key string) (string, error)

	// DeleteKey removes one key, reverting it to the system default.
	DeleteKey(domain, key string) error

	// DeleteDomain removes a whole domain, reverting every key in it.
	DeleteDomain(domain string) error
}

// Sysctl reads and writes kernel tunables.
type Sysctl interface {
	Get(name string) (string, error)
	Set(name, value string) error
}

// Restarter signals the UI services owning mutated domains so applied
// changes take visible effect. Restart failures are logged by callers,
// never treated as fatal.
type Restarter interface {
	Restart(service string) error
}
