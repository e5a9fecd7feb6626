package snapshots

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ashgrove-systems/prefsafe/internal/prefs"
	"github.com/ashgrove-systems/prefsafe/internal/snapstore"
	"github.com/ashgrove-systems/prefsafe/internal/store"
)

// Report summarizes a multi-domain operation. Callers can distinguish
// full success, partial success, and total failure from the counts.
type Report struct {
	Restored      int
	Failed        int
	FailedDomains []string
	Warnings      []string
}

// Outcome renders the three-way result for display.
func (r *Report) Outcome() string {
	switch {
	case r.Failed == 0:
		return "succeeded"
	case r.Restored == 0:
		return "failed entirely"
	default:
		return fmt.Sprintf("succeeded with %d failures", r.Failed)
	}
}

// Manager captures snapshots of the tracked domains and restores them.
type Manager struct {
	store     *snapstore.Store
	defaults  prefs.Defaults
	sysctl    prefs.Sysctl
	restarter prefs.Restarter
	journal   *store.Journal
	domains   []string
	params    []string
	log       *zap.Logger
}

// New creates a snapshot Manager. The journal may be nil, in which case
// operations are not journaled.
func New(st *snapstore.Store, defaults prefs.Defaults, sysctl prefs.Sysctl,
	restarter prefs.Restarter, journal *store.Journal,
	domains, params []string, log *zap.Logger) *Manager {

	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		store:     st,
		defaults:  defaults,
		sysctl:    sysctl,
		restarter: restarter,
		journal:   journal,
		domains:   domains,
		params:    params,
		log:       log,
	}
}

// Store returns the underlying snapshot store.
func (m *Manager) Store() *snapstore.Store {
	return m.store
}

// beginOp starts a journal entry, tolerating a nil or failing journal:
// an audit-trail problem must never block a backup or restore.
func (m *Manager) beginOp(kind, target string) string {
	if m.journal == nil {
		return ""
	}
	id, err := m.journal.BeginOperation(kind, target)
	if err != nil {
		m.log.Warn("failed to journal operation", zap.String("kind", kind), zap.Error(err))
		return ""
	}
	return id
}

func (m *Manager) journalItem(opID, item string, ok bool, itemErr error) {
	if m.journal == nil || opID == "" {
		return
	}
	msg := ""
	if itemErr != nil {
		msg = itemErr.Error()
	}
	if err := m.journal.AddItem(opID, item, ok, msg); err != nil {
		m.log.Warn("failed to journal item", zap.String("item", item), zap.Error(err))
	}
}

func (m *Manager) finishOp(opID string, succeeded, failed int) {
	if m.journal == nil || opID == "" {
		return
	}
	if err := m.journal.FinishOperation(opID, succeeded, failed); err != nil {
		m.log.Warn("failed to finish journaled operation", zap.Error(err))
	}
}
