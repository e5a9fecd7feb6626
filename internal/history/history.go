// Package history reconstructs what changed recently in the tracked
// preference domains by querying the system event log, and offers two
// reversion paths: one key back to its system default, or every domain
// touched inside a time window back to factory defaults.
package history

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ashgrove-systems/prefsafe/internal/config"
	"github.com/ashgrove-systems/prefsafe/internal/prefs"
	"github.com/ashgrove-systems/prefsafe/internal/snapshots"
	"github.com/ashgrove-systems/prefsafe/internal/store"
)

// DomainChanges groups the change events of one domain within a window.
type DomainChanges struct {
	Domain string
	Events []ChangeEvent
}

// RevertResult describes a single-key reversion.
type RevertResult struct {
	Domain   string
	Key      string
	OldValue string
	Service  string
}

// Engine is the change-history engine.
type Engine struct {
	events    EventLog
	defaults  prefs.Defaults
	restarter prefs.Restarter
	journal   *store.Journal
	domains   []string
	log       *zap.Logger
}

// NewEngine creates a change-history Engine. The journal may be nil.
func NewEngine(events EventLog, defaults prefs.Defaults, restarter prefs.Restarter,
	journal *store.Journal, domains []string, log *zap.Logger) *Engine {

	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		events:    events,
		defaults:  defaults,
		restarter: restarter,
		journal:   journal,
		domains:   domains,
		log:       log,
	}
}

// ChangesInWindow queries the event log for each tracked domain over the
// trailing window and groups the parsed events per domain. Domains with
// no events are omitted; a zero or negative window yields an empty
// grouping. Read-only: no side effects. A query failure for one domain
// skips that domain, it does not abort the rest.
func (e *Engine) ChangesInWindow(hours int) ([]DomainChanges, error) {
	if hours <= 0 {
		return nil, nil
	}
	window := time.Duration(hours) * time.Hour

	var groups []DomainChanges
	for _, domain := range e.domains {
		lines, err := e.events.Query(predicateFor(domain), window)
		if err != nil {
			e.log.Warn("event log query failed, domain skipped",
				zap.String("domain", domain), zap.Error(err))
			continue
		}

		var events []ChangeEvent
		for _, line := range lines {
			if ev, ok := parseLine(domain, line); ok {
				events = append(events, ev)
			}
		}
		if len(events) > 0 {
			groups = append(groups, DomainChanges{Domain: domain, Events: events})
		}
	}
	return groups, nil
}

// RevertKey reverts one (domain, key) pair to its system default by
// deleting it, then restarts only the service owning that domain. Fails
// fast when the pair does not exist: there is no partial success for a
// single target.
func (e *Engine) RevertKey(domain, key string) (*RevertResult, error) {
	oldValue, err := e.defaults.ReadKey(domain, key)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s %s: %w", domain, key, err)
	}

	opID := e.beginOp(store.OpRevertKey, domain+" "+key)

	if err := e.defaults.DeleteKey(domain, key); err != nil {
		e.journalItem(opID, domain+" "+key, false, err)
		e.finishOp(opID, 0, 1)
		return nil, fmt.Errorf("failed to delete %s %s: %w", domain, key, err)
	}
	e.journalItem(opID, domain+" "+key, true, nil)
	e.finishOp(opID, 1, 0)

	service := config.ServiceFor(domain)
	if err := e.restarter.Restart(service); err != nil {
		// Narrow restart is advisory; the key is already reverted.
		e.log.Warn("service restart failed after key revert",
			zap.String("service", service), zap.Error(err))
	}

	e.log.Info("key reverted to system default",
		zap.String("domain", domain), zap.String("key", key))
	return &RevertResult{Domain: domain, Key: key, OldValue: oldValue, Service: service}, nil
}

// RevertWindow deletes every tracked domain with at least one change
// event in the trailing window, returning each to factory defaults, then
// fires one shared restart signal. This is deliberately blunt: no safety
// snapshot is taken, unlike Restore — the two operations serve different
// recovery scenarios and callers confirm before invoking this one.
func (e *Engine) RevertWindow(hours int) (*snapshots.Report, error) {
	groups, err := e.ChangesInWindow(hours)
	if err != nil {
		return nil, err
	}

	report := &snapshots.Report{}
	if len(groups) == 0 {
		return report, nil
	}

	opID := e.beginOp(store.OpRevertWindow, fmt.Sprintf("%dh", hours))

	for _, group := range groups {
		if err := e.defaults.DeleteDomain(group.Domain); err != nil {
			report.Failed++
			report.FailedDomains = append(report.FailedDomains, group.Domain)
			e.journalItem(opID, group.Domain, false, err)
			e.log.Warn("domain revert failed",
				zap.String("domain", group.Domain), zap.Error(err))
			continue
		}
		report.Restored++
		e.journalItem(opID, group.Domain, true, nil)
	}

	if err := e.restarter.Restart(prefs.ServiceAllUI); err != nil {
		report.Warnings = append(report.Warnings, fmt.Sprintf("service restart incomplete: %v", err))
		e.log.Warn("service restart failed after window revert", zap.Error(err))
	}

	e.finishOp(opID, report.Restored, report.Failed)
	e.log.Info("window revert finished",
		zap.Int("hours", hours),
		zap.Int("reverted", report.Restored),
		zap.Int("failed", report.Failed))
	return report, nil
}

func (e *Engine) beginOp(kind, target string) string {
	if e.journal == nil {
		return ""
	}
	id, err := e.journal.BeginOperation(kind, target)
	if err != nil {
		e.log.Warn("failed to journal operation", zap.String("kind", kind), zap.Error(err))
		return ""
	}
	return id
}

func (e *Engine) journalItem(opID, item string, ok bool, itemErr error) {
	if e.journal == nil || opID == "" {
		return
	}
	msg := ""
	if itemErr != nil {
		msg = itemErr.Error()
	}
	if err := e.journal.AddItem(opID, item, ok, msg); err != nil {
		e.log.Warn("failed to journal item", zap.String("item", item), zap.Error(err))
	}
}

func (e *Engine) finishOp(opID string, succeeded, failed int) {
	if e.journal == nil || opID == "" {
		return
	}
	if err := e.journal.FinishOperation(opID, succeeded, failed); err != nil {
		e.log.Warn("failed to finish journaled operation", zap.Error(err))
	}
}
