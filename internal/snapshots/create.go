package snapshots

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ashgrove-systems/prefsafe/internal/snapstore"
	"github.com/ashgrove-systems/prefsafe/internal/store"
)

// Capture snapshots the current value of every tracked domain and kernel
// tunable into a new named snapshot. If name is empty, the creation
// timestamp is used. Capture is best-effort per item: a failed export is
// logged and the domain omitted from the snapshot, never aborting the
// whole capture. Live system state is not mutated.
func (m *Manager) Capture(name string) (*snapstore.Handle, *Report, error) {
	if name == "" {
		name = time.Now().Format(snapstore.NameFormat)
	}

	handle, err := m.store.Create(name)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create snapshot %s: %w", name, err)
	}

	opID := m.beginOp(store.OpCapture, name)
	report := &Report{}

	for _, domain := range m.domains {
		data, err := m.defaults.Export(domain)
		if err != nil {
			report.Failed++
			report.FailedDomains = append(report.FailedDomains, domain)
			m.journalItem(opID, domain, false, err)
			m.log.Warn("export failed, domain omitted from snapshot",
				zap.String("snapshot", name), zap.String("domain", domain), zap.Error(err))
			continue
		}
		if err := m.store.WriteRecord(handle, domain, data); err != nil {
			report.Failed++
			report.FailedDomains = append(report.FailedDomains, domain)
			m.journalItem(opID, domain, false, err)
			m.log.Warn("failed to write record",
				zap.String("snapshot", name), zap.String("domain", domain), zap.Error(err))
			continue
		}
		report.Restored++
		m.journalItem(opID, domain, true, nil)
	}

	var params []snapstore.KernelParam
	for _, param := range m.params {
		value, err := m.sysctl.Get(param)
		if err != nil {
			report.Warnings = append(report.Warnings, fmt.Sprintf("kernel param %s not captured: %v", param, err))
			m.log.Warn("kernel param read failed",
				zap.String("snapshot", name), zap.String("param", param), zap.Error(err))
			continue
		}
		params = append(params, snapstore.KernelParam{Name: param, Value: value})
	}
	if len(params) > 0 {
		if err := m.store.WriteKernelParams(handle, params); err != nil {
			report.Warnings = append(report.Warnings, fmt.Sprintf("kernel params not written: %v", err))
			m.log.Warn("failed to write kernel params", zap.String("snapshot", name), zap.Error(err))
		}
	}

	m.finishOp(opID, report.Restored, report.Failed)
	m.log.Info("snapshot captured",
		zap.String("snapshot", name),
		zap.Int("domains", report.Restored),
		zap.Int("failed", report.Failed),
		zap.Int("kernel_params", len(params)))

	return handle, report, nil
}

// Maintain runs the scheduled maintenance pass: capture a fresh
// snapshot, update the last-run marker, then prune to the retention
// limit. Pruning happens only here, never during an interactive restore.
func (m *Manager) Maintain(retain int) (*snapstore.Handle, *Report, error) {
	handle, report, err := m.Capture("")
	if err != nil {
		return nil, nil, err
	}

	if err := m.store.TouchLastRun(time.Now()); err != nil {
		report.Warnings = append(report.Warnings, fmt.Sprintf("last-run marker not updated: %v", err))
		m.log.Warn("failed to touch last-run marker", zap.Error(err))
	}

	opID := m.beginOp(store.OpPrune, "")
	deleted, err := m.store.Prune(retain)
	if err != nil {
		report.Warnings = append(report.Warnings, fmt.Sprintf("prune failed: %v", err))
		m.log.Warn("prune failed", zap.Error(err))
	}
	for _, name := range deleted {
		m.journalItem(opID, name, true, nil)
	}
	m.finishOp(opID, len(deleted), 0)

	if len(deleted) > 0 {
		m.log.Info("pruned old snapshots", zap.Strings("deleted", deleted))
	}
	return handle, report, nil
}
