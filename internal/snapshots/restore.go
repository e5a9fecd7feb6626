package snapshots

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/ashgrove-systems/prefsafe/internal/prefs"
	"github.com/ashgrove-systems/prefsafe/internal/snapstore"
	"github.com/ashgrove-systems/prefsafe/internal/store"
)

// ErrRestoreFailed means no domain from a non-empty target snapshot
// could be applied.
var ErrRestoreFailed = errors.New("restore failed for every domain")

// Restore applies a stored snapshot back onto the live system.
//
// The target is resolved first; an unresolvable target fails before any
// mutation. A safety snapshot named pre_restore_<timestamp> is then
// captured — if that capture itself achieves nothing, the restore still
// proceeds but the data-loss risk is surfaced as a warning. Domains are
// applied independently, one failure never stopping the rest, kernel
// tunables likewise, and the UI restart signal fires exactly once at the
// end so whatever did apply takes effect.
func (m *Manager) Restore(targetName string) (*Report, error) {
	target, err := m.store.Load(targetName)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve snapshot %s: %w", targetName, err)
	}

	opID := m.beginOp(store.OpRestore, targetName)
	report := &Report{}

	// Safety backup first. The user's explicit intent to restore is not
	// blocked by an inability to snapshot current state, but it must be
	// visible.
	safetyName := snapstore.PreRestorePrefix + time.Now().Format(snapstore.NameFormat)
	_, safetyReport, err := m.Capture(safetyName)
	switch {
	case err != nil:
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("safety backup failed, current settings are NOT backed up: %v", err))
		m.log.Error("safety backup failed", zap.String("restore", targetName), zap.Error(err))
	case safetyReport.Restored == 0 && len(m.domains) > 0:
		report.Warnings = append(report.Warnings,
			"safety backup captured no domains, current settings are NOT backed up")
		m.log.Error("safety backup empty", zap.String("restore", targetName))
	}

	for _, domain := range target.Corrupt {
		report.Failed++
		report.FailedDomains = append(report.FailedDomains, domain)
		m.journalItem(opID, domain, false, snapstore.ErrCorrupt)
		m.log.Warn("record corrupt, domain not restored",
			zap.String("snapshot", targetName), zap.String("domain", domain))
	}

	for _, domain := range orderedDomains(target.Records) {
		if err := m.defaults.Import(domain, target.Records[domain]); err != nil {
			report.Failed++
			report.FailedDomains = append(report.FailedDomains, domain)
			m.journalItem(opID, domain, false, err)
			m.log.Warn("import failed",
				zap.String("snapshot", targetName), zap.String("domain", domain), zap.Error(err))
			continue
		}
		report.Restored++
		m.journalItem(opID, domain, true, nil)
	}

	for _, param := range target.KernelParams {
		if err := m.sysctl.Set(param.Name, param.Value); err != nil {
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("kernel param %s not applied: %v", param.Name, err))
			m.log.Warn("kernel param apply failed",
				zap.String("snapshot", targetName), zap.String("param", param.Name), zap.Error(err))
		}
	}

	// One shared restart at the end, regardless of per-domain outcomes.
	if err := m.restarter.Restart(prefs.ServiceAllUI); err != nil {
		report.Warnings = append(report.Warnings, fmt.Sprintf("service restart incomplete: %v", err))
		m.log.Warn("service restart failed", zap.Error(err))
	}

	m.finishOp(opID, report.Restored, report.Failed)
	m.log.Info("restore finished",
		zap.String("snapshot", targetName),
		zap.Int("restored", report.Restored),
		zap.Int("failed", report.Failed))

	if report.Restored == 0 && len(target.Records)+len(target.Corrupt) > 0 {
		return report, fmt.Errorf("restore of %s: %w", targetName, ErrRestoreFailed)
	}
	return report, nil
}

// orderedDomains returns the record keys in sorted order so apply order
// is deterministic run to run.
func orderedDomains(records map[string][]byte) []string {
	domains := make([]string, 0, len(records))
	for domain := range records {
		domains = append(domains, domain)
	}
	sort.Strings(domains)
	return domains
}
