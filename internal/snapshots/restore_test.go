package snapshots

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ashgrove-systems/prefsafe/internal/prefs"
	"github.com/ashgrove-systems/prefsafe/internal/snapstore"
)

func TestRestoreRoundTrip(t *testing.T) {
	defaults := newFakeDefaults()
	defaults.exports["com.apple.dock"] = []byte("dock-data")
	defaults.exports["com.apple.finder"] = []byte("finder-data")
	restarter := &fakeRestarter{}

	m := newTestManager(t, defaults, newFakeSysctl(), restarter,
		[]string{"com.apple.dock", "com.apple.finder"}, nil)

	handle, captureReport, err := m.Capture("")
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}

	report, err := m.Restore(handle.Name)
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if report.Failed != 0 {
		t.Errorf("round-trip restore failed for %v, want none", report.FailedDomains)
	}
	if report.Restored != captureReport.Restored {
		t.Errorf("restored %d domains, want %d (everything captured)", report.Restored, captureReport.Restored)
	}
	if string(defaults.imported["com.apple.dock"]) != "dock-data" {
		t.Errorf("dock import = %q, want dock-data", defaults.imported["com.apple.dock"])
	}
}

func TestRestorePartialFailureTolerance(t *testing.T) {
	defaults := newFakeDefaults()
	for _, d := range []string{"domainA", "domainB", "domainC"} {
		defaults.exports[d] = []byte(d + "-data")
	}
	defaults.failImport["domainB"] = true
	restarter := &fakeRestarter{}

	m := newTestManager(t, defaults, newFakeSysctl(), restarter,
		[]string{"domainA", "domainB", "domainC"}, nil)

	if _, _, err := m.Capture("target"); err != nil {
		t.Fatalf("Capture failed: %v", err)
	}

	report, err := m.Restore("target")
	if err != nil {
		t.Fatalf("Restore with one failing domain should not error: %v", err)
	}
	if report.Restored != 2 || report.Failed != 1 {
		t.Errorf("report = %d/%d, want restored=2 failed=1", report.Restored, report.Failed)
	}
	if len(report.FailedDomains) != 1 || report.FailedDomains[0] != "domainB" {
		t.Errorf("FailedDomains = %v, want [domainB]", report.FailedDomains)
	}

	// The remaining domains were still attempted.
	if _, ok := defaults.imported["domainA"]; !ok {
		t.Error("domainA should have been applied despite domainB failing")
	}
	if _, ok := defaults.imported["domainC"]; !ok {
		t.Error("domainC should have been applied despite domainB failing")
	}
}

func TestRestoreSafetyBackupFirst(t *testing.T) {
	defaults := newFakeDefaults()
	defaults.exports["com.apple.dock"] = []byte("dock-data")

	m := newTestManager(t, defaults, newFakeSysctl(), &fakeRestarter{},
		[]string{"com.apple.dock"}, nil)

	if _, _, err := m.Capture("target"); err != nil {
		t.Fatalf("Capture failed: %v", err)
	}

	// Every import must observe an already-written safety snapshot.
	var safetyExistedAtImport bool
	defaults.onImport = func(string) {
		handles, err := m.store.List()
		if err != nil {
			t.Errorf("List during import failed: %v", err)
			return
		}
		for _, h := range handles {
			if strings.HasPrefix(h.Name, snapstore.PreRestorePrefix) {
				safetyExistedAtImport = true
			}
		}
	}

	if _, err := m.Restore("target"); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if !safetyExistedAtImport {
		t.Error("safety snapshot must exist before any domain is applied")
	}

	handles, err := m.store.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	var safety *snapstore.Handle
	for _, h := range handles {
		if strings.HasPrefix(h.Name, snapstore.PreRestorePrefix) {
			safety = h
		}
	}
	if safety == nil {
		t.Fatal("no pre_restore_ snapshot in store after restore")
	}

	snap, err := m.store.Load(safety.Name)
	if err != nil {
		t.Fatalf("Load of safety snapshot failed: %v", err)
	}
	if string(snap.Records["com.apple.dock"]) != "dock-data" {
		t.Error("safety snapshot should hold the pre-restore state")
	}
}

func TestRestoreFailsFastOnMissingTarget(t *testing.T) {
	defaults := newFakeDefaults()
	defaults.exports["com.apple.dock"] = []byte("dock-data")
	restarter := &fakeRestarter{}

	m := newTestManager(t, defaults, newFakeSysctl(), restarter,
		[]string{"com.apple.dock"}, nil)

	_, err := m.Restore("no-such-snapshot")
	if !errors.Is(err, snapstore.ErrNotFound) {
		t.Fatalf("Restore of missing target = %v, want ErrNotFound", err)
	}

	// Nothing may have been mutated or signaled: fail fast means fail
	// before the safety backup too.
	if len(defaults.imported) != 0 {
		t.Error("no imports should happen for an unresolvable target")
	}
	if len(restarter.calls) != 0 {
		t.Error("no restart signal should fire for an unresolvable target")
	}
	handles, _ := m.store.List()
	for _, h := range handles {
		if strings.HasPrefix(h.Name, snapstore.PreRestorePrefix) {
			t.Error("no safety snapshot should be created for an unresolvable target")
		}
	}
}

func TestRestoreSignalsOnce(t *testing.T) {
	defaults := newFakeDefaults()
	defaults.exports["com.apple.dock"] = []byte("dock-data")
	defaults.exports["com.apple.finder"] = []byte("finder-data")
	restarter := &fakeRestarter{}

	m := newTestManager(t, defaults, newFakeSysctl(), restarter,
		[]string{"com.apple.dock", "com.apple.finder"}, nil)

	if _, _, err := m.Capture("target"); err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	if _, err := m.Restore("target"); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}

	if len(restarter.calls) != 1 || restarter.calls[0] != prefs.ServiceAllUI {
		t.Errorf("restart calls = %v, want exactly one all-ui signal", restarter.calls)
	}
}

func TestRestoreHardFailure(t *testing.T) {
	defaults := newFakeDefaults()
	defaults.exports["com.apple.dock"] = []byte("dock-data")

	m := newTestManager(t, defaults, newFakeSysctl(), &fakeRestarter{},
		[]string{"com.apple.dock"}, nil)

	if _, _, err := m.Capture("target"); err != nil {
		t.Fatalf("Capture failed: %v", err)
	}

	defaults.failImport["com.apple.dock"] = true
	report, err := m.Restore("target")
	if !errors.Is(err, ErrRestoreFailed) {
		t.Fatalf("restore with zero successes on non-empty target = %v, want ErrRestoreFailed", err)
	}
	if report == nil || report.Restored != 0 || report.Failed != 1 {
		t.Errorf("report = %+v, want restored=0 failed=1", report)
	}
	if report.Outcome() != "failed entirely" {
		t.Errorf("Outcome = %q, want failed entirely", report.Outcome())
	}
}

func TestRestoreWarnsWhenSafetyBackupEmpty(t *testing.T) {
	defaults := newFakeDefaults()
	defaults.exports["com.apple.dock"] = []byte("dock-data")

	m := newTestManager(t, defaults, newFakeSysctl(), &fakeRestarter{},
		[]string{"com.apple.dock"}, nil)

	if _, _, err := m.Capture("target"); err != nil {
		t.Fatalf("Capture failed: %v", err)
	}

	// Every export now fails, so the safety capture achieves nothing.
	defaults.failExport["com.apple.dock"] = true

	report, err := m.Restore("target")
	if err != nil {
		t.Fatalf("Restore should proceed despite a failed safety backup: %v", err)
	}
	if report.Restored != 1 {
		t.Errorf("restored = %d, want 1 (the restore itself still runs)", report.Restored)
	}

	found := false
	for _, w := range report.Warnings {
		if strings.Contains(w, "NOT backed up") {
			found = true
		}
	}
	if !found {
		t.Errorf("warnings = %v, want a data-loss warning about the safety backup", report.Warnings)
	}
}

func TestRestoreCountsCorruptRecordAsFailed(t *testing.T) {
	defaults := newFakeDefaults()
	defaults.exports["com.apple.dock"] = []byte("dock-data")

	m := newTestManager(t, defaults, newFakeSysctl(), &fakeRestarter{},
		[]string{"com.apple.dock"}, nil)

	handle, _, err := m.Capture("target")
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	// Corrupt one record on disk alongside a healthy one.
	if err := os.WriteFile(filepath.Join(handle.Path, "com.apple.broken.plist"), nil, 0644); err != nil {
		t.Fatalf("failed to plant corrupt record: %v", err)
	}

	report, err := m.Restore("target")
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if report.Restored != 1 || report.Failed != 1 {
		t.Errorf("report = %d/%d, want restored=1 failed=1", report.Restored, report.Failed)
	}
	if len(report.FailedDomains) != 1 || report.FailedDomains[0] != "com.apple.broken" {
		t.Errorf("FailedDomains = %v, want [com.apple.broken]", report.FailedDomains)
	}
}

func TestSnapshotImmutableAcrossRestore(t *testing.T) {
	defaults := newFakeDefaults()
	defaults.exports["com.apple.dock"] = []byte("original-data")

	m := newTestManager(t, defaults, newFakeSysctl(), &fakeRestarter{},
		[]string{"com.apple.dock"}, nil)

	handle, _, err := m.Capture("target")
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}

	before, err := os.ReadFile(filepath.Join(handle.Path, "com.apple.dock.plist"))
	if err != nil {
		t.Fatalf("failed to read record: %v", err)
	}

	// Live state changes, then the snapshot is restored. The stored
	// record must be byte-identical afterwards.
	defaults.exports["com.apple.dock"] = []byte("mutated-data")
	if _, err := m.Restore("target"); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}

	after, err := os.ReadFile(filepath.Join(handle.Path, "com.apple.dock.plist"))
	if err != nil {
		t.Fatalf("failed to re-read record: %v", err)
	}
	if string(before) != string(after) {
		t.Error("restore mutated the stored snapshot")
	}
}
