package snapshots

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/ashgrove-systems/prefsafe/internal/snapstore"
)

func newTestManager(t *testing.T, defaults *fakeDefaults, sysctl *fakeSysctl,
	restarter *fakeRestarter, domains, params []string) *Manager {
	t.Helper()

	st := snapstore.New(filepath.Join(t.TempDir(), "prefsafe"))
	if err := st.Init(); err != nil {
		t.Fatalf("store Init failed: %v", err)
	}
	return New(st, defaults, sysctl, restarter, nil, domains, params, nil)
}

func TestCaptureBestEffort(t *testing.T) {
	defaults := newFakeDefaults()
	defaults.exports["com.apple.dock"] = []byte("dock-data")
	defaults.exports["com.apple.finder"] = []byte("finder-data")
	defaults.failExport["com.apple.finder"] = true

	m := newTestManager(t, defaults, newFakeSysctl(), &fakeRestarter{},
		[]string{"com.apple.dock", "com.apple.finder"}, nil)

	handle, report, err := m.Capture("test-backup")
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	if handle.Name != "test-backup" {
		t.Errorf("handle name = %q, want test-backup", handle.Name)
	}
	if report.Restored != 1 || report.Failed != 1 {
		t.Errorf("report = %d/%d, want 1 captured, 1 failed", report.Restored, report.Failed)
	}

	// The failed domain is simply omitted from the snapshot.
	snap, err := m.store.Load("test-backup")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if _, ok := snap.Records["com.apple.dock"]; !ok {
		t.Error("dock record should be present")
	}
	if _, ok := snap.Records["com.apple.finder"]; ok {
		t.Error("failed finder export should be omitted, not stored")
	}
}

func TestCaptureDefaultNameIsTimestamp(t *testing.T) {
	defaults := newFakeDefaults()
	defaults.exports["com.apple.dock"] = []byte("dock-data")

	m := newTestManager(t, defaults, newFakeSysctl(), &fakeRestarter{},
		[]string{"com.apple.dock"}, nil)

	handle, _, err := m.Capture("")
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	if _, err := time.Parse(snapstore.NameFormat, handle.Name); err != nil {
		t.Errorf("default name %q is not a timestamp: %v", handle.Name, err)
	}
}

func TestCaptureKernelParamsBestEffort(t *testing.T) {
	defaults := newFakeDefaults()
	defaults.exports["com.apple.dock"] = []byte("dock-data")
	sysctl := newFakeSysctl()
	sysctl.values["kern.maxfiles"] = "524288"
	// kern.maxproc is deliberately absent.

	m := newTestManager(t, defaults, sysctl, &fakeRestarter{},
		[]string{"com.apple.dock"}, []string{"kern.maxfiles", "kern.maxproc"})

	_, report, err := m.Capture("with-params")
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	if len(report.Warnings) != 1 {
		t.Errorf("warnings = %v, want one for the missing param", report.Warnings)
	}

	snap, err := m.store.Load("with-params")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(snap.KernelParams) != 1 || snap.KernelParams[0].Name != "kern.maxfiles" {
		t.Errorf("kernel params = %v, want only kern.maxfiles", snap.KernelParams)
	}
}

func TestCaptureDuplicateName(t *testing.T) {
	defaults := newFakeDefaults()
	defaults.exports["com.apple.dock"] = []byte("dock-data")

	m := newTestManager(t, defaults, newFakeSysctl(), &fakeRestarter{},
		[]string{"com.apple.dock"}, nil)

	if _, _, err := m.Capture("dup"); err != nil {
		t.Fatalf("first Capture failed: %v", err)
	}
	if _, _, err := m.Capture("dup"); err == nil {
		t.Error("duplicate Capture should fail, not overwrite")
	}
}

func TestMaintainCapturesAndPrunes(t *testing.T) {
	defaults := newFakeDefaults()
	defaults.exports["com.apple.dock"] = []byte("dock-data")

	m := newTestManager(t, defaults, newFakeSysctl(), &fakeRestarter{},
		[]string{"com.apple.dock"}, nil)

	for i := 0; i < 3; i++ {
		name := time.Date(2024, 5, 1, 10, i, 0, 0, time.UTC).Format(snapstore.NameFormat)
		if _, _, err := m.Capture(name); err != nil {
			t.Fatalf("Capture failed: %v", err)
		}
		time.Sleep(5 * time.Millisecond)
	}

	handle, _, err := m.Maintain(2)
	if err != nil {
		t.Fatalf("Maintain failed: %v", err)
	}
	if handle == nil {
		t.Fatal("Maintain should return the new snapshot handle")
	}

	handles, err := m.store.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(handles) != 2 {
		t.Errorf("%d snapshots remain after Maintain(2), want 2", len(handles))
	}

	last, err := m.store.LastRun()
	if err != nil {
		t.Fatalf("LastRun failed: %v", err)
	}
	if last.IsZero() {
		t.Error("Maintain should update the last-run marker")
	}
}
