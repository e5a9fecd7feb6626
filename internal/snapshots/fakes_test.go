package snapshots

import (
	"fmt"
	"sync"
)

// fakeDefaults is an in-memory preference store for tests.
type fakeDefaults struct {
	mu         sync.Mutex
	exports    map[string][]byte
	failExport map[string]bool
	failImport map[string]bool
	imported   map[string][]byte
	onImport   func(domain string) // called before each successful import
}

func newFakeDefaults() *fakeDefaults {
	return &fakeDefaults{
		exports:    make(map[string][]byte),
		failExport: make(map[string]bool),
		failImport: make(map[string]bool),
		imported:   make(map[string][]byte),
	}
}

func (f *fakeDefaults) Export(domain string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failExport[domain] {
		return nil, fmt.Errorf("export of %s forced to fail", domain)
	}
	data, ok := f.exports[domain]
	if !ok {
		return nil, fmt.Errorf("domain %s has no data", domain)
	}
	return data, nil
}

func (f *fakeDefaults) Import(domain string, data []byte) error {
	f.mu.Lock()
	hook := f.onImport
	fail := f.failImport[domain]
	f.mu.Unlock()

	if fail {
		return fmt.Errorf("import of %s forced to fail", domain)
	}
	if hook != nil {
		hook(domain)
	}

	f.mu.Lock()
	f.imported[domain] = data
	f.mu.Unlock()
	return nil
}

func (f *fakeDefaults) ReadKey(domain, key string) (string, error) {
	return "", fmt.Errorf("not implemented in fake")
}

func (f *fakeDefaults) DeleteKey(domain, key string) error {
	return fmt.Errorf("not implemented in fake")
}

func (f *fakeDefaults) DeleteDomain(domain string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.exports, domain)
	return nil
}

// fakeSysctl is an in-memory kernel tunable store for tests.
type fakeSysctl struct {
	values  map[string]string
	failSet bool
	sets    []string
}

func newFakeSysctl() *fakeSysctl {
	return &fakeSysctl{values: make(map[string]string)}
}

func (f *fakeSysctl) Get(name string) (string, error) {
	value, ok := f.values[name]
	if !ok {
		return "", fmt.Errorf("unknown sysctl %s", name)
	}
	return value, nil
}

func (f *fakeSysctl) Set(name, value string) error {
	if f.failSet {
		return fmt.Errorf("set of %s forced to fail", name)
	}
	f.sets = append(f.sets, name+"="+value)
	return nil
}

// fakeRestarter records restart signals.
type fakeRestarter struct {
	calls []string
}

func (f *fakeRestarter) Restart(service string) error {
	f.calls = append(f.calls, service)
	return nil
}
