// Package watcher journals live preference changes. It watches the
// preferences directory for writes to the tracked domains' plist files
// and appends an event row per observed change, giving `prefsafe status`
// a local record that survives the system log's retention window.
package watcher

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/ashgrove-systems/prefsafe/internal/store"
)

// debounceWindow collapses the burst of write events cfprefsd emits for
// a single logical preference change.
const debounceWindow = 2 * time.Second

// Watcher monitors one preferences directory for tracked-domain writes.
type Watcher struct {
	journal  *store.Journal
	prefsDir string
	domains  map[string]string // plist base name -> domain
	log      *zap.Logger

	fw       *fsnotify.Watcher
	stopCh   chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex
	lastSeen map[string]time.Time
}

// New creates a Watcher for the given preferences directory and tracked
// domain set.
func New(journal *store.Journal, prefsDir string, domains []string, log *zap.Logger) (*Watcher, error) {
	if journal == nil {
		return nil, fmt.Errorf("journal cannot be nil")
	}
	if log == nil {
		log = zap.NewNop()
	}

	byFile := make(map[string]string, len(domains))
	for _, domain := range domains {
		byFile[plistName(domain)] = domain
	}

	return &Watcher{
		journal:  journal,
		prefsDir: prefsDir,
		domains:  byFile,
		log:      log,
		stopCh:   make(chan struct{}),
		lastSeen: make(map[string]time.Time),
	}, nil
}

// plistName maps a domain to its plist file name. The global domain is
// stored under a hidden name rather than NSGlobalDomain.plist.
func plistName(domain string) string {
	if domain == "NSGlobalDomain" {
		return ".GlobalPreferences.plist"
	}
	return domain + ".plist"
}

// Start begins watching. Events are processed on a background goroutine
// until Stop is called.
func (w *Watcher) Start() error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create filesystem watcher: %w", err)
	}
	if err := fw.Add(w.prefsDir); err != nil {
		fw.Close()
		return fmt.Errorf("failed to watch %s: %w", w.prefsDir, err)
	}
	w.fw = fw

	w.wg.Add(1)
	go w.run()
	return nil
}

func (w *Watcher) run() {
	defer w.wg.Done()

	for {
		select {
		case event, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				w.handle(event.Name)
			}
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.log.Warn("filesystem watcher error", zap.Error(err))
		case <-w.stopCh:
			return
		}
	}
}

// handle journals one filesystem event if it maps to a tracked domain
// and is outside the debounce window.
func (w *Watcher) handle(path string) {
	domain, ok := w.domains[filepath.Base(path)]
	if !ok {
		// cfprefsd writes via temp files; match their target name too.
		base := strings.TrimSuffix(filepath.Base(path), ".tmp")
		if domain, ok = w.domains[base]; !ok {
			return
		}
	}

	now := time.Now()
	w.mu.Lock()
	if last, seen := w.lastSeen[domain]; seen && now.Sub(last) < debounceWindow {
		w.mu.Unlock()
		return
	}
	w.lastSeen[domain] = now
	w.mu.Unlock()

	if err := w.journal.InsertPrefEvent(domain, path, now); err != nil {
		w.log.Warn("failed to journal preference event",
			zap.String("domain", domain), zap.Error(err))
		return
	}
	w.log.Debug("preference change observed",
		zap.String("domain", domain), zap.String("path", path))
}

// Stop halts the watcher and waits for the event goroutine to exit.
func (w *Watcher) Stop() error {
	close(w.stopCh)
	if w.fw != nil {
		w.fw.Close()
	}
	w.wg.Wait()
	return nil
}
