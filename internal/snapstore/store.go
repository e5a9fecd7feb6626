// Package snapstore is the disk-backed catalog of settings snapshots.
//
// Layout under the base directory:
//
//	backups/<name>/<domain>.plist   one record per captured domain
//	backups/<name>/kernel.params    captured tunables, name=value lines
//	backups/<name>/snapshot.meta    name + creation time
//	settings, schedule, last_run    flat key=value metadata files
//
// A snapshot directory is append-only while being captured and immutable
// once capture returns; restores only ever read it. The store assumes a
// single invoking process: there is no file locking, and overlapping
// scheduled and interactive runs are the caller's problem.
package snapstore

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	backupsDirName = "backups"
	logsDirName    = "logs"

	metaFileName   = "snapshot.meta"
	kernelFileName = "kernel.params"
	recordExt      = ".plist"

	// PreRestorePrefix marks safety snapshots taken automatically
	// before a restore. They are exempt from pruning.
	PreRestorePrefix = "pre_restore_"

	// ProfilePrefix namespaces user-named snapshots. Also prune-exempt.
	ProfilePrefix = "profiles/"

	// NameFormat is the timestamp layout used for default snapshot
	// names, e.g. 2024-05-01_12-00-00.
	NameFormat = "2006-01-02_15-04-05"
)

// Handle identifies one stored snapshot without loading its records.
type Handle struct {
	Name      string
	CreatedAt time.Time
	Path      string
}

// KernelParam is one captured sysctl tunable. Order is preserved from
// capture through restore.
type KernelParam struct {
	Name  string
	Value string
}

// Snapshot is the fully loaded content of one stored snapshot. A domain
// missing from Records was either never captured or is listed in Corrupt.
type Snapshot struct {
	Name         string
	CreatedAt    time.Time
	Records      map[string][]byte
	KernelParams []KernelParam
	Corrupt      []string
}

// Store is a snapshot catalog rooted at a base directory.
type Store struct {
	baseDir string
}

// New returns a Store rooted at baseDir. Call Init before first use.
func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

// BaseDir returns the store's root directory.
func (s *Store) BaseDir() string {
	return s.baseDir
}

// BackupsDir returns the directory holding snapshot subdirectories.
func (s *Store) BackupsDir() string {
	return filepath.Join(s.baseDir, backupsDirName)
}

// LogsDir returns the directory for the application log file.
func (s *Store) LogsDir() string {
	return filepath.Join(s.baseDir, logsDirName)
}

// Init idempotently creates the base directory tree and the default
// metadata files. Existing files are never overwritten; running Init
// over an initialized store is a no-op.
func (s *Store) Init() error {
	if info, err := os.Stat(s.baseDir); err == nil && !info.IsDir() {
		return &StorageError{Path: s.baseDir, Err: fmt.Errorf("exists and is not a directory")}
	}

	for _, dir := range []string{s.baseDir, s.BackupsDir(), s.LogsDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return &StorageError{Path: dir, Err: err}
		}
	}

	defaults := map[string]string{
		"settings": "version=1\n",
		"profile":  "profile=default\n",
		"schedule": "interval_hours=24\nretain=10\n",
		"last_run": "last_run=never\n",
	}
	for name, content := range defaults {
		if err := writeIfMissing(filepath.Join(s.baseDir, name), content); err != nil {
			return &StorageError{Path: filepath.Join(s.baseDir, name), Err: err}
		}
	}
	return nil
}

// writeIfMissing creates the file with content only if it does not
// already exist.
func writeIfMissing(path, content string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if os.IsExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	_, err = f.WriteString(content)
	return err
}

// Create allocates a new empty snapshot directory. The caller supplies
// the name, typically <purpose>_<timestamp>; duplicates are rejected
// with ErrExists rather than silently overwritten.
func (s *Store) Create(name string) (*Handle, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}

	path := filepath.Join(s.BackupsDir(), filepath.FromSlash(name))
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("create %s: %w", name, ErrExists)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, &StorageError{Path: filepath.Dir(path), Err: err}
	}
	if err := os.Mkdir(path, 0755); err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("create %s: %w", name, ErrExists)
		}
		return nil, &StorageError{Path: path, Err: err}
	}

	createdAt := time.Now()
	meta := fmt.Sprintf("name=%s\ncreated_at=%s\n", name, createdAt.Format(time.RFC3339Nano))
	if err := os.WriteFile(filepath.Join(path, metaFileName), []byte(meta), 0644); err != nil {
		return nil, &StorageError{Path: path, Err: err}
	}

	return &Handle{Name: name, CreatedAt: createdAt, Path: path}, nil
}

// validateName rejects names that would escape the backups directory.
// A single path separator is allowed only for the profiles/ namespace.
func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("snapshot name must not be empty")
	}
	if strings.Contains(name, "..") || strings.HasPrefix(name, "/") {
		return fmt.Errorf("invalid snapshot name: %s", name)
	}
	if strings.Contains(name, "/") && !strings.HasPrefix(name, ProfilePrefix) {
		return fmt.Errorf("invalid snapshot name: %s (nested names are reserved for %s)", name, ProfilePrefix)
	}
	if strings.HasPrefix(name, ProfilePrefix) && strings.Contains(name[len(ProfilePrefix):], "/") {
		return fmt.Errorf("invalid profile name: %s", name)
	}
	return nil
}

// WriteRecord stores the exported record for one domain inside an
// in-progress snapshot.
func (s *Store) WriteRecord(h *Handle, domain string, data []byte) error {
	path := filepath.Join(h.Path, domain+recordExt)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return &StorageError{Path: path, Err: err}
	}
	return nil
}

// WriteKernelParams stores the captured tunables inside an in-progress
// snapshot, preserving order.
func (s *Store) WriteKernelParams(h *Handle, params []KernelParam) error {
	var sb strings.Builder
	for _, p := range params {
		fmt.Fprintf(&sb, "%s=%s\n", p.Name, p.Value)
	}

	path := filepath.Join(h.Path, kernelFileName)
	if err := os.WriteFile(path, []byte(sb.String()), 0644); err != nil {
		return &StorageError{Path: path, Err: err}
	}
	return nil
}

// List returns handles for every stored snapshot, ordered by creation
// time ascending. An empty store yields an empty slice, not an error.
func (s *Store) List() ([]*Handle, error) {
	entries, err := os.ReadDir(s.BackupsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &StorageError{Path: s.BackupsDir(), Err: err}
	}

	var handles []*Handle
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if entry.Name() == strings.TrimSuffix(ProfilePrefix, "/") {
			profiles, err := os.ReadDir(filepath.Join(s.BackupsDir(), entry.Name()))
			if err != nil {
				return nil, &StorageError{Path: filepath.Join(s.BackupsDir(), entry.Name()), Err: err}
			}
			for _, p := range profiles {
				if p.IsDir() {
					handles = append(handles, s.handleFor(ProfilePrefix+p.Name()))
				}
			}
			continue
		}
		handles = append(handles, s.handleFor(entry.Name()))
	}

	sort.Slice(handles, func(i, j int) bool {
		if handles[i].CreatedAt.Equal(handles[j].CreatedAt) {
			return handles[i].Name < handles[j].Name
		}
		return handles[i].CreatedAt.Before(handles[j].CreatedAt)
	})
	return handles, nil
}

// handleFor builds a handle from the snapshot's metadata file, falling
// back to the directory's modification time when the file is unreadable.
func (s *Store) handleFor(name string) *Handle {
	path := filepath.Join(s.BackupsDir(), filepath.FromSlash(name))
	h := &Handle{Name: name, Path: path}

	if meta, err := readKeyValueFile(filepath.Join(path, metaFileName)); err == nil {
		if ts, err := time.Parse(time.RFC3339Nano, meta["created_at"]); err == nil {
			h.CreatedAt = ts
			return h
		}
	}
	if info, err := os.Stat(path); err == nil {
		h.CreatedAt = info.ModTime()
	}
	return h
}

// Load reads a stored snapshot by name. A record file that cannot be
// read is listed in Corrupt and omitted from Records; only unparsable
// snapshot metadata fails the whole load with ErrCorrupt.
func (s *Store) Load(name string) (*Snapshot, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}

	path := filepath.Join(s.BackupsDir(), filepath.FromSlash(name))
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("load %s: %w", name, ErrNotFound)
		}
		return nil, &StorageError{Path: path, Err: err}
	}

	meta, err := readKeyValueFile(filepath.Join(path, metaFileName))
	if err != nil {
		return nil, fmt.Errorf("load %s: unreadable metadata: %w", name, ErrCorrupt)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, meta["created_at"])
	if err != nil {
		return nil, fmt.Errorf("load %s: bad created_at %q: %w", name, meta["created_at"], ErrCorrupt)
	}

	snap := &Snapshot{
		Name:      name,
		CreatedAt: createdAt,
		Records:   make(map[string][]byte),
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, &StorageError{Path: path, Err: err}
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), recordExt) {
			continue
		}
		domain := strings.TrimSuffix(entry.Name(), recordExt)

		data, err := os.ReadFile(filepath.Join(path, entry.Name()))
		if err != nil || len(data) == 0 {
			snap.Corrupt = append(snap.Corrupt, domain)
			continue
		}
		snap.Records[domain] = data
	}
	sort.Strings(snap.Corrupt)

	snap.KernelParams = readKernelParams(filepath.Join(path, kernelFileName))
	return snap, nil
}

// readKernelParams parses the tunables file. A missing file means none
// were captured; malformed lines are skipped.
func readKernelParams(path string) []KernelParam {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var params []KernelParam
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		idx := strings.IndexByte(line, '=')
		if idx <= 0 {
			continue
		}
		params = append(params, KernelParam{
			Name:  strings.TrimSpace(line[:idx]),
			Value: strings.TrimSpace(line[idx+1:]),
		})
	}
	return params
}

// Prune deletes all but the retain most recent snapshots. Snapshots
// named with the pre_restore_ prefix or under profiles/ are never
// deleted. Prune is only invoked from scheduled maintenance, never
// implicitly by create, load, or restore.
func (s *Store) Prune(retain int) ([]string, error) {
	if retain < 0 {
		return nil, fmt.Errorf("retain count must not be negative, got %d", retain)
	}

	handles, err := s.List()
	if err != nil {
		return nil, err
	}

	var candidates []*Handle
	for _, h := range handles {
		if !IsProtected(h.Name) {
			candidates = append(candidates, h)
		}
	}
	if len(candidates) <= retain {
		return nil, nil
	}

	// List is ascending, so everything before the retention boundary is
	// the oldest overflow.
	var deleted []string
	for _, h := range candidates[:len(candidates)-retain] {
		if err := os.RemoveAll(h.Path); err != nil {
			return deleted, &StorageError{Path: h.Path, Err: err}
		}
		deleted = append(deleted, h.Name)
	}
	return deleted, nil
}

// IsProtected reports whether a snapshot name is exempt from pruning.
func IsProtected(name string) bool {
	return strings.HasPrefix(name, PreRestorePrefix) || strings.HasPrefix(name, ProfilePrefix)
}

// TouchLastRun rewrites the last_run marker with the current time.
// Whole-file write, matching every other metadata file.
func (s *Store) TouchLastRun(t time.Time) error {
	content := fmt.Sprintf("last_run=%s\n", t.Format(time.RFC3339))
	path := filepath.Join(s.baseDir, "last_run")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return &StorageError{Path: path, Err: err}
	}
	return nil
}

// LastRun returns the recorded last scheduled-run time, or the zero time
// when no scheduled run has happened yet.
func (s *Store) LastRun() (time.Time, error) {
	meta, err := readKeyValueFile(filepath.Join(s.baseDir, "last_run"))
	if err != nil {
		if os.IsNotExist(err) {
			return time.Time{}, nil
		}
		return time.Time{}, err
	}
	raw := meta["last_run"]
	if raw == "" || raw == "never" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, raw)
}

// Schedule returns the configured maintenance interval and retention
// from the schedule metadata file.
func (s *Store) Schedule() (intervalHours, retain int, err error) {
	meta, err := readKeyValueFile(filepath.Join(s.baseDir, "schedule"))
	if err != nil {
		return 0, 0, err
	}

	if _, err := fmt.Sscanf(meta["interval_hours"], "%d", &intervalHours); err != nil {
		return 0, 0, fmt.Errorf("bad interval_hours %q in schedule", meta["interval_hours"])
	}
	if _, err := fmt.Sscanf(meta["retain"], "%d", &retain); err != nil {
		return 0, 0, fmt.Errorf("bad retain %q in schedule", meta["retain"])
	}
	return intervalHours, retain, nil
}

// readKeyValueFile parses a line-oriented key=value file. Blank lines
// and comments are skipped, as are lines without a separator.
func readKeyValueFile(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	out := make(map[string]string)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		idx := strings.IndexByte(line, '=')
		if idx <= 0 {
			continue
		}
		out[strings.TrimSpace(line[:idx])] = strings.TrimSpace(line[idx+1:])
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
