package snapstore

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a named snapshot does not exist.
	ErrNotFound = errors.New("snapshot not found")

	// ErrExists is returned when creating a snapshot whose name is
	// already taken. Callers pass timestamp-qualified names, so hitting
	// this in practice means two invocations inside the same second.
	ErrExists = errors.New("snapshot already exists")

	// ErrCorrupt is returned when stored snapshot metadata cannot be
	// parsed. A corrupt individual record does not raise this; it is
	// reported per-domain on the loaded Snapshot instead.
	ErrCorrupt = errors.New("snapshot corrupt")
)

// StorageError means the store's base directory is unusable: it exists
// but is not a directory, or cannot be created or written. Fatal to the
// invoking operation, never retried.
type StorageError struct {
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("snapshot store unusable at %s: %v", e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
