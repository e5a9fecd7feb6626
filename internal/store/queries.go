package store

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Operation is one journaled engine invocation.
type Operation struct {
	ID         string
	Kind       string
	Target     string
	StartedAt  time.Time
	FinishedAt time.Time
	Succeeded  int
	Failed     int
}

// OperationItem is one per-domain (or per-tunable) outcome within an
// operation.
type OperationItem struct {
	OperationID string
	Item        string
	OK          bool
	Error       string
}

// PrefEvent is one preference-file write observed by the watcher.
type PrefEvent struct {
	ID         int64
	Domain     string
	Path       string
	ObservedAt time.Time
}

// Operation kinds written by the engines.
const (
	OpCapture      = "capture"
	OpRestore      = "restore"
	OpRevertKey    = "revert_key"
	OpRevertWindow = "revert_window"
	OpPrune        = "prune"
)

// BeginOperation inserts a new in-progress operation row and returns its
// generated ID.
func (j *Journal) BeginOperation(kind, target string) (string, error) {
	id := uuid.NewString()
	_, err := j.db.Exec(
		`INSERT INTO operations (id, kind, target, started_at) VALUES (?, ?, ?, ?)`,
		id, kind, target, time.Now().UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert operation: %w", err)
	}
	return id, nil
}

// FinishOperation records the final counts for an operation.
func (j *Journal) FinishOperation(id string, succeeded, failed int) error {
	_, err := j.db.Exec(
		`UPDATE operations SET finished_at = ?, succeeded = ?, failed = ? WHERE id = ?`,
		time.Now().UTC(), succeeded, failed, id,
	)
	if err != nil {
		return fmt.Errorf("failed to finish operation %s: %w", id, err)
	}
	return nil
}

// AddItem records one per-item outcome for an operation.
func (j *Journal) AddItem(operationID, item string, ok bool, itemErr string) error {
	_, err := j.db.Exec(
		`INSERT INTO operation_items (operation_id, item, ok, error) VALUES (?, ?, ?, ?)`,
		operationID, item, ok, itemErr,
	)
	if err != nil {
		return fmt.Errorf("failed to insert operation item: %w", err)
	}
	return nil
}

// RecentOperations returns the most recent operations, newest first.
func (j *Journal) RecentOperations(limit int) ([]*Operation, error) {
	rows, err := j.db.Query(
		`SELECT id, kind, target, started_at, COALESCE(finished_at, started_at), succeeded, failed
		 FROM operations ORDER BY started_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query operations: %w", err)
	}
	defer rows.Close()

	var ops []*Operation
	for rows.Next() {
		op := &Operation{}
		if err := rows.Scan(&op.ID, &op.Kind, &op.Target, &op.StartedAt, &op.FinishedAt, &op.Succeeded, &op.Failed); err != nil {
			return nil, fmt.Errorf("failed to scan operation: %w", err)
		}
		ops = append(ops, op)
	}
	return ops, rows.Err()
}

// ItemsFor returns the per-item outcomes of one operation.
func (j *Journal) ItemsFor(operationID string) ([]*OperationItem, error) {
	rows, err := j.db.Query(
		`SELECT operation_id, item, ok, error FROM operation_items WHERE operation_id = ? ORDER BY id`,
		operationID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query operation items: %w", err)
	}
	defer rows.Close()

	var items []*OperationItem
	for rows.Next() {
		it := &OperationItem{}
		if err := rows.Scan(&it.OperationID, &it.Item, &it.OK, &it.Error); err != nil {
			return nil, fmt.Errorf("failed to scan operation item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// InsertPrefEvent records one observed preference-file write.
func (j *Journal) InsertPrefEvent(domain, path string, observedAt time.Time) error {
	_, err := j.db.Exec(
		`INSERT INTO pref_events (domain, path, observed_at) VALUES (?, ?, ?)`,
		domain, path, observedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert pref event: %w", err)
	}
	return nil
}

// RecentPrefEvents returns the most recent watcher events, newest first.
func (j *Journal) RecentPrefEvents(limit int) ([]*PrefEvent, error) {
	rows, err := j.db.Query(
		`SELECT id, domain, path, observed_at FROM pref_events ORDER BY observed_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query pref events: %w", err)
	}
	defer rows.Close()

	var events []*PrefEvent
	for rows.Next() {
		ev := &PrefEvent{}
		if err := rows.Scan(&ev.ID, &ev.Domain, &ev.Path, &ev.ObservedAt); err != nil {
			return nil, fmt.Errorf("failed to scan pref event: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
