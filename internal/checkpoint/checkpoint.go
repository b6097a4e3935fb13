// Package checkpoint implements the Checkpoint Store (C5): a durable,
// atomically-written per-table progress record so a killed migration can
// resume without re-reading rows already written, per spec.md §3/§6.3.
//
// There is no ecosystem library in this pack for "atomic single-file JSON
// checkpoint" that improves on os.CreateTemp + os.Rename, so this package
// is deliberately stdlib-only.
package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Checkpoint is the durable per-table progress record, per spec.md §3.
// CursorValue holds either the last-seen primary key (cursor mode) or the
// last offset (offset mode); IsOffset disambiguates which interpretation
// applies when reading the record back.
type Checkpoint struct {
	TableName   string    `json:"table_name"`
	RunID       string    `json:"run_id"`
	CursorValue any       `json:"cursor_value"`
	IsOffset    bool      `json:"is_offset"`
	TotalRows   int64     `json:"total_rows"`
	ChunkSize   int       `json:"chunk_size"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Store reads and writes Checkpoint records under a single directory, one
// file per table, named "<table>_checkpoint.json" per spec.md §6.3.
type Store struct {
	dir string
}

// NewStore returns a Store rooted at dir. The directory is not created
// until the first Save call.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// NewRunID returns a fresh run-correlation identifier, attached to every
// Checkpoint persisted during one Orchestrator run so a resumed run's
// checkpoints can be told apart from a stale checkpoint left by an older,
// differently-configured run.
func NewRunID() string {
	return uuid.NewString()
}

func (s *Store) path(table string) string {
	return filepath.Join(s.dir, table+"_checkpoint.json")
}

// Load reads the checkpoint for a table. ok is false if no checkpoint file
// exists, which is the authoritative "this table is not in progress"
// signal --resume relies on (spec.md §6.3).
func (s *Store) Load(table string) (cp *Checkpoint, ok bool, err error) {
	data, err := os.ReadFile(s.path(table))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("checkpoint: read %q: %w", table, err)
	}

	var c Checkpoint
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, false, fmt.Errorf("checkpoint: decode %q: %w", table, err)
	}
	return &c, true, nil
}

// Save persists cp atomically: the record is written to a temp file in the
// same directory, then renamed over the final path, so a concurrent Load
// never observes a torn write (spec.md §9, "Checkpoint atomicity").
func (s *Store) Save(cp *Checkpoint) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("checkpoint: mkdir %q: %w", s.dir, err)
	}

	cp.UpdatedAt = cp.UpdatedAt.UTC()
	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("checkpoint: encode %q: %w", cp.TableName, err)
	}

	final := s.path(cp.TableName)
	tmp, err := os.CreateTemp(s.dir, cp.TableName+"_checkpoint_*.tmp")
	if err != nil {
		return fmt.Errorf("checkpoint: create temp for %q: %w", cp.TableName, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("checkpoint: write temp for %q: %w", cp.TableName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("checkpoint: close temp for %q: %w", cp.TableName, err)
	}
	if err := os.Rename(tmpName, final); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("checkpoint: rename into place for %q: %w", cp.TableName, err)
	}
	return nil
}

// Delete removes a table's checkpoint on successful completion (spec.md
// §4.6 step 6). Deleting an already-absent checkpoint is not an error.
func (s *Store) Delete(table string) error {
	err := os.Remove(s.path(table))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("checkpoint: delete %q: %w", table, err)
	}
	return nil
}
