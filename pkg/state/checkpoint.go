// Package state persists installation checkpoints: the last completed step
// plus the configuration snapshot needed to continue.
package state

import (
	"fmt"
	"time"

	"github.com/jaspreet-dot-casa/uinstall/pkg/snapshot"
)

// Version is the checkpoint schema version. Files with another version are
// ignored on load.
const Version = "1"

// FileName is the checkpoint file name inside the state directory.
const FileName = "checkpoint.json"

// Checkpoint is the persisted form of installation progress.
type Checkpoint struct {
	Version           string             `json:"version"`
	RunID             string             `json:"run_id,omitempty"`
	LastCompletedStep string             `json:"last_completed_step"`
	SavedAt           time.Time          `json:"saved_at"`
	Snapshot          *snapshot.Snapshot `json:"snapshot"`
}

// PersistenceError reports a checkpoint write or removal failure.
type PersistenceError struct {
	Op   string // "save" or "clear"
	Path string
	Step string
	Err  error
}

func (e *PersistenceError) Error() string {
	if e.Step != "" {
		return fmt.Sprintf("failed to %s checkpoint %s after step %q: %v", e.Op, e.Path, e.Step, e.Err)
	}
	return fmt.Sprintf("failed to %s checkpoint %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
