package state

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jaspreet-dot-casa/uinstall/pkg/snapshot"
	"github.com/natefinch/atomic"
)

// StepLookup resolves step names against the current registry.
type StepLookup interface {
	OrdinalOf(name string) (int, bool)
}

// Store manages the on-disk checkpoint. It is not safe for use by more than
// one process against the same path.
type Store struct {
	path   string
	steps  StepLookup
	runID  string
	logger *slog.Logger
	now    func() time.Time

	// writeFile replaces path with the reader's contents. It must never
	// leave a partially written file at path.
	writeFile func(path string, r io.Reader) error
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used to report ignored checkpoints.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithRunID tags saved checkpoints with the current run identifier.
func WithRunID(id string) Option {
	return func(s *Store) {
		s.runID = id
	}
}

// WithClock overrides the clock used for SavedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates a store for the checkpoint at path. Loaded checkpoints
// naming steps unknown to steps are discarded.
func NewStore(path string, steps StepLookup, opts ...Option) *Store {
	s := &Store{
		path:      path,
		steps:     steps,
		logger:    slog.New(slog.DiscardHandler),
		now:       time.Now,
		writeFile: atomic.WriteFile,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the checkpoint file path.
func (s *Store) Path() string {
	return s.path
}

// Save atomically replaces the checkpoint with one naming step.
func (s *Store) Save(step string, snap *snapshot.Snapshot) error {
	if snap == nil {
		snap = snapshot.New()
	}

	cp := Checkpoint{
		Version:           Version,
		RunID:             s.runID,
		LastCompletedStep: step,
		SavedAt:           s.now().UTC(),
		Snapshot:          snap,
	}

	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return &PersistenceError{Op: "save", Path: s.path, Step: step, Err: err}
	}

	// Secrets live in the snapshot, so keep the directory private
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return &PersistenceError{Op: "save", Path: s.path, Step: step, Err: err}
	}

	if err := s.writeFile(s.path, bytes.NewReader(data)); err != nil {
		return &PersistenceError{Op: "save", Path: s.path, Step: step, Err: err}
	}

	s.logger.Debug("checkpoint saved", "step", step, "path", s.path)
	return nil
}

// Load reads the checkpoint. It returns nil when there is no usable
// checkpoint: missing, unreadable, malformed, from another schema version, or
// naming a step the current registry does not know.
func (s *Store) Load() *Checkpoint {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("ignoring unreadable checkpoint", "path", s.path, "error", err)
		}
		return nil
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		s.logger.Warn("ignoring malformed checkpoint", "path", s.path, "error", err)
		return nil
	}

	if cp.Version != Version {
		s.logger.Warn("ignoring checkpoint from another version",
			"path", s.path, "version", cp.Version, "supported", Version)
		return nil
	}

	if cp.LastCompletedStep == "" {
		s.logger.Warn("ignoring checkpoint without a step", "path", s.path)
		return nil
	}

	if s.steps != nil {
		if _, ok := s.steps.OrdinalOf(cp.LastCompletedStep); !ok {
			s.logger.Warn("ignoring checkpoint for unknown step",
				"path", s.path, "step", cp.LastCompletedStep)
			return nil
		}
	}

	if cp.Snapshot == nil {
		cp.Snapshot = snapshot.New()
	}

	return &cp
}

// Clear removes the checkpoint. A missing checkpoint is not an error.
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &PersistenceError{Op: "clear", Path: s.path, Err: err}
	}
	s.logger.Debug("checkpoint cleared", "path", s.path)
	return nil
}
