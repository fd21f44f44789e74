// Package orchestrator runs the registered installation steps in order,
// skipping work recorded in a prior checkpoint and checkpointing after every
// successful step.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/jaspreet-dot-casa/uinstall/pkg/registry"
	"github.com/jaspreet-dot-casa/uinstall/pkg/snapshot"
	"github.com/jaspreet-dot-casa/uinstall/pkg/state"
)

// Phase is the orchestrator's lifecycle state.
type Phase int

const (
	// PhaseNotStarted is the state before Run is called.
	PhaseNotStarted Phase = iota
	// PhaseRunning means a step is being attempted.
	PhaseRunning
	// PhaseFailed means a step failed or its checkpoint could not be written.
	PhaseFailed
	// PhaseCompleted means every step succeeded and the checkpoint was cleared.
	PhaseCompleted
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseNotStarted:
		return "not-started"
	case PhaseRunning:
		return "running"
	case PhaseFailed:
		return "failed"
	case PhaseCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// CheckpointStore persists progress between runs.
type CheckpointStore interface {
	Save(step string, snap *snapshot.Snapshot) error
	Load() *state.Checkpoint
	Clear() error
}

// Orchestrator executes a registry against a checkpoint store.
type Orchestrator struct {
	registry *registry.Registry
	store    CheckpointStore
	resume   bool
	logger   *slog.Logger
	progress ProgressCallback

	loadOnce sync.Once
	loaded   *state.Checkpoint

	mu            sync.Mutex
	phase         Phase
	started       bool
	attempting    string
	lastCompleted string
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithResume requests that steps recorded in the checkpoint be skipped.
func WithResume(resume bool) Option {
	return func(o *Orchestrator) {
		o.resume = resume
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithProgress sets the progress callback.
func WithProgress(cb ProgressCallback) Option {
	return func(o *Orchestrator) {
		o.progress = cb
	}
}

// New creates an orchestrator. No I/O happens until Loaded or Run.
func New(reg *registry.Registry, store CheckpointStore, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		registry: reg,
		store:    store,
		logger:   slog.New(slog.DiscardHandler),
		progress: NoOpProgress,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Resume reports whether resume was requested.
func (o *Orchestrator) Resume() bool {
	return o.resume
}

// Loaded returns the checkpoint the run will resume from, or nil. The store
// is only consulted when resume was requested.
func (o *Orchestrator) Loaded() *state.Checkpoint {
	o.loadOnce.Do(func() {
		if o.resume {
			o.loaded = o.store.Load()
		}
	})
	return o.loaded
}

// ShouldSkip reports whether the named step was completed by the run being
// resumed.
func (o *Orchestrator) ShouldSkip(step string) bool {
	cp := o.Loaded()
	if !o.resume || cp == nil {
		return false
	}

	done, ok := o.registry.OrdinalOf(cp.LastCompletedStep)
	if !ok {
		return false
	}
	current, ok := o.registry.OrdinalOf(step)
	if !ok {
		return false
	}

	return done >= current
}

// Run executes every step in registry order. snap is handed to each step by
// pointer; when resuming from a checkpoint its contents are first replaced
// with the checkpointed snapshot.
func (o *Orchestrator) Run(ctx context.Context, snap *snapshot.Snapshot) error {
	if snap == nil {
		snap = snapshot.New()
	}

	total := o.registry.Len()
	runStart := time.Now()

	if cp := o.Loaded(); cp != nil {
		if cp.Snapshot != nil {
			*snap = *cp.Snapshot.Clone()
		}
		o.setLastCompleted(cp.LastCompletedStep)
		o.logger.Info("resuming installation", "last_completed_step", cp.LastCompletedStep, "saved_at", cp.SavedAt)
		o.emit(ProgressEvent{Kind: EventResumeFrom, Step: cp.LastCompletedStep, Total: total})
	} else {
		o.logger.Info("starting installation", "steps", total, "resume_requested", o.resume)
		o.emit(ProgressEvent{Kind: EventFreshRun, Total: total})
	}

	o.mu.Lock()
	o.started = true
	o.phase = PhaseRunning
	o.mu.Unlock()

	for _, step := range o.registry.Steps() {
		if o.ShouldSkip(step.Name) {
			o.logger.Debug("skipping completed step", "step", step.Name)
			o.emit(ProgressEvent{Kind: EventStepSkipped, Step: step.Name, Title: step.Title, Ordinal: step.Ordinal, Total: total})
			continue
		}

		if err := o.runStep(ctx, step, snap, total); err != nil {
			return err
		}
	}

	if err := o.store.Clear(); err != nil {
		// A leftover checkpoint naming the final step only makes a later
		// resume skip everything and clear it again.
		o.logger.Warn("failed to clear checkpoint after completion", "error", err)
	}

	o.mu.Lock()
	o.phase = PhaseCompleted
	o.attempting = ""
	o.mu.Unlock()

	duration := time.Since(runStart)
	o.logger.Info("installation complete", "duration", duration)
	o.emit(ProgressEvent{Kind: EventRunCompleted, Total: total, Duration: duration})

	return nil
}

// runStep executes one step and checkpoints it on success.
func (o *Orchestrator) runStep(ctx context.Context, step registry.Step, snap *snapshot.Snapshot, total int) error {
	o.mu.Lock()
	o.attempting = step.Name
	o.mu.Unlock()

	logger := o.logger.With("step", step.Name, "ordinal", step.Ordinal)

	if err := ctx.Err(); err != nil {
		return o.fail(step, total, 0, err)
	}

	logger.Info("step started")
	o.emit(ProgressEvent{Kind: EventStepStarted, Step: step.Name, Title: step.Title, Ordinal: step.Ordinal, Total: total})

	start := time.Now()
	err := invoke(ctx, step, snap)
	duration := time.Since(start)

	if err == nil && ctx.Err() != nil {
		// The step ignored cancellation; don't record it as done.
		err = ctx.Err()
	}
	if err != nil {
		return o.fail(step, total, duration, err)
	}

	if err := o.store.Save(step.Name, snap); err != nil {
		o.mu.Lock()
		o.phase = PhaseFailed
		o.mu.Unlock()
		logger.Error("checkpoint write failed", "error", err)
		o.emit(ProgressEvent{Kind: EventStepFailed, Step: step.Name, Title: step.Title, Ordinal: step.Ordinal, Total: total, Duration: duration, Err: err})
		return err
	}

	o.setLastCompleted(step.Name)
	logger.Info("step completed", "duration", duration)
	o.emit(ProgressEvent{Kind: EventStepCompleted, Step: step.Name, Title: step.Title, Ordinal: step.Ordinal, Total: total, Duration: duration})

	return nil
}

// invoke calls the step implementation, converting a panic into an error.
func invoke(ctx context.Context, step registry.Step, snap *snapshot.Snapshot) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
		}
	}()
	return step.Run(ctx, snap)
}

func (o *Orchestrator) fail(step registry.Step, total int, duration time.Duration, err error) error {
	o.mu.Lock()
	o.phase = PhaseFailed
	o.mu.Unlock()

	failure := &StepFailure{Step: step.Name, Ordinal: step.Ordinal, Err: err}
	o.logger.Error("step failed", "step", step.Name, "ordinal", step.Ordinal, "error", err)
	o.emit(ProgressEvent{Kind: EventStepFailed, Step: step.Name, Title: step.Title, Ordinal: step.Ordinal, Total: total, Duration: duration, Err: failure})

	return failure
}

func (o *Orchestrator) setLastCompleted(step string) {
	o.mu.Lock()
	o.lastCompleted = step
	o.mu.Unlock()
}

func (o *Orchestrator) emit(e ProgressEvent) {
	e.Timestamp = time.Now()
	o.progress(e)
}

// Started reports whether Run has begun executing steps.
func (o *Orchestrator) Started() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.started
}

// Phase returns the current lifecycle phase.
func (o *Orchestrator) Phase() Phase {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.phase
}

// Attempting returns the step being run, or the step that failed.
func (o *Orchestrator) Attempting() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.attempting
}

// LastCompleted returns the most recent checkpointed step, including one
// restored from a resumed checkpoint.
func (o *Orchestrator) LastCompleted() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastCompleted
}
