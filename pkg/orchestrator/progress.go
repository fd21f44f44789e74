package orchestrator

import "time"

// EventKind identifies a progress event.
type EventKind string

const (
	EventFreshRun      EventKind = "fresh-run"
	EventResumeFrom    EventKind = "resume-from"
	EventStepSkipped   EventKind = "step-skipped"
	EventStepStarted   EventKind = "step-started"
	EventStepCompleted EventKind = "step-completed"
	EventStepFailed    EventKind = "step-failed"
	EventRunCompleted  EventKind = "run-completed"
)

// String returns the string representation of the kind.
func (k EventKind) String() string {
	return string(k)
}

// ProgressEvent represents an orchestration progress update.
type ProgressEvent struct {
	Kind      EventKind
	Step      string        // Step name, empty for run-level events
	Title     string        // Step display title
	Ordinal   int           // 1-based step position
	Total     int           // Number of registered steps
	Duration  time.Duration // Step or run duration when finished
	Err       error         // Set for EventStepFailed
	Timestamp time.Time
}

// ProgressCallback is called with progress updates during a run.
type ProgressCallback func(ProgressEvent)

// NoOpProgress is a progress callback that does nothing.
func NoOpProgress(_ ProgressEvent) {}

// ProgressTracker collects progress events for later review.
type ProgressTracker struct {
	events []ProgressEvent
}

// NewProgressTracker creates a new progress tracker.
func NewProgressTracker() *ProgressTracker {
	return &ProgressTracker{
		events: make([]ProgressEvent, 0),
	}
}

// Callback returns a ProgressCallback that records events.
func (t *ProgressTracker) Callback() ProgressCallback {
	return func(e ProgressEvent) {
		t.events = append(t.events, e)
	}
}

// Events returns all recorded events.
func (t *ProgressTracker) Events() []ProgressEvent {
	return t.events
}

// StepsWith returns the step names of events of the given kind, in order.
func (t *ProgressTracker) StepsWith(kind EventKind) []string {
	var names []string
	for _, e := range t.events {
		if e.Kind == kind {
			names = append(names, e.Step)
		}
	}
	return names
}
