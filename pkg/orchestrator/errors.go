package orchestrator

import "fmt"

// StepFailure reports a step that returned an error, panicked, or was
// interrupted. The step was not checkpointed; re-running with resume
// retries it from the beginning.
type StepFailure struct {
	Step    string
	Ordinal int
	Err     error
}

func (e *StepFailure) Error() string {
	return fmt.Sprintf("step %q failed: %v", e.Step, e.Err)
}

func (e *StepFailure) Unwrap() error {
	return e.Err
}
