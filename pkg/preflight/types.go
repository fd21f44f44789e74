// Package preflight validates the host before any installation step runs.
package preflight

import (
	"fmt"
	"strings"
)

// CheckStatus represents the status of a pre-flight check.
type CheckStatus int

const (
	// StatusOK indicates the requirement is met.
	StatusOK CheckStatus = iota
	// StatusMissing indicates something required is not present.
	StatusMissing
	// StatusError indicates the requirement is not met or could not be checked.
	StatusError
	// StatusWarning indicates a problem that does not block installation.
	StatusWarning
	// StatusSkipped indicates the check is disabled by configuration.
	StatusSkipped
)

// String returns the string representation of the status.
func (s CheckStatus) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusMissing:
		return "missing"
	case StatusError:
		return "error"
	case StatusWarning:
		return "warning"
	case StatusSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Blocking reports whether the status prevents installation.
func (s CheckStatus) Blocking() bool {
	return s == StatusMissing || s == StatusError
}

// Check represents a single pre-flight check result.
type Check struct {
	ID      string      // Unique identifier, e.g., "disk", "tool:curl"
	Name    string      // Display name
	Status  CheckStatus // Result
	Message string      // Detail shown to the user
	Fix     string      // Suggested remedy, empty if none
}

// CheckID constants for the built-in checks.
const (
	IDPlatform     = "platform"
	IDPrivilege    = "privilege"
	IDDisk         = "disk"
	IDConnectivity = "connectivity"
	idToolPrefix   = "tool:"
)

// Summary counts check results by status.
type Summary struct {
	Total    int
	OK       int
	Missing  int
	Warnings int
	Errors   int
	Skipped  int
}

// Summarize counts check results.
func Summarize(checks []Check) Summary {
	var s Summary
	for _, c := range checks {
		s.Total++
		switch c.Status {
		case StatusOK:
			s.OK++
		case StatusMissing:
			s.Missing++
		case StatusWarning:
			s.Warnings++
		case StatusError:
			s.Errors++
		case StatusSkipped:
			s.Skipped++
		}
	}
	return s
}

// Error is returned when one or more blocking checks fail.
type Error struct {
	Failed []Check
}

func (e *Error) Error() string {
	parts := make([]string, 0, len(e.Failed))
	for _, c := range e.Failed {
		parts = append(parts, fmt.Sprintf("%s: %s", c.Name, c.Message))
	}
	return "pre-flight checks failed: " + strings.Join(parts, "; ")
}

// Evaluate returns an *Error listing the blocking checks, or nil.
func Evaluate(checks []Check) error {
	var failed []Check
	for _, c := range checks {
		if c.Status.Blocking() {
			failed = append(failed, c)
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return &Error{Failed: failed}
}
