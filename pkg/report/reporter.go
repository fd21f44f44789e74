// Package report renders installation progress and state on the console.
package report

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/jaspreet-dot-casa/uinstall/pkg/orchestrator"
)

// Verbosity controls how much progress is printed.
type Verbosity int

const (
	// Quiet prints failures and the final result only.
	Quiet Verbosity = iota
	// Normal prints one line per step.
	Normal
	// Verbose adds durations and resume details.
	Verbose
)

// String returns the string representation of the verbosity.
func (v Verbosity) String() string {
	switch v {
	case Quiet:
		return "quiet"
	case Normal:
		return "normal"
	case Verbose:
		return "verbose"
	default:
		return "unknown"
	}
}

// Reporter prints orchestrator progress events.
type Reporter struct {
	mu        sync.Mutex
	out       io.Writer
	verbosity Verbosity
}

// New creates a reporter writing to out.
func New(out io.Writer, verbosity Verbosity) *Reporter {
	return &Reporter{out: out, verbosity: verbosity}
}

// Callback returns a progress callback bound to the reporter.
func (r *Reporter) Callback() orchestrator.ProgressCallback {
	return r.Handle
}

// Handle prints a single event.
func (r *Reporter) Handle(e orchestrator.ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch e.Kind {
	case orchestrator.EventFreshRun:
		if r.verbosity >= Verbose {
			fmt.Fprintf(r.out, "%s %d steps\n", AccentStyle.Render("Starting installation:"), e.Total)
		}
	case orchestrator.EventResumeFrom:
		if r.verbosity >= Normal {
			fmt.Fprintf(r.out, "%s %s\n", AccentStyle.Render("Resuming after"), BoldStyle.Render(e.Step))
		}
	case orchestrator.EventStepSkipped:
		if r.verbosity >= Normal {
			fmt.Fprintf(r.out, "%s %s %s\n", r.position(e), DimStyle.Render("skip"), DimStyle.Render(e.Title))
		}
	case orchestrator.EventStepStarted:
		if r.verbosity >= Verbose {
			fmt.Fprintf(r.out, "%s %s  %s\n", r.position(e), AccentStyle.Render("run"), e.Title)
		}
	case orchestrator.EventStepCompleted:
		if r.verbosity >= Normal {
			line := fmt.Sprintf("%s %s %s", r.position(e), SuccessStyle.Render("done"), e.Title)
			if r.verbosity >= Verbose {
				line += " " + DimStyle.Render(formatDuration(e.Duration))
			}
			fmt.Fprintln(r.out, line)
		}
	case orchestrator.EventStepFailed:
		fmt.Fprintf(r.out, "%s %s %s: %v\n", r.position(e), ErrorStyle.Render("fail"), e.Title, e.Err)
	case orchestrator.EventRunCompleted:
		line := SuccessStyle.Render("Installation complete.")
		if r.verbosity >= Verbose {
			line += " " + DimStyle.Render(formatDuration(e.Duration))
		}
		fmt.Fprintln(r.out, line)
	}
}

func (r *Reporter) position(e orchestrator.ProgressEvent) string {
	return DimStyle.Render(fmt.Sprintf("[%d/%d]", e.Ordinal, e.Total))
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return d.Round(time.Millisecond).String()
	case d < time.Minute:
		return d.Round(100 * time.Millisecond).String()
	default:
		return d.Round(time.Second).String()
	}
}
