// Package failure prints recovery instructions when an installation run ends
// abnormally.
package failure

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/jaspreet-dot-casa/uinstall/pkg/orchestrator"
)

// Tracker is the view of orchestration progress the handler reports on.
type Tracker interface {
	Started() bool
	Phase() orchestrator.Phase
	Attempting() string
	LastCompleted() string
}

var (
	headerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	commandStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
)

// Handler reports the last good checkpoint and recovery commands. Create one
// per process and register it with a deferred Guard before the first step.
type Handler struct {
	tracker Tracker
	out     io.Writer
	program string
	logPath string

	once     sync.Once
	reported bool
}

// Option configures a Handler.
type Option func(*Handler)

// WithOutput sets where the report is written. Defaults to stderr.
func WithOutput(w io.Writer) Option {
	return func(h *Handler) {
		h.out = w
	}
}

// WithProgram sets the command name used in recovery instructions.
func WithProgram(name string) Option {
	return func(h *Handler) {
		h.program = name
	}
}

// WithLogPath sets the log location shown to the user.
func WithLogPath(path string) Option {
	return func(h *Handler) {
		h.logPath = path
	}
}

// NewHandler creates a handler reporting on tracker.
func NewHandler(tracker Tracker, opts ...Option) *Handler {
	h := &Handler{
		tracker: tracker,
		out:     os.Stderr,
		program: "uinstall",
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Guard must be deferred directly:
//
//	defer handler.Guard(&err)
//
// It recovers a panic into *errp and reports any non-nil *errp.
func (h *Handler) Guard(errp *error) {
	if r := recover(); r != nil {
		err := fmt.Errorf("panic: %v", r)
		if errp != nil {
			*errp = err
		}
		h.Report(err)
		return
	}
	if errp != nil && *errp != nil {
		h.Report(*errp)
	}
}

// Report prints recovery instructions for err. It does nothing if
// orchestration never started or already completed, prints at most once,
// and never panics.
func (h *Handler) Report(err error) {
	defer func() {
		_ = recover()
	}()

	if h.tracker == nil || !h.tracker.Started() {
		return
	}
	if h.tracker.Phase() == orchestrator.PhaseCompleted {
		return
	}

	h.once.Do(func() {
		h.reported = true
		h.write(err)
	})
}

// Reported reports whether recovery instructions were printed.
func (h *Handler) Reported() bool {
	return h.reported
}

func (h *Handler) write(err error) {
	attempting := h.tracker.Attempting()
	if attempting == "" {
		attempting = "(unknown)"
	}
	last := h.tracker.LastCompleted()
	if last == "" {
		last = "(none)"
	}
	logPath := h.logPath
	if logPath == "" {
		logPath = "(stderr)"
	}

	fmt.Fprintln(h.out)
	fmt.Fprintln(h.out, headerStyle.Render("Installation did not complete."))
	fmt.Fprintf(h.out, "  %s %s\n", labelStyle.Render("Failed step:        "), attempting)
	fmt.Fprintf(h.out, "  %s %s\n", labelStyle.Render("Last completed step:"), last)
	if err != nil {
		fmt.Fprintf(h.out, "  %s %v\n", labelStyle.Render("Error:              "), err)
	}
	fmt.Fprintf(h.out, "  %s %s\n", labelStyle.Render("Log file:           "), logPath)
	fmt.Fprintln(h.out)
	fmt.Fprintf(h.out, "To continue from the last completed step:\n  %s\n", commandStyle.Render(h.program+" --resume"))
	fmt.Fprintf(h.out, "To discard progress and start over:\n  %s\n", commandStyle.Render(h.program+" --clean"))
}
