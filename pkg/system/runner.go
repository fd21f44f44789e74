// Package system runs external commands for the installer.
package system

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/google/shlex"
)

// ErrEmptyCommand is returned when a command line has no program name.
var ErrEmptyCommand = errors.New("empty command")

// Command describes a process to run.
type Command struct {
	Name string
	Args []string
	Env  []string // Added to the current environment as KEY=VALUE
	Dir  string
}

// String returns the command line.
func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Runner is an interface for executing commands, allowing for testing.
type Runner interface {
	LookPath(file string) (string, error)
	Run(ctx context.Context, cmd Command) (string, error)
	FileExists(path string) bool
}

// CommandError is returned when a command exits unsuccessfully.
type CommandError struct {
	Command string
	Output  string
	Err     error
}

func (e *CommandError) Error() string {
	out := strings.TrimSpace(e.Output)
	if out == "" {
		return fmt.Sprintf("%s: %v", e.Command, e.Err)
	}
	if len(out) > 512 {
		out = "..." + out[len(out)-512:]
	}
	return fmt.Sprintf("%s: %v: %s", e.Command, e.Err, out)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// Parse splits a shell-style command line into a Command.
func Parse(line string) (Command, error) {
	fields, err := shlex.Split(line)
	if err != nil {
		return Command{}, fmt.Errorf("parse command %q: %w", line, err)
	}
	if len(fields) == 0 {
		return Command{}, ErrEmptyCommand
	}
	return Command{Name: fields[0], Args: fields[1:]}, nil
}

// ExecRunner is the default runner that uses the real system.
type ExecRunner struct {
	logger *slog.Logger
}

// NewExecRunner creates a runner that logs each command it starts.
func NewExecRunner(logger *slog.Logger) *ExecRunner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ExecRunner{logger: logger}
}

// LookPath finds the path to an executable.
func (r *ExecRunner) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

// Run executes a command and returns its combined output. The process is
// killed when ctx is cancelled.
func (r *ExecRunner) Run(ctx context.Context, c Command) (string, error) {
	if c.Name == "" {
		return "", ErrEmptyCommand
	}

	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	r.logger.Debug("running command", "command", c.String(), "dir", c.Dir)
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return out.String(), &CommandError{Command: c.String(), Output: out.String(), Err: err}
	}
	return out.String(), nil
}

// FileExists checks if a file exists.
func (r *ExecRunner) FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
