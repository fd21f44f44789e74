// Package cleanup implements the --resume and --clean recovery paths.
package cleanup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jaspreet-dot-casa/uinstall/pkg/snapshot"
	"github.com/jaspreet-dot-casa/uinstall/pkg/state"
	"github.com/jaspreet-dot-casa/uinstall/pkg/system"
)

// ErrUnsafePurge is returned when the data directory is a location that must
// never be removed.
var ErrUnsafePurge = errors.New("refusing to purge unsafe path")

// Store is the checkpoint store being cleaned.
type Store interface {
	Clear() error
	Path() string
}

// Resumer runs an installation that was asked to resume.
type Resumer interface {
	Loaded() *state.Checkpoint
	Run(ctx context.Context, snap *snapshot.Snapshot) error
}

// Config holds the dependencies of a Service.
type Config struct {
	Store        Store
	Runner       system.Runner
	Logger       *slog.Logger
	Out          io.Writer
	StopCommands []string
	DataDir      string
	HomeDir      string // Defaults to os.UserHomeDir
}

// Service performs recovery operations.
type Service struct {
	cfg Config
}

// New creates a cleanup service.
func New(cfg Config) *Service {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Out == nil {
		cfg.Out = io.Discard
	}
	if cfg.Runner == nil {
		cfg.Runner = system.NewExecRunner(cfg.Logger)
	}
	if cfg.HomeDir == "" {
		cfg.HomeDir, _ = os.UserHomeDir()
	}
	return &Service{cfg: cfg}
}

// Resume runs r, which must have been created with resume requested. When
// there is no usable checkpoint a warning is printed and the run starts from
// the first step.
func (s *Service) Resume(ctx context.Context, r Resumer, snap *snapshot.Snapshot) error {
	cp := r.Loaded()
	if cp == nil {
		s.cfg.Logger.Warn("no usable checkpoint, starting a fresh run")
		fmt.Fprintln(s.cfg.Out, warnStyle.Render("No checkpoint found; starting from the first step."))
	} else {
		fmt.Fprintf(s.cfg.Out, "Resuming after %s (saved %s)\n", cp.LastCompletedStep, cp.SavedAt.Local().Format("2006-01-02 15:04:05"))
	}
	return r.Run(ctx, snap)
}

// Options controls Clean.
type Options struct {
	// Purge deletes the data directory without asking.
	Purge bool
	// Confirm is asked before deleting the data directory when Purge is
	// false. A nil Confirm keeps the data.
	Confirm func(path string) (bool, error)
}

// Result describes what Clean did.
type Result struct {
	StoppedServices []string
	StopWarnings    []string
	Purged          bool
}

// Clean stops externally managed services, removes the checkpoint and
// optionally deletes the data directory.
func (s *Service) Clean(ctx context.Context, opts Options) (*Result, error) {
	result := &Result{}

	var dataDir string
	if opts.Purge || opts.Confirm != nil {
		dir, err := s.safePurgePath(s.cfg.DataDir)
		if err != nil {
			if opts.Purge {
				return result, err
			}
			s.cfg.Logger.Warn("data directory will not be offered for deletion", "path", s.cfg.DataDir, "error", err)
		} else {
			dataDir = dir
		}
	}

	s.stopServices(ctx, result)

	if err := s.cfg.Store.Clear(); err != nil {
		return result, fmt.Errorf("remove checkpoint: %w", err)
	}
	s.cfg.Logger.Info("checkpoint removed", "path", s.cfg.Store.Path())
	fmt.Fprintf(s.cfg.Out, "Removed checkpoint %s\n", s.cfg.Store.Path())

	if dataDir == "" {
		return result, nil
	}
	if _, err := os.Stat(dataDir); errors.Is(err, os.ErrNotExist) {
		return result, nil
	}

	purge := opts.Purge
	if !purge {
		ok, err := opts.Confirm(dataDir)
		if err != nil {
			return result, err
		}
		purge = ok
	}
	if !purge {
		fmt.Fprintf(s.cfg.Out, "Kept data directory %s\n", dataDir)
		return result, nil
	}

	if err := os.RemoveAll(dataDir); err != nil {
		return result, fmt.Errorf("remove data directory %s: %w", dataDir, err)
	}
	result.Purged = true
	s.cfg.Logger.Info("data directory removed", "path", dataDir)
	fmt.Fprintf(s.cfg.Out, "Removed data directory %s\n", dataDir)

	return result, nil
}

// stopServices runs each stop command. Failures are recorded as warnings.
func (s *Service) stopServices(ctx context.Context, result *Result) {
	for _, line := range s.cfg.StopCommands {
		cmd, err := system.Parse(line)
		if err == nil {
			_, err = s.cfg.Runner.Run(ctx, cmd)
		}
		if err != nil {
			s.cfg.Logger.Warn("stop command failed", "command", line, "error", err)
			result.StopWarnings = append(result.StopWarnings, fmt.Sprintf("%s: %v", line, err))
			fmt.Fprintf(s.cfg.Out, "%s %s: %v\n", warnStyle.Render("warning:"), line, err)
			continue
		}
		result.StoppedServices = append(result.StoppedServices, line)
		s.cfg.Logger.Info("stopped service", "command", line)
	}
}

// safePurgePath returns the absolute data directory, or ErrUnsafePurge for an
// empty path, the filesystem root or the home directory.
func (s *Service) safePurgePath(dir string) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("%w: data directory is not set", ErrUnsafePurge)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsafePurge, err)
	}
	if abs == string(filepath.Separator) || abs == filepath.VolumeName(abs)+string(filepath.Separator) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePurge, abs)
	}
	if s.cfg.HomeDir != "" {
		if home, err := filepath.Abs(s.cfg.HomeDir); err == nil && home == abs {
			return "", fmt.Errorf("%w: %s is the home directory", ErrUnsafePurge, abs)
		}
	}
	return abs, nil
}
