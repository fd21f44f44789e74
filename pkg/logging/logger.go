// Package logging writes the installer's JSON log file.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Log levels supported by the logger
const (
	LevelDebug = "DEBUG"
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
)

// FileName is the log file created in the log directory.
const FileName = "install.log"

// Logger is an slog.Logger bound to a log file and run ID.
type Logger struct {
	*slog.Logger
	file  *os.File
	path  string
	runID string
}

// New creates a Logger that appends JSON records to {dir}/install.log. Every
// record carries run_id. If dir is empty, logs are written to stderr.
func New(dir, level string) (*Logger, error) {
	var (
		writer io.Writer = os.Stderr
		file   *os.File
		path   string
	)

	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}

		path = filepath.Join(dir, FileName)
		var err error
		file, err = os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		writer = file
	}

	runID := uuid.NewString()
	handler := slog.NewJSONHandler(writer, &slog.HandlerOptions{Level: ParseLevel(level)})

	return &Logger{
		Logger: slog.New(handler).With("run_id", runID),
		file:   file,
		path:   path,
		runID:  runID,
	}, nil
}

// ParseLevel converts a string log level to slog.Level.
// Defaults to INFO if the level string is not recognized.
func ParseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn, "WARNING":
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ValidLevel reports whether level is a recognized level name. Empty means
// the default.
func ValidLevel(level string) bool {
	switch strings.ToUpper(level) {
	case "", LevelDebug, LevelInfo, LevelWarn, "WARNING", LevelError:
		return true
	}
	return false
}

// RunID returns the identifier attached to every record.
func (l *Logger) RunID() string {
	return l.runID
}

// Path returns the log file path, or "" when logging to stderr.
func (l *Logger) Path() string {
	return l.path
}

// Close closes the log file.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}
