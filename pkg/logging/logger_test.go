package logging

import (
	"bufio"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readRecords(t *testing.T, path string) []map[string]any {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var records []map[string]any
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &rec))
		records = append(records, rec)
	}
	require.NoError(t, scanner.Err())
	return records
}

func TestNew_WritesJSONWithRunID(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")

	logger, err := New(dir, LevelInfo)
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("step started", "step", "allocate-ports")
	require.NoError(t, logger.Close())

	assert.Equal(t, filepath.Join(dir, FileName), logger.Path())
	records := readRecords(t, logger.Path())
	require.Len(t, records, 1)
	assert.Equal(t, "step started", records[0]["msg"])
	assert.Equal(t, "allocate-ports", records[0]["step"])
	assert.Equal(t, logger.RunID(), records[0]["run_id"])
	assert.NotEmpty(t, logger.RunID())
}

func TestNew_Appends(t *testing.T) {
	dir := t.TempDir()

	for i := 0; i < 2; i++ {
		logger, err := New(dir, LevelDebug)
		require.NoError(t, err)
		logger.Info("run")
		require.NoError(t, logger.Close())
	}

	records := readRecords(t, filepath.Join(dir, FileName))
	require.Len(t, records, 2)
	assert.NotEqual(t, records[0]["run_id"], records[1]["run_id"])
}

func TestNew_Stderr(t *testing.T) {
	logger, err := New("", LevelInfo)
	require.NoError(t, err)
	assert.Empty(t, logger.Path())
	assert.NoError(t, logger.Close())
}

func TestNew_UnwritableDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	_, err := New(filepath.Join(file, "logs"), LevelInfo)
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"DEBUG", slog.LevelDebug},
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestValidLevel(t *testing.T) {
	assert.True(t, ValidLevel("debug"))
	assert.True(t, ValidLevel(""))
	assert.False(t, ValidLevel("LOUD"))
}
