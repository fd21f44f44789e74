package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/jaspreet-dot-casa/uinstall/pkg/config"
	"github.com/jaspreet-dot-casa/uinstall/pkg/installsteps"
	"github.com/jaspreet-dot-casa/uinstall/pkg/orchestrator"
	"github.com/jaspreet-dot-casa/uinstall/pkg/preflight"
	"github.com/jaspreet-dot-casa/uinstall/pkg/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testEnv is a config rooted in a temp dir with every host check disabled.
type testEnv struct {
	root       string
	configPath string
}

func newTestEnv(t *testing.T, startCommand string) *testEnv {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	env := &testEnv{root: t.TempDir()}
	env.configPath = filepath.Join(env.root, "config.yaml")
	env.writeConfig(t, startCommand)
	return env
}

func (e *testEnv) writeConfig(t *testing.T, startCommand string) {
	t.Helper()
	content := fmt.Sprintf(`
paths:
  state_dir: %[1]s/state
  log_dir: %[1]s/log
  data_dir: %[1]s/data
  install_dir: %[1]s/opt
  components_dir: %[1]s/components
install:
  base_packages: []
services:
  start_command: %[2]q
preflight:
  require_root: false
  min_disk_gb: 0
  required_tools: []
  platforms: []
`, e.root, startCommand)
	require.NoError(t, os.WriteFile(e.configPath, []byte(content), 0o644))
}

func (e *testEnv) checkpointPath() string {
	return filepath.Join(e.root, "state", state.FileName)
}

// execute runs the root command and returns stdout, stderr and the error.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	rootCmd := newRootCmd()
	rootCmd.SetArgs(args)

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)

	err := rootCmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestNewRootCmd(t *testing.T) {
	rootCmd := newRootCmd()

	assert.Equal(t, "uinstall", rootCmd.Use)
	assert.Equal(t, "Resumable installer", rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestRootCmdHelp(t *testing.T) {
	out, _, err := execute(t, "--help")
	require.NoError(t, err)

	assert.Contains(t, out, "uinstall")
	assert.Contains(t, out, "--resume")
	assert.Contains(t, out, "--clean")
	assert.Contains(t, out, "status")
	assert.Contains(t, out, "steps")
	assert.Contains(t, out, "config")
}

func TestRootCmdVersion(t *testing.T) {
	out, _, err := execute(t, "--version")
	require.NoError(t, err)

	assert.Contains(t, out, "uinstall version")
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, exitOK},
		{"step failure", &orchestrator.StepFailure{Step: "write-config", Err: errors.New("disk full")}, exitFailure},
		{"persistence", &state.PersistenceError{Op: "save", Err: errors.New("read-only")}, exitFailure},
		{"configuration", &config.ConfigurationError{Field: "install.mode", Reason: "bad"}, exitRejected},
		{"wrapped configuration", fmt.Errorf("load: %w", &config.ConfigurationError{Field: "x"}), exitRejected},
		{"preflight", &preflight.Error{}, exitRejected},
		{"other", errors.New("boom"), exitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func TestRootCmd_MutuallyExclusiveFlags(t *testing.T) {
	env := newTestEnv(t, "")

	_, _, err := execute(t, "--config", env.configPath, "--resume", "--clean")
	assert.Error(t, err)

	_, _, err = execute(t, "--config", env.configPath, "--verbose", "--quiet")
	assert.Error(t, err)
}

func TestRootCmd_PurgeRequiresClean(t *testing.T) {
	env := newTestEnv(t, "")

	_, _, err := execute(t, "--config", env.configPath, "--purge")

	var cfgErr *config.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, exitRejected, exitCode(err))
}

func TestRootCmd_MissingConfigFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	_, _, err := execute(t, "--config", filepath.Join(t.TempDir(), "absent.yaml"), "--check")
	assert.Equal(t, exitRejected, exitCode(err))
}

func TestRootCmd_Check(t *testing.T) {
	env := newTestEnv(t, "")

	out, _, err := execute(t, "--config", env.configPath, "--check")
	require.NoError(t, err)

	assert.Contains(t, out, "Platform")
	assert.Contains(t, out, "Privileges")
	assert.NoFileExists(t, env.checkpointPath())
}

func TestRootCmd_FullRun(t *testing.T) {
	env := newTestEnv(t, "true")

	out, _, err := execute(t, "--config", env.configPath, "--verbose")
	require.NoError(t, err)

	assert.Contains(t, out, "Installation complete.")
	assert.NoFileExists(t, env.checkpointPath())
	assert.FileExists(t, filepath.Join(env.root, "opt", installsteps.EnvFileName))
	assert.FileExists(t, filepath.Join(env.root, "log", "install.log"))
}

func TestRootCmd_FailResumeClean(t *testing.T) {
	env := newTestEnv(t, "false")

	_, stderr, err := execute(t, "--config", env.configPath)
	require.Error(t, err)
	assert.Equal(t, exitFailure, exitCode(err))
	assert.Contains(t, stderr, "Failed step:")
	assert.Contains(t, stderr, installsteps.StepStartServices)
	assert.Contains(t, stderr, "uinstall --resume")
	require.FileExists(t, env.checkpointPath())

	out, _, err := execute(t, "--config", env.configPath, "status")
	require.NoError(t, err)
	assert.Contains(t, out, installsteps.StepWriteConfig)

	out, _, err = execute(t, "--config", env.configPath, "steps")
	require.NoError(t, err)
	assert.Contains(t, out, "done")
	assert.Contains(t, out, "pending")

	// Fix the start command and resume from start-services.
	env.writeConfig(t, "true")
	out, _, err = execute(t, "--config", env.configPath, "--resume")
	require.NoError(t, err)
	assert.Contains(t, out, "Resuming after")
	assert.Contains(t, out, "skip")
	assert.Contains(t, out, "Installation complete.")
	assert.NoFileExists(t, env.checkpointPath())
}

func TestRootCmd_Clean(t *testing.T) {
	env := newTestEnv(t, "false")

	_, _, err := execute(t, "--config", env.configPath)
	require.Error(t, err)
	require.FileExists(t, env.checkpointPath())

	dataDir := filepath.Join(env.root, "data")
	require.NoError(t, os.MkdirAll(dataDir, 0o755))

	_, _, err = execute(t, "--config", env.configPath, "--clean", "--purge")
	require.NoError(t, err)

	assert.NoFileExists(t, env.checkpointPath())
	assert.NoDirExists(t, dataDir)
}

func TestStatusCmd_NoCheckpoint(t *testing.T) {
	env := newTestEnv(t, "")

	out, _, err := execute(t, "--config", env.configPath, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "No checkpoint at")
}

func TestStepsCmd(t *testing.T) {
	env := newTestEnv(t, "")

	out, _, err := execute(t, "--config", env.configPath, "steps")
	require.NoError(t, err)

	for _, name := range []string{
		installsteps.StepDetectHardware,
		installsteps.StepAllocatePorts,
		installsteps.StepVerifyServices,
	} {
		assert.Contains(t, out, name)
	}
	assert.NotContains(t, out, "done")
}

func TestConfigCmd(t *testing.T) {
	env := newTestEnv(t, "")

	out, _, err := execute(t, "--config", env.configPath, "config")
	require.NoError(t, err)

	assert.Contains(t, out, "# "+env.configPath)
	assert.Contains(t, out, "paths:")
	assert.Contains(t, out, env.root)
}
