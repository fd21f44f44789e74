package cleanup

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jaspreet-dot-casa/uinstall/pkg/orchestrator"
	"github.com/jaspreet-dot-casa/uinstall/pkg/registry"
	"github.com/jaspreet-dot-casa/uinstall/pkg/snapshot"
	"github.com/jaspreet-dot-casa/uinstall/pkg/state"
	"github.com/jaspreet-dot-casa/uinstall/pkg/system"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockRunner is a mock command runner for testing.
type MockRunner struct {
	RunFunc func(cmd system.Command) (string, error)
	Ran     []string
}

func (m *MockRunner) LookPath(file string) (string, error) {
	return "/usr/bin/" + file, nil
}

func (m *MockRunner) Run(_ context.Context, cmd system.Command) (string, error) {
	m.Ran = append(m.Ran, cmd.String())
	if m.RunFunc != nil {
		return m.RunFunc(cmd)
	}
	return "", nil
}

func (m *MockRunner) FileExists(string) bool {
	return true
}

type recorder struct {
	ran  []string
	fail map[string]error
}

func (r *recorder) registry() *registry.Registry {
	var defs []registry.Definition
	for _, name := range []string{"fetch", "install", "configure", "start"} {
		defs = append(defs, registry.Definition{
			Name: name,
			Run: func(context.Context, *snapshot.Snapshot) error {
				r.ran = append(r.ran, name)
				return r.fail[name]
			},
		})
	}
	return registry.MustNew(defs...)
}

func newDataDir(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "data")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "models"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "models", "weights.bin"), []byte("x"), 0o644))
	return dir
}

func TestClean_ScenarioD(t *testing.T) {
	rec := &recorder{fail: map[string]error{"configure": errors.New("boom")}}
	reg := rec.registry()
	store := state.NewStore(filepath.Join(t.TempDir(), state.FileName), reg)

	err := orchestrator.New(reg, store).Run(context.Background(), snapshot.New())
	require.Error(t, err)
	require.NotNil(t, store.Load())

	runner := &MockRunner{}
	var out bytes.Buffer
	svc := New(Config{Store: store, Runner: runner, Out: &out, StopCommands: []string{"systemctl stop app"}})

	result, err := svc.Clean(context.Background(), Options{})
	require.NoError(t, err)
	assert.Nil(t, store.Load())
	assert.False(t, result.Purged)
	assert.Equal(t, []string{"systemctl stop app"}, runner.Ran)
	assert.Contains(t, out.String(), "Removed checkpoint")

	rec.ran = nil
	delete(rec.fail, "configure")
	require.NoError(t, orchestrator.New(reg, store).Run(context.Background(), snapshot.New()))
	assert.Equal(t, []string{"fetch", "install", "configure", "start"}, rec.ran)
}

func TestClean_NoCheckpoint(t *testing.T) {
	store := state.NewStore(filepath.Join(t.TempDir(), state.FileName), nil)
	svc := New(Config{Store: store, Runner: &MockRunner{}})

	_, err := svc.Clean(context.Background(), Options{})
	assert.NoError(t, err)
}

func TestClean_StopFailuresAreWarnings(t *testing.T) {
	store := state.NewStore(filepath.Join(t.TempDir(), state.FileName), nil)
	require.NoError(t, store.Save("fetch", snapshot.New()))

	runner := &MockRunner{
		RunFunc: func(cmd system.Command) (string, error) {
			if cmd.Args[0] == "down" {
				return "", errors.New("compose file not found")
			}
			return "", nil
		},
	}
	var out bytes.Buffer
	svc := New(Config{
		Store:        store,
		Runner:       runner,
		Out:          &out,
		StopCommands: []string{"docker-compose down", `unterminated "quote`, "systemctl stop app"},
	})

	result, err := svc.Clean(context.Background(), Options{})
	require.NoError(t, err)
	assert.Nil(t, store.Load())
	assert.Equal(t, []string{"systemctl stop app"}, result.StoppedServices)
	assert.Len(t, result.StopWarnings, 2)
	assert.Contains(t, out.String(), "compose file not found")
}

func TestClean_Purge(t *testing.T) {
	dataDir := newDataDir(t)
	store := state.NewStore(filepath.Join(t.TempDir(), state.FileName), nil)
	svc := New(Config{Store: store, Runner: &MockRunner{}, DataDir: dataDir})

	result, err := svc.Clean(context.Background(), Options{Purge: true})
	require.NoError(t, err)
	assert.True(t, result.Purged)
	assert.NoDirExists(t, dataDir)
}

func TestClean_Confirm(t *testing.T) {
	tests := []struct {
		name      string
		answer    bool
		wantExist bool
	}{
		{"confirmed", true, false},
		{"declined", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dataDir := newDataDir(t)
			store := state.NewStore(filepath.Join(t.TempDir(), state.FileName), nil)
			svc := New(Config{Store: store, Runner: &MockRunner{}, DataDir: dataDir})

			var asked string
			result, err := svc.Clean(context.Background(), Options{
				Confirm: func(path string) (bool, error) {
					asked = path
					return tt.answer, nil
				},
			})
			require.NoError(t, err)
			assert.Equal(t, dataDir, asked)
			assert.Equal(t, !tt.wantExist, result.Purged)
			if tt.wantExist {
				assert.DirExists(t, dataDir)
			} else {
				assert.NoDirExists(t, dataDir)
			}
		})
	}
}

func TestClean_ConfirmNotAskedForMissingDir(t *testing.T) {
	store := state.NewStore(filepath.Join(t.TempDir(), state.FileName), nil)
	svc := New(Config{Store: store, Runner: &MockRunner{}, DataDir: filepath.Join(t.TempDir(), "never-created")})

	_, err := svc.Clean(context.Background(), Options{
		Confirm: func(string) (bool, error) {
			t.Fatal("should not ask")
			return false, nil
		},
	})
	assert.NoError(t, err)
}

func TestClean_UnsafePurge(t *testing.T) {
	home := t.TempDir()
	tests := []struct {
		name    string
		dataDir string
	}{
		{"empty", ""},
		{"root", "/"},
		{"root with dots", "/var/.."},
		{"home", home},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := state.NewStore(filepath.Join(t.TempDir(), state.FileName), nil)
			require.NoError(t, store.Save("fetch", snapshot.New()))
			svc := New(Config{Store: store, Runner: &MockRunner{}, DataDir: tt.dataDir, HomeDir: home})

			_, err := svc.Clean(context.Background(), Options{Purge: true})
			assert.ErrorIs(t, err, ErrUnsafePurge)
			assert.NotNil(t, store.Load(), "nothing is touched when purge is refused")
		})
	}
	assert.DirExists(t, home)
}

func TestClean_UnsafeDirNotOfferedInteractively(t *testing.T) {
	store := state.NewStore(filepath.Join(t.TempDir(), state.FileName), nil)
	svc := New(Config{Store: store, Runner: &MockRunner{}, DataDir: "/"})

	_, err := svc.Clean(context.Background(), Options{
		Confirm: func(string) (bool, error) {
			t.Fatal("should not ask")
			return true, nil
		},
	})
	assert.NoError(t, err)
}

func TestResume_WithoutCheckpointWarns(t *testing.T) {
	rec := &recorder{}
	reg := rec.registry()
	store := state.NewStore(filepath.Join(t.TempDir(), state.FileName), reg)

	var out bytes.Buffer
	svc := New(Config{Store: store, Runner: &MockRunner{}, Out: &out})

	o := orchestrator.New(reg, store, orchestrator.WithResume(true))
	require.NoError(t, svc.Resume(context.Background(), o, snapshot.New()))

	assert.Contains(t, out.String(), "No checkpoint found")
	assert.Equal(t, []string{"fetch", "install", "configure", "start"}, rec.ran)
}

func TestResume_FromCheckpoint(t *testing.T) {
	rec := &recorder{}
	reg := rec.registry()
	store := state.NewStore(filepath.Join(t.TempDir(), state.FileName), reg)
	require.NoError(t, store.Save("install", snapshot.New()))

	var out bytes.Buffer
	svc := New(Config{Store: store, Runner: &MockRunner{}, Out: &out})

	o := orchestrator.New(reg, store, orchestrator.WithResume(true))
	require.NoError(t, svc.Resume(context.Background(), o, snapshot.New()))

	assert.Contains(t, out.String(), "Resuming after install")
	assert.Equal(t, []string{"configure", "start"}, rec.ran)
}
