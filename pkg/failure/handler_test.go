package failure

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/jaspreet-dot-casa/uinstall/pkg/orchestrator"
	"github.com/jaspreet-dot-casa/uinstall/pkg/registry"
	"github.com/jaspreet-dot-casa/uinstall/pkg/snapshot"
	"github.com/jaspreet-dot-casa/uinstall/pkg/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTracker struct {
	started       bool
	phase         orchestrator.Phase
	attempting    string
	lastCompleted string
}

func (f *fakeTracker) Started() bool             { return f.started }
func (f *fakeTracker) Phase() orchestrator.Phase { return f.phase }
func (f *fakeTracker) Attempting() string        { return f.attempting }
func (f *fakeTracker) LastCompleted() string     { return f.lastCompleted }

// panickyTracker panics on every accessor.
type panickyTracker struct{}

func (panickyTracker) Started() bool             { return true }
func (panickyTracker) Phase() orchestrator.Phase { panic("phase unavailable") }
func (panickyTracker) Attempting() string        { panic("unreachable") }
func (panickyTracker) LastCompleted() string     { panic("unreachable") }

func okStep(context.Context, *snapshot.Snapshot) error { return nil }

func TestHandler_ScenarioC(t *testing.T) {
	boom := errors.New("template missing")
	reg := registry.MustNew(
		registry.Definition{Name: "fetch", Run: okStep},
		registry.Definition{Name: "install", Run: okStep},
		registry.Definition{Name: "configure", Run: func(context.Context, *snapshot.Snapshot) error { return boom }},
		registry.Definition{Name: "start", Run: okStep},
	)
	store := state.NewStore(filepath.Join(t.TempDir(), state.FileName), reg)
	o := orchestrator.New(reg, store)

	var out bytes.Buffer
	h := NewHandler(o, WithOutput(&out), WithLogPath("/var/log/uinstall/install.log"))

	run := func() (err error) {
		defer h.Guard(&err)
		return o.Run(context.Background(), snapshot.New())
	}
	err := run()

	require.Error(t, err)
	assert.True(t, h.Reported())

	text := out.String()
	assert.Contains(t, text, "Failed step:")
	assert.Contains(t, text, "configure")
	assert.Contains(t, text, "Last completed step:")
	assert.Contains(t, text, "install")
	assert.Contains(t, text, "/var/log/uinstall/install.log")
	assert.Contains(t, text, "uinstall --resume")
	assert.Contains(t, text, "uinstall --clean")
	assert.Contains(t, text, "template missing")

	cp := store.Load()
	require.NotNil(t, cp)
	assert.Equal(t, "install", cp.LastCompletedStep)
}

func TestHandler_FirstStepFailureShowsNone(t *testing.T) {
	var out bytes.Buffer
	tracker := &fakeTracker{started: true, phase: orchestrator.PhaseFailed, attempting: "detect-hardware"}
	h := NewHandler(tracker, WithOutput(&out), WithProgram("./uinstall"))

	h.Report(errors.New("lspci not found"))

	assert.Contains(t, out.String(), "(none)")
	assert.Contains(t, out.String(), "./uinstall --resume")
}

func TestHandler_SilentBeforeStart(t *testing.T) {
	var out bytes.Buffer
	h := NewHandler(&fakeTracker{}, WithOutput(&out))

	h.Report(errors.New("bad config"))

	assert.Empty(t, out.String())
	assert.False(t, h.Reported())
}

func TestHandler_SilentAfterCompletion(t *testing.T) {
	var out bytes.Buffer
	h := NewHandler(&fakeTracker{started: true, phase: orchestrator.PhaseCompleted}, WithOutput(&out))

	h.Report(errors.New("late error"))

	assert.Empty(t, out.String())
}

func TestHandler_ReportsOnce(t *testing.T) {
	var out bytes.Buffer
	tracker := &fakeTracker{started: true, phase: orchestrator.PhaseFailed, attempting: "start-services", lastCompleted: "write-config"}
	h := NewHandler(tracker, WithOutput(&out))

	h.Report(errors.New("first"))
	first := out.Len()
	h.Report(errors.New("second"))

	assert.Equal(t, first, out.Len())
	assert.NotContains(t, out.String(), "second")
}

func TestHandler_GuardRecoversPanic(t *testing.T) {
	var out bytes.Buffer
	tracker := &fakeTracker{started: true, phase: orchestrator.PhaseRunning, attempting: "install-packages", lastCompleted: "allocate-ports"}
	h := NewHandler(tracker, WithOutput(&out))

	run := func() (err error) {
		defer h.Guard(&err)
		panic("apt lock held")
	}

	var err error
	assert.NotPanics(t, func() { err = run() })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "apt lock held")
	assert.Contains(t, out.String(), "install-packages")
}

func TestHandler_GuardWithoutError(t *testing.T) {
	var out bytes.Buffer
	h := NewHandler(&fakeTracker{started: true, phase: orchestrator.PhaseRunning}, WithOutput(&out))

	run := func() (err error) {
		defer h.Guard(&err)
		return nil
	}

	require.NoError(t, run())
	assert.Empty(t, out.String())
}

func TestHandler_NeverPanics(t *testing.T) {
	var out bytes.Buffer
	h := NewHandler(panickyTracker{}, WithOutput(&out))

	assert.NotPanics(t, func() { h.Report(errors.New("x")) })
	assert.NotPanics(t, func() { NewHandler(nil).Report(errors.New("x")) })
}
