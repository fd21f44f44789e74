package registry

import (
	"context"
	"testing"

	"github.com/jaspreet-dot-casa/uinstall/pkg/snapshot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(_ context.Context, _ *snapshot.Snapshot) error { return nil }

func TestNew_AssignsDenseOrdinals(t *testing.T) {
	r, err := New(
		Definition{Name: "fetch", Run: noop},
		Definition{Name: "install", Title: "Install packages", Run: noop},
		Definition{Name: "configure", Run: noop},
	)
	require.NoError(t, err)

	assert.Equal(t, 3, r.Len())
	assert.Equal(t, []string{"fetch", "install", "configure"}, r.Names())

	for i, s := range r.Steps() {
		assert.Equal(t, i+1, s.Ordinal)
	}

	step, ok := r.Lookup("install")
	require.True(t, ok)
	assert.Equal(t, "Install packages", step.Title)

	step, ok = r.Lookup("fetch")
	require.True(t, ok)
	assert.Equal(t, "fetch", step.Title, "title defaults to name")
}

func TestNew_Invalid(t *testing.T) {
	tests := []struct {
		name string
		defs []Definition
		want error
	}{
		{
			name: "empty name",
			defs: []Definition{{Name: "  ", Run: noop}},
			want: ErrEmptyName,
		},
		{
			name: "duplicate",
			defs: []Definition{{Name: "a", Run: noop}, {Name: "a", Run: noop}},
			want: ErrDuplicateStep,
		},
		{
			name: "nil func",
			defs: []Definition{{Name: "a"}},
			want: ErrNilFunc,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.defs...)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestMustNew_Panics(t *testing.T) {
	assert.Panics(t, func() {
		MustNew(Definition{Name: "a", Run: noop}, Definition{Name: "a", Run: noop})
	})
}

func TestOrdinalOf(t *testing.T) {
	r := MustNew(
		Definition{Name: "fetch", Run: noop},
		Definition{Name: "install", Run: noop},
	)

	ord, ok := r.OrdinalOf("install")
	assert.True(t, ok)
	assert.Equal(t, 2, ord)

	_, ok = r.OrdinalOf("missing")
	assert.False(t, ok)
}

func TestSteps_ReturnsCopy(t *testing.T) {
	r := MustNew(Definition{Name: "fetch", Run: noop})

	steps := r.Steps()
	steps[0].Name = "mutated"

	assert.Equal(t, []string{"fetch"}, r.Names())
}
