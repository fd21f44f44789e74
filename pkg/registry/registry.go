// Package registry provides the ordered catalog of installation steps.
// The registry is both the execution order and the lookup table: the
// orchestrator iterates it directly and resolves checkpoint names against it.
package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jaspreet-dot-casa/uinstall/pkg/snapshot"
)

var (
	// ErrEmptyName is returned when a step definition has no name.
	ErrEmptyName = errors.New("step name cannot be empty")
	// ErrDuplicateStep is returned when two definitions share a name.
	ErrDuplicateStep = errors.New("duplicate step name")
	// ErrNilFunc is returned when a step definition has no implementation.
	ErrNilFunc = errors.New("step has no implementation")
	// ErrUnknownStep is returned when a name is not in the registry.
	ErrUnknownStep = errors.New("unknown step")
)

// Func is the implementation of a step. It receives the mutable snapshot and
// must be safe to re-run from the beginning.
type Func func(ctx context.Context, snap *snapshot.Snapshot) error

// Definition declares a step before it is assigned an ordinal.
type Definition struct {
	Name  string // Unique identifier, e.g. "install-packages"
	Title string // Display title, defaults to Name
	Run   Func
}

// Step is a registered step with its position in the execution order.
type Step struct {
	Name    string
	Title   string
	Ordinal int // 1-based, dense
	Run     Func
}

// Registry is an immutable, totally ordered list of steps.
type Registry struct {
	steps  []Step
	byName map[string]int
}

// New builds a registry from definitions given in execution order.
func New(defs ...Definition) (*Registry, error) {
	r := &Registry{
		steps:  make([]Step, 0, len(defs)),
		byName: make(map[string]int, len(defs)),
	}

	for _, def := range defs {
		name := strings.TrimSpace(def.Name)
		if name == "" {
			return nil, ErrEmptyName
		}
		if _, exists := r.byName[name]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateStep, name)
		}
		if def.Run == nil {
			return nil, fmt.Errorf("%w: %s", ErrNilFunc, name)
		}

		title := def.Title
		if title == "" {
			title = name
		}

		r.byName[name] = len(r.steps)
		r.steps = append(r.steps, Step{
			Name:    name,
			Title:   title,
			Ordinal: len(r.steps) + 1,
			Run:     def.Run,
		})
	}

	return r, nil
}

// MustNew is like New but panics on an invalid definition list.
// Intended for static tables declared at process start.
func MustNew(defs ...Definition) *Registry {
	r, err := New(defs...)
	if err != nil {
		panic(err)
	}
	return r
}

// OrdinalOf returns the ordinal of the named step.
func (r *Registry) OrdinalOf(name string) (int, bool) {
	idx, ok := r.byName[name]
	if !ok {
		return 0, false
	}
	return r.steps[idx].Ordinal, true
}

// Lookup returns the named step.
func (r *Registry) Lookup(name string) (Step, bool) {
	idx, ok := r.byName[name]
	if !ok {
		return Step{}, false
	}
	return r.steps[idx], true
}

// Steps returns the steps in execution order.
func (r *Registry) Steps() []Step {
	out := make([]Step, len(r.steps))
	copy(out, r.steps)
	return out
}

// Names returns the step names in execution order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.steps))
	for i, s := range r.steps {
		names[i] = s.Name
	}
	return names
}

// Len returns the number of registered steps.
func (r *Registry) Len() int {
	return len(r.steps)
}
