// Package components discovers installable components from installer
// scripts and resolves which ones an installation mode selects.
package components

import (
	"errors"
	"fmt"
	"slices"
)

// Installation modes.
const (
	ModeMinimal  = "minimal"
	ModeStandard = "standard"
	ModeFull     = "full"
)

// Modes lists the valid installation modes from smallest to largest.
var Modes = []string{ModeMinimal, ModeStandard, ModeFull}

// ErrUnknownComponent is returned when a component name is not in the catalog.
var ErrUnknownComponent = errors.New("unknown component")

// Component represents an installer script in the components directory.
type Component struct {
	// Name is the component identifier (e.g., "web")
	Name string

	// DisplayName is a human-readable name
	DisplayName string

	// Description is a brief description of the component
	Description string

	// ScriptPath is the path to the installer script
	ScriptPath string

	// Modes lists the installation modes that select the component
	Modes []string

	// Service is the port name the component listens on, empty if none
	Service string

	// Requires lists components that must be installed first
	Requires []string
}

// InMode reports whether mode selects the component. The full mode selects
// every component.
func (c Component) InMode(mode string) bool {
	return mode == ModeFull || slices.Contains(c.Modes, mode)
}

// Catalog holds discovered components in script order.
// Catalog is not safe for concurrent modification.
type Catalog struct {
	components []Component
	byName     map[string]Component
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{byName: make(map[string]Component)}
}

// Add adds a component, replacing any component with the same name.
func (c *Catalog) Add(comp Component) {
	if _, ok := c.byName[comp.Name]; ok {
		i := slices.IndexFunc(c.components, func(x Component) bool { return x.Name == comp.Name })
		c.components[i] = comp
	} else {
		c.components = append(c.components, comp)
	}
	c.byName[comp.Name] = comp
}

// Get returns a component by name.
func (c *Catalog) Get(name string) (Component, bool) {
	comp, ok := c.byName[name]
	return comp, ok
}

// Names returns the component names in catalog order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.components))
	for i, comp := range c.components {
		names[i] = comp.Name
	}
	return names
}

// Len returns the number of components.
func (c *Catalog) Len() int {
	return len(c.components)
}

// Resolve returns the components selected by mode plus extra, with every
// requirement included and ordered before the components that need it.
func (c *Catalog) Resolve(mode string, extra []string) ([]Component, error) {
	if !slices.Contains(Modes, mode) {
		return nil, fmt.Errorf("unknown mode %q", mode)
	}

	var wanted []string
	for _, comp := range c.components {
		if comp.InMode(mode) {
			wanted = append(wanted, comp.Name)
		}
	}
	for _, name := range extra {
		if _, ok := c.byName[name]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownComponent, name)
		}
		wanted = append(wanted, name)
	}

	var (
		result   []Component
		done     = make(map[string]bool)
		visiting = make(map[string]bool)
	)
	var visit func(name, from string) error
	visit = func(name, from string) error {
		if done[name] {
			return nil
		}
		comp, ok := c.byName[name]
		if !ok {
			return fmt.Errorf("%w: %s (required by %s)", ErrUnknownComponent, name, from)
		}
		if visiting[name] {
			return fmt.Errorf("dependency cycle at component %s", name)
		}
		visiting[name] = true
		for _, req := range comp.Requires {
			if err := visit(req, name); err != nil {
				return err
			}
		}
		visiting[name] = false
		done[name] = true
		result = append(result, comp)
		return nil
	}

	for _, name := range wanted {
		if err := visit(name, mode); err != nil {
			return nil, err
		}
	}
	return result, nil
}
