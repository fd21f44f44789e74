// Package snapshot holds the configuration snapshot that installation steps
// read and extend. A snapshot is always persisted as a whole.
package snapshot

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// Flattened key names.
const (
	KeyMode         = "MODE"
	KeySecurityTier = "SECURITY_TIER"
	KeyHardwareTier = "HARDWARE_TIER"
	KeyComponents   = "COMPONENTS"
	KeyTools        = "TOOLS"
	KeyModels       = "MODELS"

	PortPrefix   = "PORT_"
	SecretPrefix = "SECRET_"
)

// Snapshot is every setting gathered or derived so far.
type Snapshot struct {
	Mode         string            `json:"mode,omitempty"`
	SecurityTier string            `json:"security_tier,omitempty"`
	HardwareTier string            `json:"hardware_tier,omitempty"`
	Components   []string          `json:"components,omitempty"`
	Tools        []string          `json:"tools,omitempty"`
	Models       []string          `json:"models,omitempty"`
	Ports        map[string]int    `json:"ports,omitempty"`   // Keyed by Key(name)
	Secrets      map[string]string `json:"secrets,omitempty"` // Keyed by Key(name)
	Extra        map[string]string `json:"extra,omitempty"`   // Free-form lowercase keys
}

// New returns an empty snapshot with initialized maps.
func New() *Snapshot {
	return &Snapshot{
		Ports:   make(map[string]int),
		Secrets: make(map[string]string),
		Extra:   make(map[string]string),
	}
}

// Key normalizes a port, secret or extra name.
func Key(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_")
}

// Clone returns a deep copy of the snapshot.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	return &Snapshot{
		Mode:         s.Mode,
		SecurityTier: s.SecurityTier,
		HardwareTier: s.HardwareTier,
		Components:   slices.Clone(s.Components),
		Tools:        slices.Clone(s.Tools),
		Models:       slices.Clone(s.Models),
		Ports:        maps.Clone(s.Ports),
		Secrets:      maps.Clone(s.Secrets),
		Extra:        maps.Clone(s.Extra),
	}
}

// SetPort records the port for a named service.
func (s *Snapshot) SetPort(name string, port int) {
	if s.Ports == nil {
		s.Ports = make(map[string]int)
	}
	s.Ports[Key(name)] = port
}

// Port returns the port for a named service.
func (s *Snapshot) Port(name string) (int, bool) {
	port, ok := s.Ports[Key(name)]
	return port, ok
}

// SetSecret records a generated secret.
func (s *Snapshot) SetSecret(name, value string) {
	if s.Secrets == nil {
		s.Secrets = make(map[string]string)
	}
	s.Secrets[Key(name)] = value
}

// Secret returns a previously generated secret.
func (s *Snapshot) Secret(name string) (string, bool) {
	v, ok := s.Secrets[Key(name)]
	return v, ok
}

// Set stores a free-form value.
func (s *Snapshot) Set(name, value string) {
	if s.Extra == nil {
		s.Extra = make(map[string]string)
	}
	s.Extra[Key(name)] = value
}

// Get returns a free-form value.
func (s *Snapshot) Get(name string) (string, bool) {
	v, ok := s.Extra[Key(name)]
	return v, ok
}

// HasComponent reports whether a component is selected.
func (s *Snapshot) HasComponent(name string) bool {
	return slices.Contains(s.Components, name)
}

// Flatten returns the snapshot as flat KEY=value pairs suitable for an env file
// or a child process environment. Lists are comma-joined.
func (s *Snapshot) Flatten() map[string]string {
	out := make(map[string]string)

	setIf := func(key, value string) {
		if value != "" {
			out[key] = value
		}
	}
	setIf(KeyMode, s.Mode)
	setIf(KeySecurityTier, s.SecurityTier)
	setIf(KeyHardwareTier, s.HardwareTier)
	setIf(KeyComponents, strings.Join(s.Components, ","))
	setIf(KeyTools, strings.Join(s.Tools, ","))
	setIf(KeyModels, strings.Join(s.Models, ","))

	for name, port := range s.Ports {
		out[PortPrefix+strings.ToUpper(name)] = strconv.Itoa(port)
	}
	for name, secret := range s.Secrets {
		out[SecretPrefix+strings.ToUpper(name)] = secret
	}
	for name, value := range s.Extra {
		out[strings.ToUpper(name)] = value
	}

	return out
}

// Apply merges flat KEY=value pairs into the snapshot. It is the inverse of
// Flatten. Unknown keys land in Extra.
func (s *Snapshot) Apply(values map[string]string) error {
	for key, value := range values {
		upper := strings.ToUpper(strings.TrimSpace(key))
		switch {
		case upper == KeyMode:
			s.Mode = value
		case upper == KeySecurityTier:
			s.SecurityTier = value
		case upper == KeyHardwareTier:
			s.HardwareTier = value
		case upper == KeyComponents:
			s.Components = splitList(value)
		case upper == KeyTools:
			s.Tools = splitList(value)
		case upper == KeyModels:
			s.Models = splitList(value)
		case strings.HasPrefix(upper, PortPrefix):
			port, err := strconv.Atoi(strings.TrimSpace(value))
			if err != nil || port < 1 || port > 65535 {
				return fmt.Errorf("%s: invalid port %q", key, value)
			}
			s.SetPort(strings.TrimPrefix(upper, PortPrefix), port)
		case strings.HasPrefix(upper, SecretPrefix):
			s.SetSecret(strings.TrimPrefix(upper, SecretPrefix), value)
		default:
			s.Set(upper, value)
		}
	}
	return nil
}

// splitList splits a comma-separated list, dropping empty entries.
func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
