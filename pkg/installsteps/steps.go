// Package installsteps defines the default installation steps.
//
// Every step is safe to re-run: it reads what earlier steps recorded in the
// snapshot and only fills in what is missing.
package installsteps

import (
	"context"
	"crypto/rand"
	"errors"
	"io"
	"log/slog"
	"net"
	"os"
	"slices"
	"sync"

	"github.com/jaspreet-dot-casa/uinstall/pkg/components"
	"github.com/jaspreet-dot-casa/uinstall/pkg/config"
	"github.com/jaspreet-dot-casa/uinstall/pkg/registry"
	"github.com/jaspreet-dot-casa/uinstall/pkg/snapshot"
	"github.com/jaspreet-dot-casa/uinstall/pkg/system"
)

// Step names in execution order.
const (
	StepDetectHardware    = "detect-hardware"
	StepResolveComponents = "resolve-components"
	StepGenerateSecrets   = "generate-secrets"
	StepAllocatePorts     = "allocate-ports"
	StepInstallPackages   = "install-packages"
	StepInstallComponents = "install-components"
	StepWriteConfig       = "write-config"
	StepStartServices     = "start-services"
	StepVerifyServices    = "verify-services"
)

// Deps holds everything the steps touch outside the snapshot. Zero-valued
// hooks fall back to the real system.
type Deps struct {
	Config *config.Config
	Runner system.Runner
	Logger *slog.Logger

	// Hardware reports CPU and memory.
	Hardware func() (Hardware, error)
	// PortFree reports whether host:port can be bound.
	PortFree func(host string, port int) bool
	// Dial connects to a service during verification.
	Dial func(ctx context.Context, network, address string) (net.Conn, error)
	// Rand is the entropy source for secrets.
	Rand io.Reader

	catalogOnce sync.Once
	catalog     *components.Catalog
	catalogErr  error
}

// Steps holds the step implementations.
type Steps struct {
	deps *Deps
}

// New fills in defaults for unset hooks.
func New(d *Deps) *Steps {
	if d.Logger == nil {
		d.Logger = slog.New(slog.DiscardHandler)
	}
	if d.Runner == nil {
		d.Runner = system.NewExecRunner(d.Logger)
	}
	if d.Hardware == nil {
		d.Hardware = probeHardware
	}
	if d.PortFree == nil {
		d.PortFree = portFree
	}
	if d.Dial == nil {
		d.Dial = (&net.Dialer{}).DialContext
	}
	if d.Rand == nil {
		d.Rand = rand.Reader
	}
	return &Steps{deps: d}
}

// Definitions returns the steps in execution order.
func (s *Steps) Definitions() []registry.Definition {
	return []registry.Definition{
		{Name: StepDetectHardware, Title: "Detect hardware", Run: s.detectHardware},
		{Name: StepResolveComponents, Title: "Resolve components", Run: s.resolveComponents},
		{Name: StepGenerateSecrets, Title: "Generate secrets", Run: s.generateSecrets},
		{Name: StepAllocatePorts, Title: "Allocate ports", Run: s.allocatePorts},
		{Name: StepInstallPackages, Title: "Install base packages", Run: s.installPackages},
		{Name: StepInstallComponents, Title: "Install components", Run: s.installComponents},
		{Name: StepWriteConfig, Title: "Write configuration", Run: s.writeConfig},
		{Name: StepStartServices, Title: "Start services", Run: s.startServices},
		{Name: StepVerifyServices, Title: "Verify services", Run: s.verifyServices},
	}
}

// Registry builds the default step registry.
func Registry(d *Deps) (*registry.Registry, error) {
	return registry.New(New(d).Definitions()...)
}

// loadCatalog returns the component catalog, discovering it on first use. A
// missing components directory yields an empty catalog.
func (s *Steps) loadCatalog() (*components.Catalog, error) {
	d := s.deps
	d.catalogOnce.Do(func() {
		dir := d.Config.Paths.ComponentsDir
		d.catalog, d.catalogErr = components.Discover(dir)
		if errors.Is(d.catalogErr, os.ErrNotExist) {
			d.Logger.Warn("components directory not found, no components available", "path", dir)
			d.catalog, d.catalogErr = components.NewCatalog(), nil
		}
	})
	return d.catalog, d.catalogErr
}

// environment returns the snapshot and install paths as KEY=VALUE pairs.
func (s *Steps) environment(snap *snapshot.Snapshot) map[string]string {
	env := snap.Flatten()
	env["INSTALL_DIR"] = s.deps.Config.Paths.InstallDir
	env["DATA_DIR"] = s.deps.Config.Paths.DataDir
	return env
}

func envList(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	slices.Sort(out)
	return out
}
