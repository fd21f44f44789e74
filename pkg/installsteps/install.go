package installsteps

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/jaspreet-dot-casa/uinstall/pkg/envfile"
	"github.com/jaspreet-dot-casa/uinstall/pkg/snapshot"
	"github.com/jaspreet-dot-casa/uinstall/pkg/system"
)

// EnvFileName is written to the install directory by write-config.
const EnvFileName = "install.env"

func (s *Steps) installPackages(ctx context.Context, snap *snapshot.Snapshot) error {
	var pkgs []string
	for _, p := range append(slices.Clone(s.deps.Config.Install.BasePackages), snap.Tools...) {
		if !slices.Contains(pkgs, p) {
			pkgs = append(pkgs, p)
		}
	}
	if len(pkgs) == 0 {
		s.deps.Logger.Info("no base packages configured")
		return nil
	}

	cmd := system.Command{
		Name: "apt-get",
		Args: append([]string{"install", "-y", "--no-install-recommends"}, pkgs...),
		Env:  []string{"DEBIAN_FRONTEND=noninteractive"},
	}
	if _, err := s.deps.Runner.Run(ctx, cmd); err != nil {
		return fmt.Errorf("install base packages: %w", err)
	}
	s.deps.Logger.Info("base packages installed", "packages", pkgs)
	return nil
}

func (s *Steps) installComponents(ctx context.Context, snap *snapshot.Snapshot) error {
	catalog, err := s.loadCatalog()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.deps.Config.Paths.InstallDir, 0o755); err != nil {
		return fmt.Errorf("create install directory: %w", err)
	}
	env := envList(s.environment(snap))

	for _, name := range snap.Components {
		comp, ok := catalog.Get(name)
		if !ok {
			return fmt.Errorf("component %s is no longer in %s", name, s.deps.Config.Paths.ComponentsDir)
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		s.deps.Logger.Info("installing component", "component", name, "script", comp.ScriptPath)
		cmd := system.Command{
			Name: "/bin/bash",
			Args: []string{comp.ScriptPath, "install"},
			Env:  env,
			Dir:  s.deps.Config.Paths.InstallDir,
		}
		if _, err := s.deps.Runner.Run(ctx, cmd); err != nil {
			return fmt.Errorf("install component %s: %w", name, err)
		}
	}
	return nil
}

func (s *Steps) writeConfig(_ context.Context, snap *snapshot.Snapshot) error {
	path := filepath.Join(s.deps.Config.Paths.InstallDir, EnvFileName)
	if err := envfile.Write(path, s.environment(snap), "Generated by uinstall. Contains secrets."); err != nil {
		return err
	}
	s.deps.Logger.Info("configuration written", "path", path)
	return nil
}
