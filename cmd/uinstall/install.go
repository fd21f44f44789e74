package main

import (
	"fmt"
	"os"

	"github.com/jaspreet-dot-casa/uinstall/pkg/cleanup"
	"github.com/jaspreet-dot-casa/uinstall/pkg/config"
	"github.com/jaspreet-dot-casa/uinstall/pkg/failure"
	"github.com/jaspreet-dot-casa/uinstall/pkg/installsteps"
	"github.com/jaspreet-dot-casa/uinstall/pkg/logging"
	"github.com/jaspreet-dot-casa/uinstall/pkg/orchestrator"
	"github.com/jaspreet-dot-casa/uinstall/pkg/preflight"
	"github.com/jaspreet-dot-casa/uinstall/pkg/registry"
	"github.com/jaspreet-dot-casa/uinstall/pkg/report"
	"github.com/jaspreet-dot-casa/uinstall/pkg/state"
	"github.com/jaspreet-dot-casa/uinstall/pkg/system"
	"github.com/spf13/cobra"
)

func preflightOptions(cfg *config.Config) preflight.Options {
	return preflight.Options{
		Platforms:        cfg.Preflight.Platforms,
		RequireRoot:      cfg.Preflight.RequireRoot,
		MinDiskGB:        cfg.Preflight.MinDiskGB,
		DiskPath:         cfg.Paths.InstallDir,
		RequiredTools:    cfg.Preflight.RequiredTools,
		ConnectivityHost: cfg.Preflight.ConnectivityHost,
	}
}

// runCheck prints the pre-flight report. It never touches the checkpoint.
func runCheck(cmd *cobra.Command, cfg *config.Config) error {
	checks := preflight.NewChecker(preflightOptions(cfg), system.NewExecRunner(nil)).Run(cmd.Context())
	preflight.Render(cmd.OutOrStdout(), checks)
	return preflight.Evaluate(checks)
}

// openLogger opens the log file at the configured level, or DEBUG when
// verbose.
func openLogger(cfg *config.Config, verbose bool) (*logging.Logger, error) {
	level := cfg.Logging.Level
	if verbose {
		level = logging.LevelDebug
	}
	logger, err := logging.New(cfg.Paths.LogDir, level)
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}
	return logger, nil
}

// newStore opens the checkpoint store for the default steps.
func newStore(cfg *config.Config, reg *registry.Registry, logger *logging.Logger) *state.Store {
	opts := []state.Option{}
	if logger != nil {
		opts = append(opts, state.WithLogger(logger.Logger), state.WithRunID(logger.RunID()))
	}
	return state.NewStore(cfg.CheckpointPath(), reg, opts...)
}

func runClean(cmd *cobra.Command, cfg *config.Config, opts *rootOptions) error {
	logger, err := openLogger(cfg, opts.verbose)
	if err != nil {
		return err
	}
	defer logger.Close()

	reg, err := installsteps.Registry(&installsteps.Deps{Config: cfg, Logger: logger.Logger})
	if err != nil {
		return err
	}

	svc := cleanup.New(cleanup.Config{
		Store:        newStore(cfg, reg, logger),
		Logger:       logger.Logger,
		Out:          cmd.OutOrStdout(),
		StopCommands: cfg.Cleanup.StopCommands,
		DataDir:      cfg.Paths.DataDir,
	})

	_, err = svc.Clean(cmd.Context(), cleanup.Options{
		Purge:   opts.purge,
		Confirm: cleanup.PromptConfirm(os.Stdin, cmd.ErrOrStderr()),
	})
	return err
}

func verbosity(opts *rootOptions) report.Verbosity {
	switch {
	case opts.quiet:
		return report.Quiet
	case opts.verbose:
		return report.Verbose
	default:
		return report.Normal
	}
}

// runInstall runs pre-flight checks and then every installation step,
// resuming from the checkpoint when asked.
func runInstall(cmd *cobra.Command, cfg *config.Config, opts *rootOptions) (err error) {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	checks := preflight.NewChecker(preflightOptions(cfg), system.NewExecRunner(nil)).Run(ctx)
	if err := preflight.Evaluate(checks); err != nil {
		preflight.Render(cmd.ErrOrStderr(), checks)
		return err
	}

	snap, err := cfg.InitialSnapshot()
	if err != nil {
		return err
	}

	logger, err := openLogger(cfg, opts.verbose)
	if err != nil {
		return err
	}
	defer logger.Close()
	logger.Info("uinstall starting", "version", version, "config", cfg.File(), "resume", opts.resume)

	runner := system.NewExecRunner(logger.Logger)
	reg, err := installsteps.Registry(&installsteps.Deps{Config: cfg, Runner: runner, Logger: logger.Logger})
	if err != nil {
		return err
	}
	store := newStore(cfg, reg, logger)

	orch := orchestrator.New(reg, store,
		orchestrator.WithResume(opts.resume),
		orchestrator.WithLogger(logger.Logger),
		orchestrator.WithProgress(report.New(out, verbosity(opts)).Callback()),
	)

	handler := failure.NewHandler(orch,
		failure.WithOutput(cmd.ErrOrStderr()),
		failure.WithProgram(cmd.Root().Name()),
		failure.WithLogPath(logger.Path()),
	)
	defer handler.Guard(&err)

	if opts.resume {
		svc := cleanup.New(cleanup.Config{
			Store:   store,
			Runner:  runner,
			Logger:  logger.Logger,
			Out:     out,
			DataDir: cfg.Paths.DataDir,
		})
		return svc.Resume(ctx, orch, snap)
	}
	return orch.Run(ctx, snap)
}
