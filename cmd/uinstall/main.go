// Package main provides the uinstall CLI, a resumable installer.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/jaspreet-dot-casa/uinstall/pkg/config"
	"github.com/jaspreet-dot-casa/uinstall/pkg/preflight"
	"github.com/spf13/cobra"
)

// version is set via -ldflags during build
var version = "dev"

// Exit codes.
const (
	exitOK       = 0
	exitFailure  = 1
	exitRejected = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	go func() {
		// Restore default signal handling so a second interrupt kills the process.
		<-ctx.Done()
		stop()
	}()

	rootCmd := newRootCmd()

	// Cobra handles error printing
	rootCmd.SilenceUsage = true

	err := rootCmd.ExecuteContext(ctx)
	stop()
	os.Exit(exitCode(err))
}

// exitCode maps an error to the process exit status.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}

	var cfgErr *config.ConfigurationError
	var preErr *preflight.Error
	if errors.As(err, &cfgErr) || errors.As(err, &preErr) {
		return exitRejected
	}
	return exitFailure
}

// rootOptions holds the root command flags.
type rootOptions struct {
	configPath string
	resume     bool
	clean      bool
	purge      bool
	check      bool
	verbose    bool
	quiet      bool
}

// newRootCmd creates the root command for uinstall
func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "uinstall",
		Short: "Resumable installer",
		Long: `uinstall installs and configures a service stack as a fixed sequence of steps.

Progress is checkpointed after every step. If a run fails or is interrupted:
  uinstall --resume   continue after the last completed step
  uinstall --clean    discard progress and start over

Settings are read from --config, $XDG_CONFIG_HOME/uinstall/config.yaml or
/etc/uinstall/config.yaml, and UINSTALL_* environment variables.`,
		Version: version,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoot(cmd, opts)
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Config file path")

	flags := rootCmd.Flags()
	flags.BoolVar(&opts.resume, "resume", false, "Resume from the last checkpoint")
	flags.BoolVar(&opts.clean, "clean", false, "Stop services, remove the checkpoint and exit")
	flags.BoolVar(&opts.purge, "purge", false, "With --clean, delete the data directory without asking")
	flags.BoolVar(&opts.check, "check", false, "Run pre-flight checks only")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Show every step with timings")
	flags.BoolVarP(&opts.quiet, "quiet", "q", false, "Show failures and the final result only")

	rootCmd.MarkFlagsMutuallyExclusive("resume", "clean", "check")
	rootCmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	rootCmd.AddCommand(
		newStatusCmd(opts),
		newStepsCmd(opts),
		newConfigCmd(opts),
	)

	return rootCmd
}

func runRoot(cmd *cobra.Command, opts *rootOptions) error {
	if opts.purge && !opts.clean {
		return &config.ConfigurationError{Field: "--purge", Reason: "only valid with --clean"}
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}

	switch {
	case opts.check:
		return runCheck(cmd, cfg)
	case opts.clean:
		return runClean(cmd, cfg, opts)
	default:
		return runInstall(cmd, cfg, opts)
	}
}
