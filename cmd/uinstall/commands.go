package main

import (
	"fmt"

	"github.com/jaspreet-dot-casa/uinstall/pkg/config"
	"github.com/jaspreet-dot-casa/uinstall/pkg/installsteps"
	"github.com/jaspreet-dot-casa/uinstall/pkg/report"
	"github.com/spf13/cobra"
)

// newStatusCmd creates the status subcommand
func newStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the saved checkpoint",
		Long:  `Show the last completed step and the saved configuration snapshot. Secrets are not printed.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			reg, err := installsteps.Registry(&installsteps.Deps{Config: cfg})
			if err != nil {
				return err
			}
			report.Checkpoint(cmd.OutOrStdout(), cfg.CheckpointPath(), newStore(cfg, reg, nil).Load())
			return nil
		},
	}
}

// newStepsCmd creates the steps subcommand
func newStepsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "steps",
		Short: "List installation steps",
		Long:  `List the installation steps in order, marking those recorded in the checkpoint as done.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			reg, err := installsteps.Registry(&installsteps.Deps{Config: cfg})
			if err != nil {
				return err
			}
			report.Steps(cmd.OutOrStdout(), reg.Steps(), newStore(cfg, reg, nil).Load())
			return nil
		},
	}
}

// newConfigCmd creates the config subcommand
func newConfigCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long:  `Print the configuration after merging the config file, environment and defaults, as YAML.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			data, err := cfg.Render()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if file := cfg.File(); file != "" {
				fmt.Fprintf(out, "# %s\n", file)
			} else {
				fmt.Fprintln(out, "# defaults (no config file found)")
			}
			_, err = out.Write(data)
			return err
		},
	}
}
