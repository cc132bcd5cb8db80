package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/layouttune/pkg/config"
)

// configCommand creates the config command group.
func (c *CLI) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Write or show the tuning configuration",
	}

	cmd.AddCommand(c.configInitCommand())
	cmd.AddCommand(c.configShowCommand())

	return cmd
}

// configInitCommand creates the "config init" subcommand writing the defaults.
func (c *CLI) configInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write the default configuration as TOML",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := defaultConfigFiles[0]
			if len(args) == 1 {
				path = args[0]
			}
			if err := config.Default().WriteFile(path, force); err != nil {
				return err
			}
			printSuccess(c.Out, "Wrote default configuration")
			printFile(c.Out, path)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")
	return cmd
}

// configShowCommand creates the "config show" subcommand printing the
// effective configuration.
func (c *CLI) configShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as TOML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			return cfg.Write(c.Out)
		},
	}
}
