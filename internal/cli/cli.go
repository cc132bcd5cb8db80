// Package cli implements the layouttune command-line interface.
//
// The main command is tune, which grid-searches the layout parameters of a
// rendering engine against a reference rendering. The remaining commands
// expose the individual steps for debugging a setup:
//   - grid: list the candidates of the configured grid
//   - extract: print the node geometry found in an SVG
//   - score: compare two SVGs
//   - patch: apply one parameter set to the engine source
//   - reference: render a DOT graph to a reference SVG
//   - config: write or show the tuning configuration
//
// All commands support --verbose (-v) for debug-level logging. Log lines go
// to stderr; results go to stdout.
package cli

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/layouttune/pkg/buildinfo"
	"github.com/matzehuels/layouttune/pkg/config"
)

const appName = "layouttune"

// Config files picked up from the working directory when --config is not set.
var defaultConfigFiles = []string{appName + ".toml", appName + ".hcl"}

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	Out    io.Writer // Results and reports

	configPath string
}

// New creates a new CLI instance logging to w.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Out:    os.Stdout,
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "layouttune calibrates graph layout constants against a reference rendering",
		Long: `layouttune grid-searches the node size, gap and margin constants of a graph
rendering engine. For every candidate it patches the engine source, rebuilds,
renders a sample input to SVG and scores the node positions against a
reference SVG. The candidate with the lowest RMSE wins.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "",
		"tuning config (.toml or .hcl); defaults to ./layouttune.toml or ./layouttune.hcl if present")

	root.AddCommand(c.tuneCommand())
	root.AddCommand(c.gridCommand())
	root.AddCommand(c.extractCommand())
	root.AddCommand(c.scoreCommand())
	root.AddCommand(c.patchCommand())
	root.AddCommand(c.referenceCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// loadConfig loads the file named by --config, a default config file in the
// working directory, or the built-in defaults, in that order.
func (c *CLI) loadConfig() (*config.Config, error) {
	path := c.configPath
	if path == "" {
		for _, name := range defaultConfigFiles {
			if _, err := os.Stat(name); err == nil {
				path = name
				break
			}
		}
	}
	if path == "" {
		c.Logger.Debug("no config file, using defaults")
	} else {
		c.Logger.Debug("loading config", "path", path)
	}
	return config.LoadOrDefault(path)
}
