package cli

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/layouttune/pkg/errors"
	"github.com/matzehuels/layouttune/pkg/geometry"
	"github.com/matzehuels/layouttune/pkg/params"
	"github.com/matzehuels/layouttune/pkg/render"
)

// referenceOpts holds the command-line flags for the reference command.
type referenceOpts struct {
	out string     // SVG written; default is the configured reference
	set params.Set // layout injected when any parameter flag is given
}

// referenceCommand creates the reference command that renders a DOT graph
// to an SVG usable as reference.
func (c *CLI) referenceCommand() *cobra.Command {
	var opts referenceOpts

	cmd := &cobra.Command{
		Use:   "reference [graph.dot]",
		Short: "Render a DOT graph with Graphviz to a reference SVG",
		Long: `Render a DOT graph to SVG with the embedded Graphviz. Without an argument the
configured graphviz.input is used. When all five parameter flags are given
they are injected as layout attributes before rendering.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			in := cfg.Path(cfg.Graphviz.Input)
			if len(args) == 1 {
				in = args[0]
			}
			if in == "" {
				return errors.New(errors.ErrCodeInvalidInput, "no DOT graph given and graphviz.input is not configured")
			}
			out := opts.out
			if out == "" {
				out = cfg.Path(cfg.Reference)
			}

			changed := 0
			for _, name := range params.Names {
				if cmd.Flags().Changed(name) {
					changed++
				}
			}
			if changed != 0 && changed != len(params.Names) {
				return errors.New(errors.ErrCodeInvalidInput, "give all five parameter flags or none")
			}
			var set *params.Set
			if changed > 0 {
				set = &opts.set
			}
			return c.runReference(cmd, in, out, set)
		},
	}

	cmd.Flags().StringVar(&opts.out, "out", "", "SVG file to write (default: configured reference)")
	cmd.Flags().Float64Var(&opts.set.NodeWidth, params.NodeWidth, 0, "node width in points")
	cmd.Flags().Float64Var(&opts.set.NodeHeight, params.NodeHeight, 0, "node height in points")
	cmd.Flags().Float64Var(&opts.set.HGap, params.HGap, 0, "horizontal gap in points")
	cmd.Flags().Float64Var(&opts.set.VGap, params.VGap, 0, "vertical gap in points")
	cmd.Flags().Float64Var(&opts.set.Margin, params.Margin, 0, "margin in points")

	return cmd
}

func (c *CLI) runReference(cmd *cobra.Command, in, out string, set *params.Set) error {
	dot, err := os.ReadFile(in)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.Wrap(errors.ErrCodeFileNotFound, err, "DOT graph %s", in)
		}
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "read %s", in)
	}
	if set != nil {
		if dot, err = render.WithLayout(dot, *set); err != nil {
			return err
		}
		c.Logger.Debug("layout injected", set.Fields()...)
	}

	prog := newProgress(c.Logger)
	svg, err := render.RenderSVG(cmd.Context(), dot)
	if err != nil {
		return err
	}
	m, err := geometry.ExtractBytes(svg)
	if err != nil {
		return err
	}
	if len(m) == 0 {
		printWarning(c.Out, "rendering has no labelled nodes; it cannot serve as a reference")
	}

	if dir := filepath.Dir(out); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(errors.ErrCodeInternal, err, "create %s", dir)
		}
	}
	if err := os.WriteFile(out, svg, 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "write %s", out)
	}
	prog.done("rendered reference", "nodes", len(m))

	printSuccess(c.Out, "Rendered %d nodes", len(m))
	printFile(c.Out, out)
	return nil
}
