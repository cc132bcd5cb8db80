package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/layouttune/pkg/errors"
	"github.com/matzehuels/layouttune/pkg/params"
	"github.com/matzehuels/layouttune/pkg/patch"
)

// patchOpts holds the command-line flags for the patch command.
type patchOpts struct {
	set    params.Set
	source string // overrides source.path
	write  bool   // write the file instead of previewing
}

// patchCommand creates the patch command applying one parameter set to the
// engine source. It previews by default.
func (c *CLI) patchCommand() *cobra.Command {
	var opts patchOpts

	cmd := &cobra.Command{
		Use:   "patch",
		Short: "Apply one parameter set to the engine source (preview unless --write)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if opts.source != "" {
				cfg.Source.Path = opts.source
			}
			return c.runPatch(cmd, cfg.Path(cfg.Source.Path), cfg.Declarations(), opts)
		},
	}

	cmd.Flags().Float64Var(&opts.set.NodeWidth, params.NodeWidth, 0, "node width")
	cmd.Flags().Float64Var(&opts.set.NodeHeight, params.NodeHeight, 0, "node height")
	cmd.Flags().Float64Var(&opts.set.HGap, params.HGap, 0, "horizontal gap")
	cmd.Flags().Float64Var(&opts.set.VGap, params.VGap, 0, "vertical gap")
	cmd.Flags().Float64Var(&opts.set.Margin, params.Margin, 0, "margin")
	for _, name := range params.Names {
		_ = cmd.MarkFlagRequired(name)
	}
	cmd.Flags().StringVar(&opts.source, "source", "", "engine configuration source (default from config)")
	cmd.Flags().BoolVar(&opts.write, "write", false, "write the patched source")

	return cmd
}

func (c *CLI) runPatch(cmd *cobra.Command, path string, decls patch.Declarations, opts patchOpts) error {
	p, err := patch.New(decls)
	if err != nil {
		return err
	}
	src, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.Wrap(errors.ErrCodeFileNotFound, err, "engine source %s", path)
		}
		return errors.Wrap(errors.ErrCodeInternal, err, "read engine source %s", path)
	}

	spans, err := p.Locate(src)
	if err != nil {
		return err
	}
	values := opts.set.Values()
	for i, name := range decls.Names() {
		if len(spans[name]) == 0 {
			printWarning(c.Out, "%s (%s): no declaration found", name, params.Names[i])
			continue
		}
		for _, s := range spans[name] {
			printDetail(c.Out, "line %d: %s %s %s %s", s.Line, name, s.Literal, iconArrow, formatFloat(values[i]))
		}
	}

	if _, err := p.Apply(src, opts.set); err != nil {
		return err
	}
	if !opts.write {
		printInfo(c.Out, "preview only; rerun with --write to update %s", path)
		return nil
	}

	provider := &patch.FileProvider{Path: path, Patcher: p}
	if err := provider.Provide(cmd.Context(), opts.set); err != nil {
		return err
	}
	printSuccess(c.Out, "Patched %s", opts.set)
	printFile(c.Out, path)
	return nil
}
