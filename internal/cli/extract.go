package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/layouttune/pkg/errors"
	"github.com/matzehuels/layouttune/pkg/geometry"
)

// extractCommand creates the extract command printing the node geometry of an SVG.
func (c *CLI) extractCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract [svg]",
		Short: "Print the labelled node centers found in an SVG",
		Args:  cobra.ExactArgs(1),
	}
	output := addOutputFlag(cmd)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		if err := errors.ValidateOutputFormat(*output, outputFormats); err != nil {
			return err
		}
		m, err := geometry.ExtractFile(args[0])
		if err != nil {
			return err
		}
		if *output != outputText {
			return writeStructured(c.Out, *output, m)
		}
		if len(m) == 0 {
			printWarning(c.Out, "no labelled nodes in %s", args[0])
			return nil
		}
		fmt.Fprintln(c.Out, geometryTable(m))
		printInfo(c.Out, "%d nodes", len(m))
		return nil
	}
	return cmd
}

func geometryTable(m geometry.Map) string {
	labels := m.Labels()
	rows := make([][]string, len(labels))
	for i, l := range labels {
		p := m[l]
		rows[i] = []string{l, formatFloat(p.X), formatFloat(p.Y)}
	}
	return renderTable([]string{"label", "x", "y"}, rows, nil)
}
