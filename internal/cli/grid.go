package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/matzehuels/layouttune/pkg/errors"
	"github.com/matzehuels/layouttune/pkg/params"
)

// gridEntry is one row of the grid listing.
type gridEntry struct {
	Index  int        `json:"index" yaml:"index"`
	Params params.Set `json:"params" yaml:"params"`
}

// gridCommand creates the grid command listing the search candidates.
func (c *CLI) gridCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grid",
		Short: "List the candidates of the configured grid in search order",
		Args:  cobra.NoArgs,
	}
	output := addOutputFlag(cmd)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		if err := errors.ValidateOutputFormat(*output, outputFormats); err != nil {
			return err
		}
		cfg, err := c.loadConfig()
		if err != nil {
			return err
		}
		grid := cfg.ParamsGrid()
		if err := grid.Validate(); err != nil {
			return err
		}

		if *output != outputText {
			entries := make([]gridEntry, 0, grid.Count())
			grid.Each(func(i int, s params.Set) bool {
				entries = append(entries, gridEntry{Index: i + 1, Params: s})
				return true
			})
			return writeStructured(c.Out, *output, entries)
		}

		fmt.Fprintln(c.Out, gridTable(grid))
		printInfo(c.Out, "%d candidates %s", grid.Count(), StyleDim.Render("("+grid.Describe()+")"))
		return nil
	}
	return cmd
}

// gridTable renders the grid enumeration as a table.
func gridTable(grid params.Grid) string {
	headers := append([]string{"#"}, params.Names...)
	rows := make([][]string, 0, grid.Count())
	grid.Each(func(i int, s params.Set) bool {
		row := []string{strconv.Itoa(i + 1)}
		for _, v := range s.Values() {
			row = append(row, formatFloat(v))
		}
		rows = append(rows, row)
		return true
	})
	return renderTable(headers, rows, nil)
}
