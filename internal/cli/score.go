package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/layouttune/pkg/errors"
	"github.com/matzehuels/layouttune/pkg/geometry"
)

// scoreReport is the result of comparing two renderings. RMSE is nil when
// the renderings share no label.
type scoreReport struct {
	Reference      string   `json:"reference" yaml:"reference"`
	Candidate      string   `json:"candidate" yaml:"candidate"`
	RMSE           *float64 `json:"rmse" yaml:"rmse"`
	Shared         int      `json:"shared_labels" yaml:"shared_labels"`
	ReferenceNodes int      `json:"reference_nodes" yaml:"reference_nodes"`
	CandidateNodes int      `json:"candidate_nodes" yaml:"candidate_nodes"`
	Missing        []string `json:"missing,omitempty" yaml:"missing,omitempty"`
}

// scoreCommand creates the score command comparing a candidate SVG with a reference SVG.
func (c *CLI) scoreCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score [reference.svg] [candidate.svg]",
		Short: "Compute the RMSE of node centers between two SVG renderings",
		Args:  cobra.ExactArgs(2),
	}
	output := addOutputFlag(cmd)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		if err := errors.ValidateOutputFormat(*output, outputFormats); err != nil {
			return err
		}
		ref, err := geometry.ExtractFile(args[0])
		if err != nil {
			return err
		}
		cand, err := geometry.ExtractFile(args[1])
		if err != nil {
			return err
		}

		r := compare(ref, cand)
		r.Reference, r.Candidate = args[0], args[1]

		if *output != outputText {
			return writeStructured(c.Out, *output, r)
		}
		printScoreReport(c, r)
		return nil
	}
	return cmd
}

// compare scores cand against ref and lists reference labels cand lacks.
func compare(ref, cand geometry.Map) scoreReport {
	r := scoreReport{
		Shared:         geometry.Shared(ref, cand),
		ReferenceNodes: len(ref),
		CandidateNodes: len(cand),
	}
	if s := geometry.Score(ref, cand); geometry.Comparable(s) {
		r.RMSE = &s
	}
	for _, l := range ref.Labels() {
		if _, ok := cand[l]; !ok {
			r.Missing = append(r.Missing, l)
		}
	}
	return r
}

func printScoreReport(c *CLI, r scoreReport) {
	if r.RMSE == nil {
		printError(c.Out, "Renderings are not comparable: no shared label")
	} else {
		printSuccess(c.Out, "rmse %s", StyleNumber.Render(formatScore(*r.RMSE)))
	}
	printKeyValue(c.Out, "shared labels", fmt.Sprint(r.Shared))
	printKeyValue(c.Out, "reference", fmt.Sprintf("%d nodes", r.ReferenceNodes))
	printKeyValue(c.Out, "candidate", fmt.Sprintf("%d nodes", r.CandidateNodes))
	if len(r.Missing) > 0 {
		printWarning(c.Out, "%d reference labels missing from the candidate", len(r.Missing))
		c.Logger.Debug("missing labels", "labels", r.Missing)
	}
}
