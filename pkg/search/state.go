package search

import (
	"maps"

	"github.com/matzehuels/layouttune/pkg/geometry"
	"github.com/matzehuels/layouttune/pkg/observability"
	"github.com/matzehuels/layouttune/pkg/params"
)

// stageOther counts failures that did not come from a known stage.
const stageOther observability.Stage = "other"

// Candidate is a parameter set together with its score.
type Candidate struct {
	Index  int        `json:"index" yaml:"index"` // One-based position in the grid
	Params params.Set `json:"params" yaml:"params"`
	Score  float64    `json:"score" yaml:"score"`
	Shared int        `json:"shared_labels" yaml:"shared_labels"` // Labels scored against the reference
}

// State accumulates the outcome of the candidates seen so far.
//
// State is a value: [State.Fold] returns a new State and never modifies the
// receiver, so a search is a left fold of Fold over the grid.
type State struct {
	Best         *Candidate                  `json:"best,omitempty" yaml:"best,omitempty"`
	Attempted    int                         `json:"attempted" yaml:"attempted"`
	Succeeded    int                         `json:"succeeded" yaml:"succeeded"`
	Incomparable int                         `json:"incomparable" yaml:"incomparable"`
	Failed       int                         `json:"failed" yaml:"failed"`
	Failures     map[observability.Stage]int `json:"failures,omitempty" yaml:"failures,omitempty"`
}

// Fold adds one evaluated candidate to s.
//
//   - err != nil: the candidate is counted as failed at its stage; Best is kept.
//   - incomparable score: counted, never becomes Best.
//   - finite score: replaces Best when there is none or it is strictly lower.
//     Ties keep the earlier candidate.
func (s State) Fold(c Candidate, err error) State {
	next := s
	next.Attempted++

	if err != nil {
		stage := observability.StageOf(err)
		if stage == "" {
			stage = stageOther
		}
		next.Failed++
		next.Failures = maps.Clone(s.Failures)
		if next.Failures == nil {
			next.Failures = make(map[observability.Stage]int)
		}
		next.Failures[stage]++
		return next
	}

	next.Succeeded++
	if !geometry.Comparable(c.Score) {
		next.Incomparable++
		return next
	}
	if s.Best == nil || c.Score < s.Best.Score {
		best := c
		next.Best = &best
	}
	return next
}

// Found reports whether any candidate produced a finite score.
func (s State) Found() bool {
	return s.Best != nil
}
