// Package search runs the exhaustive grid search over layout parameters.
//
// For every parameter set of a [params.Grid], in grid order, an [Evaluator]
// produces the geometry of a fresh rendering, which is scored against a fixed
// reference with [geometry.Score]. The lowest finite score wins; a candidate
// that fails at any stage is logged and contributes nothing.
//
// # Usage
//
//	loop := search.NewLoop(ref, params.DefaultGrid(), runner, logger)
//	outcome, err := loop.Run(ctx)
//	if err != nil {
//	    return err // empty reference, invalid grid or cancellation
//	}
//	if !outcome.Found() {
//	    // every candidate failed
//	}
package search

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/layouttune/pkg/errors"
	"github.com/matzehuels/layouttune/pkg/geometry"
	"github.com/matzehuels/layouttune/pkg/observability"
	"github.com/matzehuels/layouttune/pkg/params"
)

// Evaluator turns a parameter set into the geometry of a rendering.
// Errors exclude the candidate; they should be wrapped with
// [observability.AtStage] so failures can be attributed.
type Evaluator interface {
	Evaluate(ctx context.Context, set params.Set) (geometry.Map, error)
}

// EvaluatorFunc adapts a function to [Evaluator].
type EvaluatorFunc func(ctx context.Context, set params.Set) (geometry.Map, error)

// Evaluate calls f.
func (f EvaluatorFunc) Evaluate(ctx context.Context, set params.Set) (geometry.Map, error) {
	return f(ctx, set)
}

// Phase is the position of a [Loop] in its lifecycle.
type Phase int

const (
	PhaseEnumerating Phase = iota
	PhaseEvaluating
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseEnumerating:
		return "enumerating"
	case PhaseEvaluating:
		return "evaluating"
	case PhaseDone:
		return "done"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// Outcome is the terminal result of a search.
type Outcome struct {
	RunID    string        `json:"run_id" yaml:"run_id"`
	Total    int           `json:"total" yaml:"total"`
	Duration time.Duration `json:"duration" yaml:"duration"`
	State    `yaml:",inline"`
}

// Loop drives the search. It is single-use and not safe for concurrent use:
// candidates are evaluated strictly one after another.
type Loop struct {
	RunID     string
	Reference geometry.Map
	Grid      params.Grid
	Evaluator Evaluator
	Logger    *log.Logger
	Hooks     observability.SearchHooks

	phase Phase
}

// NewLoop creates a loop with a fresh run id. If logger is nil, log.Default()
// is used. Hooks default to the globally registered search hooks.
func NewLoop(ref geometry.Map, grid params.Grid, ev Evaluator, logger *log.Logger) *Loop {
	if logger == nil {
		logger = log.Default()
	}
	return &Loop{
		RunID:     uuid.NewString(),
		Reference: ref,
		Grid:      grid,
		Evaluator: ev,
		Logger:    logger,
		Hooks:     observability.Search(),
	}
}

// Phase returns the current phase.
func (l *Loop) Phase() Phase {
	return l.phase
}

// Run evaluates every candidate of the grid and returns the outcome.
//
// An empty reference fails with EMPTY_REFERENCE before any candidate is
// evaluated. Per-candidate failures never fail the run. If ctx is cancelled
// the run stops and returns the partial outcome together with ctx.Err().
func (l *Loop) Run(ctx context.Context) (Outcome, error) {
	l.fillDefaults()
	l.phase = PhaseEnumerating
	outcome := Outcome{RunID: l.RunID}

	if err := l.Grid.Validate(); err != nil {
		return outcome, err
	}
	if len(l.Reference) == 0 {
		return outcome, errors.New(errors.ErrCodeEmptyReference, "reference rendering has no labelled nodes")
	}
	if l.Evaluator == nil {
		return outcome, errors.New(errors.ErrCodeInternal, "no evaluator configured")
	}

	sets := l.Grid.Enumerate()
	outcome.Total = len(sets)
	l.Logger.Info("search grid",
		"candidates", outcome.Total,
		"domains", l.Grid.Describe(),
		"reference_nodes", len(l.Reference))
	l.Logger.Info("reference nodes", "labels", l.Reference.Labels())

	l.phase = PhaseEvaluating
	l.Hooks.OnRunStart(ctx, l.RunID, outcome.Total)
	start := time.Now()

	for i, set := range sets {
		if err := ctx.Err(); err != nil {
			outcome.Duration = time.Since(start)
			return outcome, err
		}

		cand, err := l.evaluate(ctx, Candidate{Index: i + 1, Params: set}, outcome.Total)
		if ctxErr := ctx.Err(); ctxErr != nil {
			outcome.Duration = time.Since(start)
			return outcome, ctxErr
		}

		prev := outcome.Best
		outcome.State = outcome.State.Fold(cand, err)
		if outcome.Best != prev {
			l.Logger.Info("new best", append([]any{"index", cand.Index, "rmse", cand.Score}, set.Fields()...)...)
			l.Hooks.OnNewBest(ctx, cand.Index, cand.Score)
		}
	}

	l.phase = PhaseDone
	outcome.Duration = time.Since(start)
	l.Hooks.OnRunComplete(ctx, outcome.Succeeded, outcome.Failed, outcome.Duration)
	return outcome, nil
}

// fillDefaults covers loops built as struct literals instead of with NewLoop.
func (l *Loop) fillDefaults() {
	if l.RunID == "" {
		l.RunID = uuid.NewString()
	}
	if l.Logger == nil {
		l.Logger = log.Default()
	}
	if l.Hooks == nil {
		l.Hooks = observability.Search()
	}
}

// evaluate runs one candidate through the evaluator and scores it.
func (l *Loop) evaluate(ctx context.Context, c Candidate, total int) (Candidate, error) {
	l.Logger.Info(fmt.Sprintf("[%d/%d] trying", c.Index, total), c.Params.Fields()...)
	l.Hooks.OnCandidateStart(ctx, c.Index, total)
	start := time.Now()

	m, err := l.Evaluator.Evaluate(ctx, c.Params)
	if err != nil {
		c.Score = geometry.Incomparable
		if ctx.Err() == nil {
			l.Logger.Warn("candidate failed",
				append([]any{"index", c.Index, "stage", observability.StageOf(err), "err", err}, c.Params.Fields()...)...)
		}
		l.Hooks.OnCandidateComplete(ctx, c.Index, c.Score, time.Since(start), err)
		return c, err
	}

	scoreStart := time.Now()
	c.Score = geometry.Score(l.Reference, m)
	c.Shared = geometry.Shared(l.Reference, m)
	l.Hooks.OnStageComplete(ctx, observability.StageScore, time.Since(scoreStart), nil)

	if geometry.Comparable(c.Score) {
		l.Logger.Info("score", "index", c.Index, "rmse", c.Score, "shared", c.Shared, "nodes", len(m))
	} else {
		l.Logger.Warn("score", "index", c.Index, "rmse", "incomparable", "nodes", len(m),
			"reason", "no label shared with the reference")
	}
	l.Hooks.OnCandidateComplete(ctx, c.Index, c.Score, time.Since(start), nil)
	return c, nil
}
