package pipeline

import (
	"context"
	"os"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/layouttune/pkg/errors"
	"github.com/matzehuels/layouttune/pkg/geometry"
	"github.com/matzehuels/layouttune/pkg/observability"
	"github.com/matzehuels/layouttune/pkg/params"
	"github.com/matzehuels/layouttune/pkg/render"
)

// GraphvizEngine evaluates candidates by rendering a DOT graph with the
// parameters injected as Graphviz attributes. It is safe for concurrent use
// when Artifact is empty.
type GraphvizEngine struct {
	DOT      []byte // Sample graph
	Artifact string // Optional file receiving each rendering
	Logger   *log.Logger
	Hooks    observability.SearchHooks
}

// NewGraphvizEngine returns an engine for the sample graph in dot.
func NewGraphvizEngine(dot []byte, logger *log.Logger) *GraphvizEngine {
	return &GraphvizEngine{
		DOT:    dot,
		Logger: orDefault(logger),
		Hooks:  observability.Search(),
	}
}

// Evaluate renders the sample graph with set applied and extracts its
// node geometry. Injecting the attributes is reported as the patch stage.
func (e *GraphvizEngine) Evaluate(ctx context.Context, set params.Set) (geometry.Map, error) {
	logger, hooks := orDefault(e.Logger), e.Hooks
	if hooks == nil {
		hooks = observability.NoopSearchHooks{}
	}

	var dot []byte
	if err := stage(ctx, logger, hooks, observability.StagePatch, func() (err error) {
		dot, err = render.WithLayout(e.DOT, set)
		if err != nil {
			return errors.Wrap(errors.ErrCodePatchMismatch, err, "inject layout attributes")
		}
		return nil
	}); err != nil {
		return nil, err
	}

	var svg []byte
	if err := stage(ctx, logger, hooks, observability.StageRender, func() (err error) {
		svg, err = render.RenderSVG(ctx, dot)
		if err != nil {
			return errors.Wrap(errors.ErrCodeRenderFailed, err, "render sample graph")
		}
		if e.Artifact != "" {
			if err := os.WriteFile(e.Artifact, svg, 0o644); err != nil {
				return errors.Wrap(errors.ErrCodeRenderFailed, err, "write artifact %s", e.Artifact)
			}
		}
		return nil
	}); err != nil {
		return nil, err
	}

	var m geometry.Map
	if err := stage(ctx, logger, hooks, observability.StageParse, func() (err error) {
		m, err = geometry.ExtractBytes(svg)
		return err
	}); err != nil {
		return nil, err
	}
	return m, nil
}
