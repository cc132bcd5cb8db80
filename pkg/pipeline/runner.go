package pipeline

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/layouttune/pkg/geometry"
	"github.com/matzehuels/layouttune/pkg/observability"
	"github.com/matzehuels/layouttune/pkg/params"
	"github.com/matzehuels/layouttune/pkg/patch"
	"github.com/matzehuels/layouttune/pkg/toolchain"
)

// Runner evaluates candidates with the patch, build, render, parse cycle.
//
// Runner is not safe for concurrent use: every candidate rewrites the same
// engine source and artifact.
type Runner struct {
	Provider patch.Provider
	Builder  Builder
	Renderer Renderer
	Artifact string // File the renderer writes and the geometry is read from
	Logger   *log.Logger
	Hooks    observability.SearchHooks
}

// NewRunner wires a runner around the toolchain renderer, reading geometry
// from the renderer's output file. If logger is nil, log.Default() is used.
func NewRunner(p patch.Provider, b Builder, r *toolchain.Renderer, logger *log.Logger) *Runner {
	return &Runner{
		Provider: p,
		Builder:  b,
		Renderer: r,
		Artifact: r.Output,
		Logger:   orDefault(logger),
		Hooks:    observability.Search(),
	}
}

// Evaluate applies set to the engine source, rebuilds, renders the sample
// input and returns the node geometry of the artifact.
func (r *Runner) Evaluate(ctx context.Context, set params.Set) (geometry.Map, error) {
	logger, hooks := orDefault(r.Logger), r.hooks()

	if err := stage(ctx, logger, hooks, observability.StagePatch, func() error {
		return r.Provider.Provide(ctx, set)
	}); err != nil {
		return nil, err
	}

	if err := stage(ctx, logger, hooks, observability.StageBuild, func() error {
		return r.Builder.Build(ctx)
	}); err != nil {
		r.logDiagnostics(logger, err)
		return nil, err
	}

	if err := stage(ctx, logger, hooks, observability.StageRender, func() error {
		return r.Renderer.Render(ctx)
	}); err != nil {
		r.logDiagnostics(logger, err)
		return nil, err
	}

	var m geometry.Map
	if err := stage(ctx, logger, hooks, observability.StageParse, func() (err error) {
		m, err = geometry.ExtractFile(r.Artifact)
		return err
	}); err != nil {
		return nil, err
	}
	return m, nil
}

func (r *Runner) hooks() observability.SearchHooks {
	if r.Hooks == nil {
		return observability.NoopSearchHooks{}
	}
	return r.Hooks
}

func (r *Runner) logDiagnostics(logger *log.Logger, err error) {
	if out := toolchain.Diagnostics(err); out != "" {
		logger.Debug("toolchain output", "output", out)
	}
}
