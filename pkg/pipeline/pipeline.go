// Package pipeline evaluates one candidate parameter set end to end.
//
// Two evaluators implement [search.Evaluator]:
//
//   - [Runner] drives the external engine: patch the engine source, rebuild,
//     render the sample input, and extract node geometry from the artifact.
//   - [GraphvizEngine] injects the parameters into a DOT graph and renders it
//     in-process, so no source patching or rebuild is needed.
//
// Each stage is timed, logged at debug level, and reported to the
// registered [observability.SearchHooks]. Stage failures are wrapped with
// [observability.AtStage] so the search loop can attribute them.
//
// # Usage
//
//	provider, err := patch.NewFileProvider(cfg.EngineSource, decls)
//	runner := pipeline.NewRunner(provider,
//	    toolchain.NewBuilder(buildCmd),
//	    &toolchain.Renderer{Cmd: renderCmd, Input: input, Format: "svg", Output: artifact},
//	    logger)
//	loop := search.NewLoop(ref, grid, runner, logger)
package pipeline

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/layouttune/pkg/observability"
)

// Builder rebuilds the engine.
type Builder interface {
	Build(ctx context.Context) error
}

// Renderer produces the rendering artifact from the sample input.
type Renderer interface {
	Render(ctx context.Context) error
}

// stage runs fn as the named stage, reporting its duration and outcome.
func stage(ctx context.Context, logger *log.Logger, hooks observability.SearchHooks, name observability.Stage, fn func() error) error {
	start := time.Now()
	err := fn()
	d := time.Since(start)

	hooks.OnStageComplete(ctx, name, d, err)
	if err != nil {
		logger.Debug("stage failed", "stage", name, "duration", d)
		return observability.AtStage(name, err)
	}
	logger.Debug("stage complete", "stage", name, "duration", d)
	return nil
}

func orDefault(logger *log.Logger) *log.Logger {
	if logger == nil {
		return log.Default()
	}
	return logger
}
