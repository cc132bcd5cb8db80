package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/matzehuels/layouttune/pkg/config"
	"github.com/matzehuels/layouttune/pkg/errors"
	"github.com/matzehuels/layouttune/pkg/geometry"
	"github.com/matzehuels/layouttune/pkg/observability"
	"github.com/matzehuels/layouttune/pkg/observability/metrics"
	"github.com/matzehuels/layouttune/pkg/params"
	"github.com/matzehuels/layouttune/pkg/patch"
	"github.com/matzehuels/layouttune/pkg/pipeline"
	"github.com/matzehuels/layouttune/pkg/search"
	"github.com/matzehuels/layouttune/pkg/toolchain"
)

// tuneOpts holds the command-line flags for the tune command. Non-empty
// values override the config file.
type tuneOpts struct {
	output        *string
	engine        string        // toolchain or graphviz
	reference     string        // reference SVG
	source        string        // engine configuration source
	input         string        // sample input (expression file or DOT graph)
	artifact      string        // rendering artifact
	buildTimeout  time.Duration // per-build timeout
	renderTimeout time.Duration // per-render timeout
	metricsFile   string        // Prometheus textfile written after the run
	applyBest     bool          // patch the best parameters into the source afterwards
}

// tuneCommand creates the tune command that runs the grid search.
func (c *CLI) tuneCommand() *cobra.Command {
	var opts tuneOpts

	cmd := &cobra.Command{
		Use:   "tune",
		Short: "Grid-search the layout constants against the reference rendering",
		Long: `Run the grid search. For every parameter set of the grid, in order, the
engine source is patched, the engine rebuilt, the sample input rendered and
the node centers scored against the reference by RMSE. Failed candidates are
logged and skipped. The parameter set with the lowest score is reported.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := errors.ValidateOutputFormat(*opts.output, outputFormats); err != nil {
				return err
			}
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if err := opts.apply(cmd, cfg); err != nil {
				return err
			}
			return c.runTune(cmd.Context(), cfg, opts)
		},
	}

	opts.output = addOutputFlag(cmd)
	cmd.Flags().StringVar(&opts.engine, "engine", "", "evaluation engine: toolchain, graphviz")
	cmd.Flags().StringVar(&opts.reference, "reference", "", "reference SVG")
	cmd.Flags().StringVar(&opts.source, "source", "", "engine configuration source to patch")
	cmd.Flags().StringVar(&opts.input, "input", "", "sample input rendered for every candidate")
	cmd.Flags().StringVar(&opts.artifact, "artifact", "", "file receiving each rendering")
	cmd.Flags().DurationVar(&opts.buildTimeout, "build-timeout", 0, "timeout per build (0 keeps the config value)")
	cmd.Flags().DurationVar(&opts.renderTimeout, "render-timeout", 0, "timeout per render (0 keeps the config value)")
	cmd.Flags().StringVar(&opts.metricsFile, "metrics-file", "", "write Prometheus metrics in textfile format after the run")
	cmd.Flags().BoolVar(&opts.applyBest, "apply-best", false, "patch the best parameters into the engine source after the search")

	return cmd
}

// apply overrides cfg with the flags that were set and revalidates it.
func (o tuneOpts) apply(cmd *cobra.Command, cfg *config.Config) error {
	if o.engine != "" {
		cfg.Engine = o.engine
	}
	if o.reference != "" {
		cfg.Reference = o.reference
	}
	if o.source != "" {
		cfg.Source.Path = o.source
	}
	if o.input != "" {
		if cfg.Engine == config.EngineGraphviz {
			cfg.Graphviz.Input = o.input
		} else {
			cfg.Render.Input = o.input
		}
	}
	if o.artifact != "" {
		cfg.Artifact = o.artifact
	}
	if cmd.Flags().Changed("build-timeout") {
		cfg.Build.Timeout = o.buildTimeout.String()
	}
	if cmd.Flags().Changed("render-timeout") {
		cfg.Render.Timeout = o.renderTimeout.String()
	}
	return cfg.Validate()
}

func (c *CLI) runTune(ctx context.Context, cfg *config.Config, opts tuneOpts) error {
	runID := uuid.NewString()
	logger := c.Logger.With("run", runID[:8])
	ctx = withLogger(ctx, logger)

	var hooks *metrics.Hooks
	if opts.metricsFile != "" {
		hooks = metrics.NewHooks()
		observability.SetSearchHooks(hooks)
		defer observability.Reset()
	}

	prog := newProgress(logger)
	refPath := cfg.Path(cfg.Reference)
	ref, err := geometry.ExtractFile(refPath)
	if err != nil {
		return err
	}
	prog.done("reference loaded", "path", refPath, "nodes", len(ref))

	ev, err := newEvaluator(ctx, cfg)
	if err != nil {
		return err
	}

	loop := search.NewLoop(ref, cfg.ParamsGrid(), ev, logger)
	loop.RunID = runID
	logger.Info("starting search", "engine", cfg.Engine, "dir", cfg.Dir())

	outcome, runErr := loop.Run(ctx)

	if hooks != nil && outcome.Attempted > 0 {
		if err := hooks.WriteTextfile(opts.metricsFile); err != nil {
			logger.Warn("could not write metrics", "path", opts.metricsFile, "err", err)
		} else {
			logger.Debug("metrics written", "path", opts.metricsFile)
		}
	}

	if runErr != nil {
		if ctx.Err() != nil && outcome.Attempted > 0 {
			logger.Warn("search interrupted", "attempted", outcome.Attempted, "of", outcome.Total)
			if outcome.Found() {
				logger.Warn("best so far", append([]any{"index", outcome.Best.Index, "rmse", outcome.Best.Score}, outcome.Best.Params.Fields()...)...)
			}
		}
		return runErr
	}

	if opts.applyBest && outcome.Found() {
		if err := applyBest(ctx, cfg, outcome.Best); err != nil {
			return err
		}
	} else if cfg.Engine == config.EngineToolchain && outcome.Attempted > 0 {
		logger.Info("engine source keeps the last candidate's values; use --apply-best or the patch command to restore the best")
	}

	if *opts.output != outputText {
		return writeStructured(c.Out, *opts.output, outcome)
	}
	printOutcome(c.Out, outcome)
	return nil
}

// newEvaluator builds the evaluator for the configured engine.
func newEvaluator(ctx context.Context, cfg *config.Config) (search.Evaluator, error) {
	logger := loggerFromContext(ctx)

	if cfg.Engine == config.EngineGraphviz {
		path := cfg.Path(cfg.Graphviz.Input)
		dot, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "sample graph %s", path)
		}
		engine := pipeline.NewGraphvizEngine(dot, logger)
		engine.Artifact = cfg.Path(cfg.Artifact)
		return engine, nil
	}

	provider, err := patch.NewFileProvider(cfg.Path(cfg.Source.Path), cfg.Declarations())
	if err != nil {
		return nil, err
	}
	buildCmd, err := cfg.BuildCommand()
	if err != nil {
		return nil, err
	}
	renderer, err := cfg.Renderer()
	if err != nil {
		return nil, err
	}
	logger.Debug("toolchain", "build", buildCmd.String(), "render", renderer.Cmd.String(), "input", renderer.Input)
	return pipeline.NewRunner(provider, toolchain.NewBuilder(buildCmd), renderer, logger), nil
}

// applyBest writes the best parameter set into the engine source.
func applyBest(ctx context.Context, cfg *config.Config, best *search.Candidate) error {
	if cfg.Engine != config.EngineToolchain {
		return nil
	}
	provider, err := patch.NewFileProvider(cfg.Path(cfg.Source.Path), cfg.Declarations())
	if err != nil {
		return err
	}
	if err := provider.Provide(ctx, best.Params); err != nil {
		return err
	}
	loggerFromContext(ctx).Info("applied best parameters", append([]any{"path", provider.Path}, best.Params.Fields()...)...)
	return nil
}

// printOutcome prints the final report of a search.
func printOutcome(w io.Writer, o search.Outcome) {
	if !o.Found() {
		printError(w, "No successful candidate")
		printDetail(w, "none of the %d candidates produced a rendering comparable with the reference", o.Total)
		if len(o.Failures) > 0 {
			printDetail(w, "failures: %s", formatFailures(o.Failures))
		}
		if o.Incomparable > 0 {
			printDetail(w, "%d rendered without any label in common with the reference", o.Incomparable)
		}
		return
	}

	b := o.Best
	printSuccess(w, "Best parameters %s", StyleDim.Render(fmt.Sprintf("(candidate %d/%d)", b.Index, o.Total)))
	for i, v := range b.Params.Values() {
		printKeyValue(w, params.Names[i], formatFloat(v))
	}
	printKeyValue(w, "rmse", StyleNumber.Render(formatScore(b.Score)))
	printKeyValue(w, "shared labels", fmt.Sprint(b.Shared))

	summary := fmt.Sprintf("%d candidates · %d scored · %d failed · %s",
		o.Total, o.Succeeded-o.Incomparable, o.Failed, o.Duration.Round(time.Millisecond))
	printInfo(w, "%s", summary)
	if len(o.Failures) > 0 {
		printWarning(w, "failures: %s", formatFailures(o.Failures))
	}
}

// formatFailures renders failure counts as "build 2, render 1", in stage order.
func formatFailures(f map[observability.Stage]int) string {
	stages := make([]observability.Stage, 0, len(f))
	for s := range f {
		stages = append(stages, s)
	}
	rank := func(s observability.Stage) int {
		for i, known := range observability.Stages {
			if s == known {
				return i
			}
		}
		return len(observability.Stages)
	}
	sort.Slice(stages, func(i, j int) bool {
		if rank(stages[i]) != rank(stages[j]) {
			return rank(stages[i]) < rank(stages[j])
		}
		return stages[i] < stages[j]
	})

	parts := make([]string, len(stages))
	for i, s := range stages {
		parts[i] = fmt.Sprintf("%s %d", s, f[s])
	}
	return strings.Join(parts, ", ")
}
