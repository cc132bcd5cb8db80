package toolchain

import (
	"context"
	"os"
	"path/filepath"

	"github.com/matzehuels/layouttune/pkg/errors"
)

// DefaultBuildCommand rebuilds the engine in Release configuration.
func DefaultBuildCommand() Command {
	return Command{
		Name: "cmake",
		Args: []string{"--build", "build", "--config", "Release", "-j", "4"},
	}
}

// Builder rebuilds the engine executable.
type Builder struct {
	Cmd Command
}

// NewBuilder returns a Builder running cmd.
func NewBuilder(cmd Command) *Builder {
	return &Builder{Cmd: cmd}
}

// Build runs the build command and waits for it. A non-zero exit status or a
// timeout yields BUILD_FAILED with the toolchain's diagnostics attached.
func (b *Builder) Build(ctx context.Context) error {
	if err := run(ctx, b.Cmd, nil); err != nil {
		if ctx.Err() != nil {
			return err
		}
		return errors.Wrap(errors.ErrCodeBuildFailed, err, "build")
	}
	return nil
}

// Renderer runs the freshly built engine on the sample input and stores its
// standard output as the rendering artifact.
type Renderer struct {
	Cmd    Command // Executable, leading arguments, working directory and timeout
	Input  string  // Sample input file, first positional argument
	Format string  // Output-format token, second positional argument
	Output string  // Artifact file, overwritten on every render
}

// Render invokes `<executable> [args...] <input> <format>` with standard
// output redirected into the artifact file. A non-zero exit status or a
// timeout yields RENDER_FAILED.
func (r *Renderer) Render(ctx context.Context) error {
	if dir := filepath.Dir(r.Output); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(errors.ErrCodeRenderFailed, err, "create artifact directory")
		}
	}
	out, err := os.Create(r.Output)
	if err != nil {
		return errors.Wrap(errors.ErrCodeRenderFailed, err, "create artifact %s", r.Output)
	}

	cmd := r.Cmd
	cmd.Args = append(append([]string{}, r.Cmd.Args...), r.Input, r.Format)

	runErr := run(ctx, cmd, out)
	closeErr := out.Close()

	switch {
	case runErr != nil && ctx.Err() != nil:
		return runErr
	case runErr != nil:
		return errors.Wrap(errors.ErrCodeRenderFailed, runErr, "render %s", r.Input)
	case closeErr != nil:
		return errors.Wrap(errors.ErrCodeRenderFailed, closeErr, "write artifact %s", r.Output)
	}
	return nil
}
