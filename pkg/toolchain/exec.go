// Package toolchain runs the external build and render processes.
//
// Both run synchronously: the caller blocks until the process exits or its
// per-invocation timeout expires. A non-zero exit or an expired timeout fails
// only the current candidate (BUILD_FAILED / RENDER_FAILED); cancelling the
// parent context aborts the whole search and surfaces as ctx.Err().
package toolchain

import (
	"context"
	stderrors "errors"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/matzehuels/layouttune/pkg/errors"
)

// maxDiagnostics bounds the captured diagnostics kept on a failure.
const maxDiagnostics = 4 << 10

// Command describes one external process invocation.
type Command struct {
	Name    string        // Executable name or path
	Args    []string      // Arguments
	Dir     string        // Working directory; empty means the current one
	Env     []string      // Extra KEY=VALUE pairs on top of the inherited environment
	Timeout time.Duration // Zero disables the timeout
}

// String returns the command line for logs and error messages.
func (c Command) String() string {
	parts := append([]string{c.Name}, c.Args...)
	for i, p := range parts {
		if p == "" || strings.ContainsAny(p, " \t\"'") {
			parts[i] = `"` + strings.ReplaceAll(p, `"`, `\"`) + `"`
		}
	}
	return strings.Join(parts, " ")
}

// run executes c and waits for it. When stdout is nil, standard output is
// collected as diagnostics together with standard error.
func run(ctx context.Context, c Command, stdout io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	runCtx := ctx
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	// Children that inherited the pipes must not keep Wait blocked after a kill.
	cmd.WaitDelay = 2 * time.Second

	diag := &tailBuffer{max: maxDiagnostics}
	cmd.Stdout = diag
	if stdout != nil {
		cmd.Stdout = stdout
	}
	cmd.Stderr = diag

	err := cmd.Run()
	if err == nil {
		return nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	perr := &errors.ProcessError{Command: c.String(), ExitCode: -1, Output: diag.String()}
	if stderrors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return errors.Wrap(errors.ErrCodeTimeout, perr, "no exit after %s", c.Timeout)
	}

	var exitErr *exec.ExitError
	if stderrors.As(err, &exitErr) {
		perr.ExitCode = exitErr.ExitCode()
		return perr
	}
	if perr.Output == "" {
		perr.Output = err.Error()
	}
	return perr
}

// Diagnostics returns the captured output carried by a build or render
// failure, or "" if err has none.
func Diagnostics(err error) string {
	var perr *errors.ProcessError
	if stderrors.As(err, &perr) {
		return perr.Output
	}
	return ""
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	buf       []byte
	max       int
	truncated bool
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.max; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
		t.truncated = true
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	s := strings.TrimSpace(string(t.buf))
	if t.truncated {
		return "..." + s
	}
	return s
}
