package build

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/qiboteam/qibo-docker/internal/recipe"
	"github.com/qiboteam/qibo-docker/internal/runtime"
)

// Maximum number of stderr bytes quoted in a failed command's error.
const stderrTail = 2048

// Executes a list of steps in order against the build container.
func executeSteps(ctx context.Context, ctr *runtime.Container, steps []recipe.Step, state *scope, buildCtx string, log io.Writer) error {
	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := executeStep(ctx, ctr, step, state, buildCtx, log); err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}
	}
	return nil
}

// Executes a single step. A modifier-only step updates state; run and copy
// steps execute in state overlaid with their own modifiers.
func executeStep(ctx context.Context, ctr *runtime.Container, step recipe.Step, state *scope, buildCtx string, log io.Writer) error {
	resolved := state.with(step)
	if !step.IsOperation() {
		*state = resolved
		return nil
	}

	if resolved.workdir != "" {
		if err := ctr.MkdirAll(ctx, resolved.workdir); err != nil {
			return err
		}
	}

	if step.Copy != "" {
		return executeCopy(ctx, ctr, step.Copy, resolved.workdir, buildCtx)
	}

	slog.Info("run", "command", step.Run)
	slog.Debug("run context", "shell", resolved.shell, "workdir", resolved.workdir)

	result, err := ctr.Exec(ctx, resolved.shell, step.Run, runtime.ExecOptions{
		Env:     resolved.environ(),
		Workdir: resolved.workdir,
		Output:  log,
	})
	if err != nil {
		return err
	}
	if result.ExitCode != 0 {
		return fmt.Errorf("%w: %q exited with code %d: %s", ErrCommandFailed, step.Run, result.ExitCode, tail(result.Stderr, stderrTail))
	}
	return nil
}

// Returns at most the last n bytes of s, trimmed of surrounding whitespace.
func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
