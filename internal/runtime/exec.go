package runtime

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	containerd "github.com/containerd/containerd/v2/client"
	"github.com/containerd/containerd/v2/pkg/cio"
	specs "github.com/opencontainers/runtime-spec/specs-go"
)

// Sequence for exec process IDs.
var execSeq atomic.Uint64

// Returns a unique exec process ID.
func nextExecID() string {
	return fmt.Sprintf("exec-%d", execSeq.Add(1))
}

// Output of a command run inside a container.
type ExecResult struct {
	ExitCode int    // Exit code of the process.
	Stdout   string // Captured standard output.
	Stderr   string // Captured standard error.
}

// Per-command overrides for [Container.Exec].
type ExecOptions struct {
	Env     []string  // "KEY=value" entries merged over the container's environment.
	Workdir string    // Working directory. Empty keeps the container's default.
	Output  io.Writer // Receives stdout and stderr as they are produced. May be nil.
}

// Runs "shell -c command" inside the container.
//
// Env and Workdir apply to this command only. Output is captured in the
// result and also streamed to opts.Output when set. A non-zero exit code is
// reported in the result, not as an error.
func (c *Container) Exec(ctx context.Context, shell, command string, opts ExecOptions) (*ExecResult, error) {
	var stdout, stderr bytes.Buffer
	var outW, errW io.Writer = &stdout, &stderr
	if opts.Output != nil {
		outW = io.MultiWriter(&stdout, opts.Output)
		errW = io.MultiWriter(&stderr, opts.Output)
	}

	code, err := c.run(ctx, execRequest{
		args:    []string{shell, "-c", command},
		env:     opts.Env,
		workdir: opts.Workdir,
		stdout:  outW,
		stderr:  errW,
	})
	if err != nil {
		return nil, err
	}

	return &ExecResult{
		ExitCode: code,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}, nil
}

// Runs args without a shell, feeding stdin, and returns the exit code and
// captured stderr.
func (c *Container) execCommand(ctx context.Context, stdin io.Reader, args ...string) (int, string, error) {
	var stderr bytes.Buffer
	code, err := c.run(ctx, execRequest{
		args:   args,
		stdin:  stdin,
		stderr: &stderr,
	})
	return code, stderr.String(), err
}

// A process to run in the container's task.
type execRequest struct {
	args    []string  // Command and arguments.
	env     []string  // Merged over the container's environment.
	workdir string    // Overrides the container's working directory when set.
	stdin   io.Reader // May be nil.
	stdout  io.Writer // May be nil.
	stderr  io.Writer // May be nil.
}

// Attaches req as an exec process to the container's running task, waits
// for it and returns its exit code.
func (c *Container) run(ctx context.Context, req execRequest) (int, error) {
	ctr, err := c.client.LoadContainer(ctx, c.id)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	spec, err := ctr.Spec(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrRuntime, err)
	}
	pspec := processSpec(spec.Process, req)

	task, err := ctr.Task(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	stdout, stderr := req.stdout, req.stderr
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}

	var stdin *eofReader
	var streams cio.Opt
	if req.stdin != nil {
		stdin = newEOFReader(req.stdin)
		streams = cio.WithStreams(stdin, stdout, stderr)
	} else {
		streams = cio.WithStreams(nil, stdout, stderr)
	}

	process, err := task.Exec(ctx, nextExecID(), pspec, cio.NewCreator(streams))
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrRuntime, err)
	}
	defer process.Delete(ctx)

	return wait(ctx, process, stdin)
}

// Derives the process spec of req from the container's main process.
func processSpec(base *specs.Process, req execRequest) *specs.Process {
	p := *base
	p.Terminal = false
	p.Args = req.args
	if len(req.env) > 0 {
		p.Env = mergeEnv(p.Env, req.env)
	}
	if req.workdir != "" {
		p.Cwd = req.workdir
	}
	return &p
}

// Starts process and blocks until it exits.
//
// The containerd shim keeps both ends of the stdin FIFO open, so the
// process only sees EOF when its stdin is closed explicitly. That happens
// once stdin, when given, is drained.
func wait(ctx context.Context, process containerd.Process, stdin *eofReader) (int, error) {
	statusC, err := process.Wait(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrRuntime, err)
	}
	if err := process.Start(ctx); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	exited := make(chan struct{})
	defer close(exited)

	if stdin != nil {
		go closeStdinOnEOF(ctx, stdin, exited, func() error {
			return process.CloseIO(ctx, containerd.WithStdinCloser)
		})
	}

	status := <-statusC
	code, _, err := status.Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrRuntime, err)
	}
	return int(code), nil
}

// Calls closeIO once stdin is drained.
//
// Returns without closing when the process exits or ctx ends first, which
// covers a process that stops reading early and a stdin source that fails
// before EOF.
func closeStdinOnEOF(ctx context.Context, stdin *eofReader, exited <-chan struct{}, closeIO func() error) {
	select {
	case <-stdin.eof:
		if err := closeIO(); err != nil {
			slog.Debug("failed to close stdin", "error", err)
		}
	case <-exited:
	case <-ctx.Done():
	}
}

// Reader that closes eof once the wrapped reader is exhausted.
type eofReader struct {
	r    io.Reader
	once sync.Once
	eof  chan struct{}
}

func newEOFReader(r io.Reader) *eofReader {
	return &eofReader{r: r, eof: make(chan struct{})}
}

func (e *eofReader) Read(p []byte) (int, error) {
	n, err := e.r.Read(p)
	if errors.Is(err, io.EOF) {
		e.once.Do(func() { close(e.eof) })
	}
	return n, err
}

// Merges override env vars on top of a base env slice.
//
// Keys keep the position of their first appearance, so the result is
// stable for the same inputs. Entries without "=" are dropped.
func mergeEnv(base, overrides []string) []string {
	values := make(map[string]string, len(base)+len(overrides))
	order := make([]string, 0, len(base)+len(overrides))

	for _, entry := range append(slices.Clip(base), overrides...) {
		k, v, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		if _, seen := values[k]; !seen {
			order = append(order, k)
		}
		values[k] = v
	}

	result := make([]string, 0, len(order))
	for _, k := range order {
		result = append(result, k+"="+values[k])
	}
	return result
}
