package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/qiboteam/qibo-docker/internal/matrix"
	"github.com/qiboteam/qibo-docker/internal/paths"
	"github.com/qiboteam/qibo-docker/internal/registry"
	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// Configures a [Runner].
type Options struct {
	Source    string          // Package source tree, exposed as SOURCE_DIR.
	Workspace string          // Parent of the per-cell workspaces.
	Build     string          // Build script.
	Publish   string          // Publish script.
	Token     registry.Secret // Package index token, exposed to the publish script only.
	Env       []string        // Base environment ("KEY=value"). Defaults to the process environment.
	Output    io.Writer       // Receives script output. Defaults to stderr.
}

// Builds and publishes cell artifacts by running shell scripts.
//
// A Runner holds no per-cell state and is safe for concurrent use.
type Runner struct {
	source    string          // Absolute source directory.
	workspace string          // Absolute workspace parent directory.
	build     *syntax.File    // Parsed build script.
	publish   *syntax.File    // Parsed publish script, nil when none is configured.
	token     registry.Secret // Package index token.
	env       []string        // Base environment.
	output    io.Writer       // Script output sink.
}

// Creates a runner, parsing both scripts up front.
func NewRunner(opts Options) (*Runner, error) {
	if strings.TrimSpace(opts.Build) == "" {
		return nil, fmt.Errorf("%w: build", ErrNoScript)
	}

	build, err := parseScript("build", opts.Build)
	if err != nil {
		return nil, err
	}

	var publish *syntax.File
	if strings.TrimSpace(opts.Publish) != "" {
		if publish, err = parseScript("publish", opts.Publish); err != nil {
			return nil, err
		}
	}

	source, err := filepath.Abs(opts.Source)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWorkspace, err)
	}
	workspace, err := filepath.Abs(opts.Workspace)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWorkspace, err)
	}

	env := opts.Env
	if env == nil {
		env = os.Environ()
	}
	output := opts.Output
	if output == nil {
		output = os.Stderr
	}

	return &Runner{
		source:    source,
		workspace: workspace,
		build:     build,
		publish:   publish,
		token:     opts.Token,
		env:       env,
		output:    output,
	}, nil
}

// Builds the artifacts of one cell.
//
// The cell's workspace is recreated empty, the build script runs inside it,
// and the files it leaves in DIST_DIR are returned. A script that exits
// non-zero returns [ErrScriptFailed]; one that writes nothing returns
// [ErrNoArtifacts].
func (r *Runner) Build(ctx context.Context, cell matrix.Cell) ([]Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ws := r.cellWorkspace(cell)
	dist := filepath.Join(ws, "dist")

	if err := os.RemoveAll(ws); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWorkspace, err)
	}
	if err := os.MkdirAll(dist, paths.DefaultDirMode); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWorkspace, err)
	}

	env := append(r.cellEnv(cell, ws), "DIST_DIR="+dist)

	slog.Info("building cell", "cell", cell, "workspace", ws)

	if err := r.run(ctx, r.build, ws, env); err != nil {
		return nil, fmt.Errorf("cell %s: %w", cell, err)
	}

	artifacts, err := Collect(dist)
	if err != nil {
		return nil, err
	}
	if len(artifacts) == 0 {
		return nil, fmt.Errorf("%w: cell %s", ErrNoArtifacts, cell)
	}

	for _, a := range artifacts {
		slog.Debug("artifact", "cell", cell, "artifact", a)
	}
	return artifacts, nil
}

// Publishes the artifacts of one cell to the package index.
//
// The caller decides whether the cell may publish; see matrix.ShouldPublish.
func (r *Runner) Publish(ctx context.Context, cell matrix.Cell, artifacts []Artifact) error {
	if r.publish == nil {
		return fmt.Errorf("%w: publish", ErrNoScript)
	}
	if r.token == "" {
		return ErrMissingToken
	}

	list := make([]string, len(artifacts))
	for i, a := range artifacts {
		list[i] = a.Path
	}

	ws := r.cellWorkspace(cell)
	env := append(r.cellEnv(cell, ws),
		"DIST_DIR="+filepath.Join(ws, "dist"),
		"ARTIFACTS="+strings.Join(list, "\n"),
		"PACKAGE_INDEX_TOKEN="+r.token.Reveal(),
	)

	slog.Info("publishing cell", "cell", cell, "artifacts", len(artifacts))

	if err := r.run(ctx, r.publish, ws, env); err != nil {
		return fmt.Errorf("cell %s: %w", cell, err)
	}
	return nil
}

// Returns the workspace directory of a cell.
func (r *Runner) cellWorkspace(cell matrix.Cell) string {
	return filepath.Join(r.workspace, cell.Slug())
}

// Returns the base environment extended with the cell variables.
func (r *Runner) cellEnv(cell matrix.Cell, ws string) []string {
	env := make([]string, 0, len(r.env)+6)
	env = append(env, r.env...)
	return append(env,
		"MATRIX_OS="+cell.OS,
		"RUNTIME_VERSION="+cell.Runtime,
		"SOURCE_DIR="+r.source,
		"WORKSPACE="+ws,
	)
}

// Runs a parsed script in dir with env.
func (r *Runner) run(ctx context.Context, prog *syntax.File, dir string, env []string) error {
	runner, err := interp.New(
		interp.Dir(dir),
		interp.Env(expand.ListEnviron(env...)),
		interp.StdIO(nil, r.output, r.output),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrScript, err)
	}

	if err := runner.Run(ctx, prog); err != nil {
		var status interp.ExitStatus
		if errors.As(err, &status) {
			return fmt.Errorf("%w: %s exited with status %d", ErrScriptFailed, prog.Name, status)
		}
		return fmt.Errorf("%w: %s: %w", ErrScriptFailed, prog.Name, err)
	}
	return nil
}

// Parses a shell script.
func parseScript(name, src string) (*syntax.File, error) {
	prog, err := syntax.NewParser().Parse(strings.NewReader(src), name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrScript, name, err)
	}
	return prog, nil
}
