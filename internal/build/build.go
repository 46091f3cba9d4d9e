package build

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/qiboteam/qibo-docker/internal/paths"
	"github.com/qiboteam/qibo-docker/internal/recipe"
	"github.com/qiboteam/qibo-docker/internal/runtime"
)

// Controls an image build.
type Options struct {
	Recipe   *recipe.Recipe // Recipe to execute.
	Name     string         // Local image name. Also prefixes the build container ID.
	Output   string         // Directory for the exported image archive.
	Root     string         // Build context, for resolving copy sources.
	Platform string         // Target platform (e.g., "linux/amd64"). Defaults to host.
	Log      io.Writer      // Receives the output of run steps. May be nil.
}

// Returned after a successful build.
type Result struct {
	Name       string             // Local image name.
	Archive    string             // Path to the exported OCI archive.
	Descriptor ocispec.Descriptor // Root descriptor of the built image.
}

// Builds an image from a recipe.
//
// The base image is made available first; failure to obtain it returns
// [ErrBaseImage]. A single build container is then started from it and the
// recipe's steps run strictly in order, each seeing the filesystem left by
// the one before. The first failing step stops the build. The container's
// changes are committed as one new layer with the recipe's labels, the
// accumulated environment and working directory, and the recipe entrypoint.
// The image is recorded under Name and exported to
// Output/image.tar. The build container is always destroyed.
func Run(ctx context.Context, rt *runtime.Runtime, opts Options) (*Result, error) {
	if opts.Recipe == nil {
		return nil, fmt.Errorf("%w: no recipe", ErrBuild)
	}
	if err := opts.Recipe.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuild, err)
	}
	if opts.Platform == "" {
		opts.Platform = runtime.DefaultPlatform()
	}

	slog.Info("building image",
		"name", opts.Name,
		"base", opts.Recipe.From,
		"steps", len(opts.Recipe.Steps),
		"platform", opts.Platform,
		"output", opts.Output,
	)

	if err := os.MkdirAll(opts.Output, paths.DefaultDirMode); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFileSystemOperation, err)
	}

	base, err := rt.PrepareBase(ctx, opts.Recipe.From, opts.Platform)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrBaseImage, opts.Recipe.From, err)
	}

	ctr, err := rt.StartContainer(ctx, base, containerID(opts.Name, opts.Platform), opts.Platform)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuild, err)
	}
	defer ctr.Destroy(context.WithoutCancel(ctx))

	state := newScope()
	if err := executeSteps(ctx, ctr, opts.Recipe.Steps, &state, opts.Root, opts.Log); err != nil {
		return nil, err
	}

	if err := ctr.Stop(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuild, err)
	}

	desc, err := ctr.Export(ctx, opts.Output, imageConfig(opts.Recipe, state), opts.Name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuild, err)
	}

	return &Result{
		Name:       opts.Name,
		Archive:    filepath.Join(opts.Output, runtime.ExportFilename),
		Descriptor: desc,
	}, nil
}

// Derives the output image config from the recipe and the scope left after the last step.
func imageConfig(r *recipe.Recipe, state scope) runtime.ImageConfig {
	return runtime.ImageConfig{
		Entrypoint: r.ImageEntrypoint(),
		Cmd:        r.Cmd,
		Env:        state.environ(),
		WorkingDir: state.workdir,
		Labels:     r.Labels,
	}
}

// Returns the build container ID for an image and platform.
func containerID(name, platform string) string {
	return fmt.Sprintf("%s-%s-build", name, platformSlug(platform))
}

// Converts a platform string to a filesystem-safe slug.
//
// Replaces slashes with dashes (e.g., "linux/amd64" becomes "linux-amd64").
func platformSlug(platform string) string {
	return strings.ReplaceAll(platform, "/", "-")
}
