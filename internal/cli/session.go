package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	goruntime "runtime"

	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/qiboteam/qibo-docker/internal/artifact"
	"github.com/qiboteam/qibo-docker/internal/build"
	"github.com/qiboteam/qibo-docker/internal/config"
	"github.com/qiboteam/qibo-docker/internal/matrix"
	"github.com/qiboteam/qibo-docker/internal/paths"
	"github.com/qiboteam/qibo-docker/internal/pipeline"
	"github.com/qiboteam/qibo-docker/internal/recipe"
	"github.com/qiboteam/qibo-docker/internal/registry"
	"github.com/qiboteam/qibo-docker/internal/runtime"
)

// Loads the pipeline file selected by --config.
func loadConfig() (*config.Pipeline, error) {
	cfg, err := config.Load(RootCmd.Config)
	if err != nil {
		return nil, err
	}
	slog.Debug("pipeline loaded", "file", RootCmd.Config, "image", cfg.Image.Name, "cells", len(cfg.Matrix.Expand()))
	return cfg, nil
}

// Returns the run identifier from --run-id, or a new one.
func runID() string {
	if RootCmd.RunID != "" {
		return RootCmd.RunID
	}
	return pipeline.NewRunID()
}

// Creates the runner for the package cells of a run.
func newCellRunner(cfg *config.Pipeline, id string, token registry.Secret) (*artifact.Runner, error) {
	return artifact.NewRunner(artifact.Options{
		Source:    cfg.SourceDir(),
		Workspace: paths.Cells(id),
		Build:     cfg.Package.Build,
		Publish:   cfg.Package.Publish,
		Token:     token,
	})
}

// Creates the registry client. Fails with registry.ErrMissingCredential
// when pushing without a complete credential.
func newRegistry(cfg *config.Pipeline, flags RegistryFlags) (*registry.Client, error) {
	cred := flags.credential()
	if !flags.NoPush {
		if err := cred.Validate(); err != nil {
			return nil, err
		}
	}
	return registry.New(registry.Options{
		Host:       cfg.Registry.Host,
		Credential: cred,
		PlainHTTP:  cfg.Registry.PlainHTTP,
	}), nil
}

// Creates the pipeline for one command.
//
// Components a command does not exercise may be nil.
func newPipeline(cfg *config.Pipeline, id string, cells pipeline.CellRunner, images pipeline.ImageBuilder, reg pipeline.Registry, push bool, skip func(matrix.Cell) bool) (*pipeline.Pipeline, error) {
	return pipeline.New(pipeline.Config{
		RunID:  id,
		Matrix: cfg.Matrix,
		Image:     imageName(cfg),
		Push:      push,
		Immutable: cfg.Registry.Immutable,
		Skip:      skip,
	}, cells, images, reg)
}

// Returns where the pipeline file sends the image.
func imageName(cfg *config.Pipeline) pipeline.ImageName {
	return pipeline.ImageName{
		Host:  cfg.Registry.Host,
		Owner: cfg.Registry.Owner,
		Name:  cfg.Image.Name,
	}
}

// Returns a filter skipping cells whose runner OS differs from the host,
// or nil when every cell should run.
func hostFilter(allOS bool) func(matrix.Cell) bool {
	if allOS {
		return nil
	}
	return func(c matrix.Cell) bool {
		return !c.MatchesHost(goruntime.GOOS)
	}
}

// Builds the container image through containerd.
type imageBuilder struct {
	rt       *runtime.Runtime // Containerd-backed runtime.
	recipe   *recipe.Recipe   // Image recipe.
	root     string           // Build context.
	output   string           // Directory for the exported archive.
	platform string           // Target platform.
}

// Connects to containerd and prepares an image builder for a run.
func newImageBuilder(cfg *config.Pipeline, id string, flags BuildFlags) (*imageBuilder, error) {
	r, err := cfg.Recipe()
	if err != nil {
		return nil, err
	}

	root := flags.Root
	if root == "" {
		root = cfg.BuildContext()
	}
	platform := flags.Platform
	if platform == "" {
		platform = cfg.Image.Platform
	}

	rt, err := runtime.New(flags.ContainerdAddress, flags.ContainerdNamespace)
	if err != nil {
		return nil, err
	}

	return &imageBuilder{
		rt:       rt,
		recipe:   r,
		root:     root,
		output:   paths.ImageOutput(id),
		platform: platform,
	}, nil
}

// Builds the image under name and opens its exported archive for pushing.
func (b *imageBuilder) BuildImage(ctx context.Context, name string) (*pipeline.BuiltImage, error) {
	res, err := build.Run(ctx, b.rt, build.Options{
		Recipe:   b.recipe,
		Name:     name,
		Output:   b.output,
		Root:     b.root,
		Platform: b.platform,
		Log:      os.Stderr,
	})
	if err != nil {
		return nil, err
	}

	store, err := registry.OpenArchive(ctx, res.Archive)
	if err != nil {
		return nil, err
	}

	return &pipeline.BuiltImage{
		Source:     store,
		Descriptor: res.Descriptor,
		Archive:    res.Archive,
	}, nil
}

// Records the built image under an additional name.
func (b *imageBuilder) TagImage(ctx context.Context, name string, desc ocispec.Descriptor) error {
	return b.rt.TagImage(ctx, name, desc)
}

// Closes the containerd connection.
func (b *imageBuilder) Close() error {
	return b.rt.Close()
}

// Writes v to stdout as indented JSON.
func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(os.Stdout, string(data))
	return err
}
