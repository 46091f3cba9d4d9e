package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"

	"github.com/containerd/containerd/v2/core/images"
	"github.com/containerd/containerd/v2/core/images/archive"
	"github.com/containerd/containerd/v2/pkg/rootfs"
	"github.com/containerd/platforms"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

// Filename of the OCI archive produced by Export.
const ExportFilename = "image.tar"

// Image configuration applied on export.
type ImageConfig struct {
	Entrypoint []string          // Replaces the base image's entrypoint when set.
	Cmd        []string          // Replaces the base image's cmd whenever Entrypoint is set.
	Env        []string          // "KEY=value" entries merged over the base environment.
	WorkingDir string            // Replaces the base working directory when set.
	Labels     map[string]string // Merged over the base image's labels.
}

// Commits the container's filesystem changes as a new image and writes it
// to output/image.tar.
//
// The new image is the base image plus one layer holding the container's
// diff, with cfg applied to its config. It is recorded in the image store
// under every name, and the archive carries the first name as its reference
// annotation. All new blobs are written under a lease, so they stay alive
// until the image records reference them. The base image record is never
// modified. Returns the root descriptor of the new image.
func (c *Container) Export(ctx context.Context, output string, cfg ImageConfig, names ...string) (ocispec.Descriptor, error) {
	if len(names) == 0 {
		return ocispec.Descriptor{}, fmt.Errorf("%w: export requires an image name", ErrRuntime)
	}

	ctx, done, err := c.client.WithLease(ctx)
	if err != nil {
		return ocispec.Descriptor{}, fmt.Errorf("%w: %w", ErrRuntime, err)
	}
	defer done(context.Background())

	target, err := c.commit(ctx, cfg)
	if err != nil {
		return ocispec.Descriptor{}, fmt.Errorf("%w: commit %s: %w", ErrRuntime, c.id, err)
	}

	for _, name := range names {
		if err := recordImage(ctx, c.client.ImageService(), name, target); err != nil {
			return ocispec.Descriptor{}, fmt.Errorf("%w: record %s: %w", ErrRuntime, name, err)
		}
	}

	path := filepath.Join(output, ExportFilename)
	if err := c.writeArchive(ctx, target, names[0], path); err != nil {
		return ocispec.Descriptor{}, fmt.Errorf("%w: write %s: %w", ErrRuntime, path, err)
	}

	slog.Info("image exported", "path", path, "digest", target.Digest.String())
	return target, nil
}

// Writes the committed image to the content store and returns its root.
//
// When the base image is an index, the new root is an index holding only the
// committed manifest: layers of the other platforms were never fetched.
func (c *Container) commit(ctx context.Context, cfg ImageConfig) (ocispec.Descriptor, error) {
	ctr, err := c.client.LoadContainer(ctx, c.id)
	if err != nil {
		return ocispec.Descriptor{}, err
	}
	info, err := ctr.Info(ctx)
	if err != nil {
		return ocispec.Descriptor{}, err
	}

	cs := c.client.ContentStore()

	layer, err := rootfs.CreateDiff(ctx, info.SnapshotKey, c.client.SnapshotService(info.Snapshotter), c.client.DiffService())
	if err != nil {
		return ocispec.Descriptor{}, fmt.Errorf("diff: %w", err)
	}
	diffID, err := images.GetDiffID(ctx, cs, layer)
	if err != nil {
		return ocispec.Descriptor{}, err
	}

	base, err := c.client.ImageService().Get(ctx, info.Image)
	if err != nil {
		return ocispec.Descriptor{}, err
	}
	choice, err := chooseManifest(ctx, cs, base.Target, c.platform)
	if err != nil {
		return ocispec.Descriptor{}, err
	}

	manifest, err := readJSON[ocispec.Manifest](ctx, cs, choice.desc)
	if err != nil {
		return ocispec.Descriptor{}, err
	}
	config, err := readJSON[ocispec.Image](ctx, cs, manifest.Config)
	if err != nil {
		return ocispec.Descriptor{}, err
	}

	manifest.Layers = append(manifest.Layers, layer)
	config.RootFS.DiffIDs = append(config.RootFS.DiffIDs, diffID)
	applyImageConfig(&config, cfg)

	if manifest.Config, err = writeJSON(ctx, cs, manifest.Config.MediaType, config, nil); err != nil {
		return ocispec.Descriptor{}, err
	}
	desc, err := writeJSON(ctx, cs, choice.desc.MediaType, manifest, manifestGCLabels(manifest))
	if err != nil {
		return ocispec.Descriptor{}, err
	}

	if choice.index == nil {
		return desc, nil
	}

	desc.Platform = choice.desc.Platform
	index := *choice.index
	index.Manifests = []ocispec.Descriptor{desc}
	return writeJSON(ctx, cs, base.Target.MediaType, index, indexGCLabels(index))
}

// Applies cfg to an image config in place.
func applyImageConfig(config *ocispec.Image, cfg ImageConfig) {
	if len(cfg.Entrypoint) > 0 {
		config.Config.Entrypoint = cfg.Entrypoint
		config.Config.Cmd = cfg.Cmd
	}
	if len(cfg.Env) > 0 {
		config.Config.Env = mergeEnv(config.Config.Env, cfg.Env)
	}
	if cfg.WorkingDir != "" {
		config.Config.WorkingDir = cfg.WorkingDir
	}
	if len(cfg.Labels) > 0 {
		if config.Config.Labels == nil {
			config.Config.Labels = make(map[string]string, len(cfg.Labels))
		}
		maps.Copy(config.Config.Labels, cfg.Labels)
	}
}

// Writes target to an OCI tar archive at path, annotated with name.
//
// The target is exported by descriptor, so no image lookup by name happens.
// Only the container's platform is included.
func (c *Container) writeArchive(ctx context.Context, target ocispec.Descriptor, name, path string) error {
	p, err := platforms.Parse(c.platform)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := c.client.Export(ctx, f,
		archive.WithManifest(target, name),
		archive.WithPlatform(platforms.Only(p)),
	); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
