package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	containerd "github.com/containerd/containerd/v2/client"
	"github.com/containerd/containerd/v2/core/images"
	"github.com/containerd/errdefs"
	"github.com/containerd/platforms"
	"github.com/opencontainers/go-digest"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

// Loads the image in the OCI archive at path, stores it as tag and unpacks
// its layers for platform.
//
// The archive must hold exactly one image record; a multi-platform image is
// one record whose target is an index. The record the archive was imported
// under is dropped in favour of tag.
func (rt *Runtime) ImportImage(ctx context.Context, path, tag, platform string) error {
	imported, err := rt.loadArchive(ctx, path)
	if err != nil {
		return fmt.Errorf("%w: import %s: %w", ErrRuntime, path, err)
	}

	if err := rt.TagImage(ctx, tag, imported.Target); err != nil {
		return err
	}
	if imported.Name != tag {
		if err := rt.RemoveImage(ctx, imported.Name); err != nil {
			slog.Debug("failed to remove imported record", "name", imported.Name, "error", err)
		}
	}

	img, err := rt.resolveImage(ctx, tag, platform)
	if err == nil {
		err = img.Unpack(ctx, snapshotter)
	}
	if err != nil {
		return fmt.Errorf("%w: unpack %s: %w", ErrRuntime, tag, err)
	}

	slog.Debug("image imported", "path", path, "tag", tag)
	return nil
}

// Records target in the image store under name, replacing an existing
// record of that name.
func (rt *Runtime) TagImage(ctx context.Context, name string, target ocispec.Descriptor) error {
	if err := recordImage(ctx, rt.client.ImageService(), name, target); err != nil {
		return fmt.Errorf("%w: tag %s: %w", ErrRuntime, name, err)
	}
	slog.Debug("image tagged", "name", name, "digest", target.Digest.String())
	return nil
}

// Removes an image record. A missing record is not an error.
func (rt *Runtime) RemoveImage(ctx context.Context, name string) error {
	err := rt.client.ImageService().Delete(ctx, name)
	if err != nil && !errdefs.IsNotFound(err) {
		return fmt.Errorf("%w: remove %s: %w", ErrRuntime, name, err)
	}
	return nil
}

// Creates the record name -> target, or points an existing one at target.
func recordImage(ctx context.Context, is images.Store, name string, target ocispec.Descriptor) error {
	img := images.Image{Name: name, Target: target}

	_, err := is.Create(ctx, img)
	if errdefs.IsAlreadyExists(err) {
		_, err = is.Update(ctx, img, "target")
	}
	return err
}

// Imports the archive at path into the content store and returns the single
// image record it creates.
func (rt *Runtime) loadArchive(ctx context.Context, path string) (images.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return images.Image{}, err
	}
	defer f.Close()

	imported, err := rt.client.Import(ctx, f)
	if err != nil {
		return images.Image{}, err
	}

	switch len(imported) {
	case 0:
		return images.Image{}, ErrEmptyArchive
	case 1:
		return imported[0], nil
	default:
		return images.Image{}, fmt.Errorf("%w: %d records", ErrMultipleImages, len(imported))
	}
}

// Returns the stored image tag restricted to platform, so that unpacking and
// container creation pick that platform's manifest from an index.
func (rt *Runtime) resolveImage(ctx context.Context, tag, platform string) (containerd.Image, error) {
	p, err := platforms.Parse(platform)
	if err != nil {
		return nil, err
	}

	img, err := rt.client.ImageService().Get(ctx, tag)
	if err != nil {
		return nil, err
	}
	return containerd.NewImageWithPlatform(rt.client, img, platforms.Only(p)), nil
}

// Returns the name an archive base is stored under.
//
// The name is derived from the digest of the path, so it is a valid
// reference whatever characters the path holds and stable across runs.
func imageTag(path string) string {
	return "import/" + digest.FromString(path).Encoded() + ":latest"
}
