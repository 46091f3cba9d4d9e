package runtime

import (
	"context"
	"fmt"
	"log/slog"
	goruntime "runtime"
	"strings"

	containerd "github.com/containerd/containerd/v2/client"
	"github.com/containerd/platforms"
	"github.com/distribution/reference"
)

const (

	// Snapshotter used for container filesystems. fuse-overlayfs provides
	// overlay semantics without requiring root privileges (no mount(2)),
	// allowing builds to run as a regular user.
	snapshotter = "fuse-overlayfs"

	// OCI runtime shim for running containers.
	ociRuntime = "io.containerd.runc.v2"

	// Prefix marking a base image that is read from a local OCI archive
	// instead of pulled from a registry.
	ArchivePrefix = "oci-archive:"
)

// Manages the containerd client and provides image and container operations.
type Runtime struct {
	client *containerd.Client // Containerd client for managing containers and images.
}

// Creates a runtime connected to the containerd socket at the given address.
//
// The namespace scopes all containerd operations to a single tenant. The
// runtime must be closed when no longer needed.
func New(address, namespace string) (*Runtime, error) {
	client, err := containerd.New(address, containerd.WithDefaultNamespace(namespace))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRuntime, err)
	}
	return &Runtime{client: client}, nil
}

// Closes the containerd client connection.
func (rt *Runtime) Close() error {
	return rt.client.Close()
}

// Makes a base image available for the target platform and returns the
// name it is stored under.
//
// References prefixed with [ArchivePrefix] are imported from a local OCI
// archive. Anything else is pulled from its registry.
func (rt *Runtime) PrepareBase(ctx context.Context, base, platform string) (string, error) {
	if path, ok := strings.CutPrefix(base, ArchivePrefix); ok {
		tag := imageTag(path)
		if err := rt.ImportImage(ctx, path, tag, platform); err != nil {
			return "", err
		}
		return tag, nil
	}
	return rt.PullImage(ctx, base, platform)
}

// Pulls an image and unpacks it for the target platform.
//
// The reference is normalized first, so short Docker Hub names such as
// "ubuntu:22.04" resolve to "docker.io/library/ubuntu:22.04". Returns the
// normalized name the image is stored under.
func (rt *Runtime) PullImage(ctx context.Context, ref, platform string) (string, error) {
	named, err := NormalizeBase(ref)
	if err != nil {
		return "", err
	}

	p, err := platforms.Parse(platform)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrPull, err)
	}

	slog.Info("pulling base image", "ref", named, "platform", platform)

	img, err := rt.client.Pull(ctx, named,
		containerd.WithPlatformMatcher(platforms.Only(p)),
		containerd.WithPullUnpack,
		containerd.WithPullSnapshotter(snapshotter),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrPull, named, err)
	}

	slog.Debug("base image pulled", "name", img.Name(), "digest", img.Target().Digest.String())
	return img.Name(), nil
}

// Returns the fully qualified form of a base image reference.
func NormalizeBase(ref string) (string, error) {
	named, err := reference.ParseDockerRef(ref)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %w", ErrPull, ref, err)
	}
	return named.String(), nil
}

// Starts a build container from a stored image.
//
// The image's layers for platform must already be unpacked (see
// [Runtime.PrepareBase]). A leftover container with the same ID, from an
// interrupted build, is destroyed first. The container gets a fresh
// snapshot and an idle main process that build commands attach to. Building
// for a platform other than the host's requires QEMU / binfmt_misc support
// in the kernel.
func (rt *Runtime) StartContainer(ctx context.Context, image, id, platform string) (*Container, error) {
	c := &Container{
		client:   rt.client,
		id:       id,
		platform: platform,
	}
	c.Destroy(ctx)

	img, err := rt.resolveImage(ctx, image, platform)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	if err := c.launch(ctx, img); err != nil {
		return nil, fmt.Errorf("%w: start %s: %w", ErrRuntime, id, err)
	}

	slog.Debug("container started", "id", id, "image", image)
	return c, nil
}

// Returns the default OCI platform for the host architecture.
func DefaultPlatform() string {
	return "linux/" + goruntime.GOARCH
}
