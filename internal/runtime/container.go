package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"syscall"

	containerd "github.com/containerd/containerd/v2/client"
	"github.com/containerd/containerd/v2/pkg/cio"
	"github.com/containerd/containerd/v2/pkg/oci"
	"github.com/containerd/errdefs"
	specs "github.com/opencontainers/runtime-spec/specs-go"
)

// A running build container backed by containerd.
//
// The container runs "sleep infinity" as its main process; build commands
// are attached to it as exec processes.
type Container struct {
	client   *containerd.Client // Containerd client.
	id       string             // Containerd container ID, also the snapshot key.
	platform string             // OCI platform (e.g., "linux/amd64").
}

// Stops the container's task, keeping its snapshot for [Container.Export].
//
// Stopping a container that has no task is not an error.
func (c *Container) Stop(ctx context.Context) error {
	ctr, err := c.client.LoadContainer(ctx, c.id)
	if errdefs.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	if err := killTask(ctx, ctr); err != nil {
		return fmt.Errorf("%w: stop %s: %w", ErrRuntime, c.id, err)
	}
	return nil
}

// Removes the container together with its task and snapshot.
//
// Failures are logged, not returned: Destroy runs on cleanup paths where the
// build outcome is already decided. A missing container is ignored.
func (c *Container) Destroy(ctx context.Context) {
	ctr, err := c.client.LoadContainer(ctx, c.id)
	if errdefs.IsNotFound(err) {
		return
	}
	if err != nil {
		slog.Warn("failed to load container", "id", c.id, "error", err)
		return
	}

	if err := killTask(ctx, ctr); err != nil {
		slog.Warn("failed to stop container", "id", c.id, "error", err)
	}
	if err := ctr.Delete(ctx, containerd.WithSnapshotCleanup); err != nil && !errdefs.IsNotFound(err) {
		slog.Warn("failed to delete container", "id", c.id, "error", err)
	}
}

// Creates the container from image and starts its idle main process.
//
// On failure nothing is left behind.
func (c *Container) launch(ctx context.Context, image containerd.Image) error {
	ctr, err := c.client.NewContainer(ctx, c.id,
		containerd.WithImage(image),
		containerd.WithSnapshotter(snapshotter),
		containerd.WithNewSnapshot(c.id, image),
		containerd.WithRuntime(ociRuntime, nil),
		containerd.WithNewSpec(
			oci.WithDefaultSpecForPlatform(c.platform),
			oci.WithImageConfig(image),
			oci.WithHostNamespace(specs.NetworkNamespace),
			oci.WithHostResolvconf,
			oci.WithProcessArgs("sleep", "infinity"),
		),
	)
	if err != nil {
		return err
	}

	task, err := ctr.NewTask(ctx, cio.NullIO)
	if err == nil {
		if err = task.Start(ctx); err != nil {
			task.Delete(ctx)
		}
	}
	if err != nil {
		ctr.Delete(ctx, containerd.WithSnapshotCleanup)
		return err
	}
	return nil
}

// Kills and deletes the task of ctr. A container without a task is left
// as is.
func killTask(ctx context.Context, ctr containerd.Container) error {
	task, err := ctr.Task(ctx, nil)
	if errdefs.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}

	if err := task.Kill(ctx, syscall.SIGKILL); err != nil && !errdefs.IsNotFound(err) {
		slog.Debug("kill failed", "id", ctr.ID(), "error", err)
	}
	if _, err := task.Delete(ctx, containerd.WithProcessKill); err != nil && !errdefs.IsNotFound(err) {
		return err
	}
	return nil
}
