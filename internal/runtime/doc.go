// Package runtime manages build containers backed by containerd.
//
// A [Runtime] connects to a containerd daemon. Base images are pulled from
// their registry (or imported from a local OCI archive), unpacked for the
// target platform, and used to create containers with overlay snapshots.
//
// Each [Container] wraps a running containerd task. Commands can be
// executed inside the container and files copied in as tar streams. When
// the build is done, [Container.Export] commits the filesystem diff as a
// single new layer, applies an [ImageConfig], records the result in the
// image store and writes it as an OCI archive. The container should then
// be destroyed to release its snapshot and task resources.
//
// Example usage:
//
//	rt, err := runtime.New("/run/containerd/containerd.sock", "qibo-release")
//	if err != nil {
//	    return err
//	}
//	defer rt.Close()
//
//	base, err := rt.PrepareBase(ctx, "ubuntu:22.04", "linux/amd64")
//	if err != nil {
//	    return err
//	}
//
//	ctr, err := rt.StartContainer(ctx, base, "qibo-build", "linux/amd64")
//	if err != nil {
//	    return err
//	}
//	defer ctr.Destroy(ctx)
//
//	result, err := ctr.Exec(ctx, "/bin/sh", "pip install qibo", runtime.ExecOptions{})
//	if err != nil {
//	    return err
//	}
//
//	desc, err := ctr.Export(ctx, "dist", runtime.ImageConfig{Entrypoint: []string{"/bin/bash"}}, "qibo")
package runtime
