// Package build assembles container images from recipes.
//
// A build starts one container from the recipe's base image and runs the
// recipe's steps against it in declaration order: shell commands through
// the current shell, and file copies from the build context. Modifier steps
// (environment, working directory, shell) accumulate and carry over to
// later steps and to the final image config. The first failing step aborts
// the build and no image is produced.
//
// On success the container's changes are committed as a single layer on top
// of the base image. The image gets the recipe's labels and entrypoint (an
// interactive shell unless the recipe says otherwise), is recorded in the
// container runtime under its local name, and is written as an OCI archive
// for pushing.
//
// Container operations are delegated to the runtime package.
//
// Example usage:
//
//	result, err := build.Run(ctx, rt, build.Options{
//	    Recipe: r,
//	    Name:   "qibo",
//	    Output: "dist",
//	    Root:   ".",
//	})
//	if err != nil {
//	    return err
//	}
package build
