// Package artifact builds and publishes the package artifacts of matrix
// cells.
//
// Each cell gets its own workspace directory; nothing is shared between
// cells, so cells can run concurrently. The build script runs with the
// cell's OS and runtime version in its environment and must leave its
// artifacts in DIST_DIR. The publish script uploads a list of artifacts to
// the package index. Scripts are POSIX shell, interpreted in-process by
// mvdan.cc/sh, so they behave the same on every runner OS.
//
// Build scripts see:
//
//	MATRIX_OS        runner label of the cell (e.g., "ubuntu-latest")
//	RUNTIME_VERSION  runtime version of the cell (e.g., "3.9")
//	SOURCE_DIR       absolute path of the package source tree
//	DIST_DIR         absolute path where artifacts must be written
//	WORKSPACE        absolute path of the cell's scratch directory
//
// Publish scripts additionally see ARTIFACTS (newline-separated absolute
// paths) and PACKAGE_INDEX_TOKEN.
//
// Example usage:
//
//	runner, err := artifact.NewRunner(artifact.Options{
//	    Source:    ".",
//	    Workspace: paths.Cells(runID),
//	    Build:     "python -m build --wheel --outdir \"$DIST_DIR\" \"$SOURCE_DIR\"",
//	    Publish:   "twine upload $ARTIFACTS",
//	    Token:     registry.Secret(os.Getenv("PYPI_TOKEN")),
//	})
//	if err != nil {
//	    return err
//	}
//
//	artifacts, err := runner.Build(ctx, cell)
//	if err != nil {
//	    return err
//	}
//	err = runner.Publish(ctx, cell, artifacts)
package artifact
