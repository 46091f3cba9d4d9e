// Package config loads the pipeline file.
//
// The pipeline file (pipeline.yaml) describes everything a release run
// needs besides the trigger and the credentials: the image recipe (inline
// or as a Dockerfile), the registry the image is pushed to, the build
// matrix and the package build and publish scripts. A default pipeline
// describing the qibo image is embedded in the binary and used when no file
// is given.
//
// Credentials never appear in the pipeline file. They come from flags or
// the environment.
//
// Example usage:
//
//	p, err := config.Load("pipeline.yaml")
//	if err != nil {
//	    return err
//	}
//
//	for _, cell := range p.Matrix.Expand() {
//	    fmt.Println(cell)
//	}
package config
