// Package recipe describes how an image is assembled from a base image.
//
// A [Recipe] names a base image, a set of labels, an ordered list of
// [Step] values and the entrypoint of the resulting image. Steps are either
// operations (run a shell command, copy files from the build context) or
// modifiers (environment, working directory, shell) that persist for the
// steps that follow. Order is significant: each step sees the filesystem
// left by the previous one.
//
// Recipes are written inline in the pipeline file or as a Dockerfile. Only
// single-stage Dockerfiles are accepted.
//
// Example usage:
//
//	r, err := recipe.Load("Dockerfile")
//	if err != nil {
//	    return err
//	}
//
//	fmt.Println(r.From, r.ImageEntrypoint())
package recipe
