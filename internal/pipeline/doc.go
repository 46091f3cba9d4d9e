// Package pipeline runs the release pipeline for one trigger event.
//
// A run moves through fixed phases:
//
//	triggered -> matrix-expanded -> building -> publishing -> image-building
//	          -> image-tagging -> image-pushing -> done
//
// with failed reachable from any of them. Cells of the build matrix are
// built concurrently and independently; a failing cell is reported and
// does not affect its siblings. The publish decision is taken once per
// cell, and the pipeline itself guarantees that at most one cell publishes
// per run. The image phase starts only after every cell has finished,
// whatever the outcome, and is not conditioned on publishing. It begins by
// deriving the Version String; an untaggable ref fails the image phase
// alone.
//
// The pipeline depends on three narrow interfaces ([CellRunner],
// [ImageBuilder] and [Registry]) and an immutable [Config], so it can be
// driven by containerd and a real registry or by test doubles.
//
// Example usage:
//
//	p, err := pipeline.New(pipeline.Config{
//	    Matrix: m,
//	    Image:  pipeline.ImageName{Host: "ghcr.io", Owner: "qiboteam", Name: "qibo"},
//	    Push:   true,
//	}, cells, images, reg)
//	if err != nil {
//	    return err
//	}
//
//	report, err := p.Run(ctx, ev)
package pipeline
