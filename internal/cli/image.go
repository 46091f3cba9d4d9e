package cli

import (
	"context"
	"log/slog"

	"github.com/qiboteam/qibo-docker/internal/pipeline"
)

// Represents the 'qibo-release image' command.
type ImageCmd struct {
	TriggerFlags
	RegistryFlags
	BuildFlags
}

// Executes the image command.
//
// Builds the image, tags it with the version string derived from the
// trigger event and, unless --no-push is given, logs in and pushes it. Run
// this once every cell job has finished.
func (c *ImageCmd) Run(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ev, err := c.resolve(cfg.SourceDir())
	if err != nil {
		return err
	}
	if _, err := pipeline.ImageReference(imageName(cfg), ev); err != nil {
		return err
	}

	reg, err := newRegistry(cfg, c.RegistryFlags)
	if err != nil {
		return err
	}

	id := runID()
	images, err := newImageBuilder(cfg, id, c.BuildFlags)
	if err != nil {
		return err
	}
	defer func() {
		if err := images.Close(); err != nil {
			slog.Warn("failed to close runtime", "error", err)
		}
	}()

	p, err := newPipeline(cfg, id, nil, images, reg, !c.NoPush, nil)
	if err != nil {
		return err
	}

	img, runErr := p.RunImage(ctx, ev)
	if img != nil {
		if err := printJSON(img); err != nil {
			return err
		}
	}
	return runErr
}
