package cli

import (
	"context"
	"fmt"

	"github.com/qiboteam/qibo-docker/internal/pipeline"
)

// Represents the 'qibo-release version-string' command.
type VersionStringCmd struct {
	TriggerFlags
}

// Executes the version-string command.
//
// Prints the tag the image would be pushed under, or fails when the
// reference does not yield a valid one.
func (c *VersionStringCmd) Run(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ev, err := c.resolve(cfg.SourceDir())
	if err != nil {
		return err
	}

	ref, err := pipeline.ImageReference(imageName(cfg), ev)
	if err != nil {
		return err
	}
	fmt.Println(ref.Version)
	return nil
}
