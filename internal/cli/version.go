package cli

import (
	"context"
	"fmt"

	"github.com/qiboteam/qibo-docker/internal"
)

// Represents the 'qibo-release version' command.
type VersionCmd struct{}

// Executes the version command.
func (c *VersionCmd) Run(ctx context.Context) error {
	fmt.Println(internal.VersionString())
	return nil
}
