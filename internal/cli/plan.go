package cli

import (
	"context"
	"fmt"
)

// Represents the 'qibo-release plan' command.
type PlanCmd struct{}

// Executes the plan command.
//
// Prints the expanded matrix in the form accepted by a GitHub Actions
// strategy.matrix, with the canonical cell marked.
func (c *PlanCmd) Run(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	data, err := cfg.Matrix.GitHubJSON()
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
