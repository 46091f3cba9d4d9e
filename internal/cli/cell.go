package cli

import (
	"context"

	"github.com/qiboteam/qibo-docker/internal/matrix"
)

// Represents the 'qibo-release cell' command.
type CellCmd struct {
	TriggerFlags
	PackageFlags

	OS      string `name:"os" required:"" help:"Runner OS label of the cell (e.g., ubuntu-latest)." env:"MATRIX_OS" placeholder:"LABEL"`
	Runtime string `required:"" help:"Runtime version of the cell (e.g., 3.9)." env:"RUNTIME_VERSION" placeholder:"VERSION"`
}

// Executes the cell command.
//
// Builds the package for one cell of the matrix and, when the cell is the
// canonical one and the event is a published release, publishes it. The
// cell result is printed as JSON.
func (c *CellCmd) Run(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ev, err := c.resolve(cfg.SourceDir())
	if err != nil {
		return err
	}

	id := runID()
	runner, err := newCellRunner(cfg, id, c.PackageIndexToken)
	if err != nil {
		return err
	}

	p, err := newPipeline(cfg, id, runner, nil, nil, false, nil)
	if err != nil {
		return err
	}

	res, runErr := p.RunCell(ctx, ev, matrix.Cell{OS: c.OS, Runtime: c.Runtime})
	if res.Cell.IsZero() {
		return runErr
	}
	if err := printJSON(res); err != nil {
		return err
	}
	return runErr
}
