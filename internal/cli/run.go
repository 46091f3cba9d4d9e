package cli

import (
	"context"
	"log/slog"

	"github.com/qiboteam/qibo-docker/internal/paths"
)

// Represents the 'qibo-release run' command.
type RunCmd struct {
	TriggerFlags
	RegistryFlags
	PackageFlags
	BuildFlags

	AllOS bool `name:"all-os" help:"Run cells for every runner OS, not only the host's."`
}

// Executes the run command.
//
// Drives the whole pipeline in this process: every cell, then the image.
// Cells for other operating systems are reported as skipped unless --all-os
// is given. The report is printed as JSON and saved as the last run report.
func (c *RunCmd) Run(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ev, err := c.resolve(cfg.SourceDir())
	if err != nil {
		return err
	}

	reg, err := newRegistry(cfg, c.RegistryFlags)
	if err != nil {
		return err
	}

	id := runID()
	runner, err := newCellRunner(cfg, id, c.PackageIndexToken)
	if err != nil {
		return err
	}

	images, err := newImageBuilder(cfg, id, c.BuildFlags)
	if err != nil {
		return err
	}
	defer func() {
		if err := images.Close(); err != nil {
			slog.Warn("failed to close runtime", "error", err)
		}
	}()

	p, err := newPipeline(cfg, id, runner, images, reg, !c.NoPush, hostFilter(c.AllOS))
	if err != nil {
		return err
	}

	report, runErr := p.Run(ctx, ev)

	if err := report.Save(paths.LastReport()); err != nil {
		slog.Warn("failed to save report", "error", err)
	} else {
		slog.Debug("report saved", "path", paths.LastReport())
	}

	if err := printJSON(report); err != nil {
		return err
	}
	return runErr
}
