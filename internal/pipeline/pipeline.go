package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/qiboteam/qibo-docker/internal/artifact"
	"github.com/qiboteam/qibo-docker/internal/event"
	"github.com/qiboteam/qibo-docker/internal/matrix"
	"github.com/qiboteam/qibo-docker/internal/registry"
	"golang.org/x/sync/errgroup"
	"oras.land/oras-go/v2/content"
)

// Builds and publishes the package artifacts of one cell.
type CellRunner interface {
	Build(ctx context.Context, cell matrix.Cell) ([]artifact.Artifact, error)
	Publish(ctx context.Context, cell matrix.Cell, artifacts []artifact.Artifact) error
}

// Builds the container image and records names for it.
type ImageBuilder interface {
	BuildImage(ctx context.Context, name string) (*BuiltImage, error)
	TagImage(ctx context.Context, name string, desc ocispec.Descriptor) error
}

// Authenticates against and pushes to the image registry.
type Registry interface {
	Login(ctx context.Context) error
	Exists(ctx context.Context, ref registry.Reference) (bool, error)
	Push(ctx context.Context, src content.ReadOnlyStorage, root ocispec.Descriptor, ref registry.Reference) error
}

// An image produced by an [ImageBuilder].
type BuiltImage struct {
	Source     content.ReadOnlyStorage // Content of the image, for pushing.
	Descriptor ocispec.Descriptor      // Root descriptor.
	Archive    string                  // Path of the exported archive, if any.
}

// Image identity, without the version.
type ImageName struct {
	Host  string // Registry host.
	Owner string // Repository owner.
	Name  string // Image name, also the local tag.
}

// Immutable run configuration.
type Config struct {
	RunID     string                 // Run identifier. Generated when empty.
	Matrix    matrix.Matrix          // Build matrix and publishing policy.
	Image     ImageName              // Where the image goes.
	Push      bool                   // Log in and push. False stops after tagging.
	Immutable bool                   // Refuse to overwrite an existing tag.
	Skip      func(matrix.Cell) bool // Cells reported as skipped instead of built. May be nil.
}

// Release pipeline for one trigger event.
//
// A Pipeline runs at most once; construct a new one per run.
type Pipeline struct {
	cfg       Config
	cells     CellRunner
	images    ImageBuilder
	registry  Registry
	published atomic.Bool // Set by the first cell that publishes.
	phase     *tracker
	log       *slog.Logger
}

// Creates a pipeline, validating the configuration.
func New(cfg Config, cells CellRunner, images ImageBuilder, reg Registry) (*Pipeline, error) {
	if err := cfg.Matrix.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if cfg.Image.Host == "" || cfg.Image.Owner == "" || cfg.Image.Name == "" {
		return nil, fmt.Errorf("%w: incomplete image name %+v", ErrInvalidConfig, cfg.Image)
	}
	if cfg.RunID == "" {
		cfg.RunID = NewRunID()
	}

	log := slog.With("run", cfg.RunID)
	return &Pipeline{
		cfg:      cfg,
		cells:    cells,
		images:   images,
		registry: reg,
		phase:    &tracker{phase: PhaseTriggered, log: log},
		log:      log,
	}, nil
}

// Returns a new, time-ordered run identifier.
func NewRunID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Returns the run identifier.
func (p *Pipeline) RunID() string {
	return p.cfg.RunID
}

// Runs the whole pipeline for an event.
//
// All cells run concurrently, bounded by the matrix's MaxParallel. A
// failing cell is recorded in the report and does not stop its siblings or
// the image phase. Only the canonical cell of a published release
// publishes. Once every cell has finished the image phase derives the
// Version String; an invalid one fails the run before the image is built or
// pushed, without undoing a publish. The image is then built, tagged and,
// when configured, pushed. Image phase failures are fatal. If a required
// cell failed, [ErrRequiredCellFailed] is returned after the image phase.
//
// The report is returned even on error and reflects how far the run got.
func (p *Pipeline) Run(ctx context.Context, ev event.Event) (*Report, error) {
	report := p.newReport(ev)
	p.log.Info("run triggered", "event", ev)

	cells := p.cfg.Matrix.Expand()
	p.phase.enter(PhaseMatrixExpanded)
	p.log.Info("matrix expanded", "cells", len(cells), "canonical", p.cfg.Matrix.Canonical)

	report.Cells = p.runCells(ctx, ev, cells)
	if err := ctx.Err(); err != nil {
		return p.fail(report, err)
	}

	ref, err := ImageReference(p.cfg.Image, ev)
	if err != nil {
		return p.fail(report, err)
	}
	report.Version = ref.Version

	img, err := p.runImage(ctx, ref)
	report.Image = img
	if err != nil {
		return p.fail(report, err)
	}

	if failed := p.failedRequired(report.Cells); len(failed) > 0 {
		return p.fail(report, fmt.Errorf("%w: %v", ErrRequiredCellFailed, failed))
	}

	p.phase.enter(PhaseDone)
	return p.finish(report), nil
}

// Builds, and when eligible publishes, a single cell.
//
// Used when an external orchestrator dispatches cells as separate jobs. The
// cell must be part of the matrix. A failed cell returns [ErrCellFailed]
// wrapping the cause.
func (p *Pipeline) RunCell(ctx context.Context, ev event.Event, cell matrix.Cell) (CellResult, error) {
	if !p.cfg.Matrix.Contains(cell) {
		return CellResult{}, fmt.Errorf("%w: %s", matrix.ErrUnknownCell, cell)
	}

	p.log.Info("cell triggered", "event", ev, "cell", cell)
	p.phase.enter(PhaseBuilding)

	res := p.runCell(ctx, ev, cell)
	if res.Err != nil {
		p.phase.enter(PhaseFailed)
		return res, fmt.Errorf("%w: %s: %w", ErrCellFailed, cell, res.Err)
	}
	p.phase.enter(PhaseDone)
	return res, nil
}

// Runs only the image phase.
//
// Used when an external orchestrator runs the image job after all cell
// jobs have completed.
func (p *Pipeline) RunImage(ctx context.Context, ev event.Event) (*ImageResult, error) {
	ref, err := ImageReference(p.cfg.Image, ev)
	if err != nil {
		p.phase.enter(PhaseFailed)
		return nil, err
	}

	img, err := p.runImage(ctx, ref)
	if err != nil {
		p.phase.enter(PhaseFailed)
		return img, err
	}
	p.phase.enter(PhaseDone)
	return img, nil
}

// Runs cells concurrently and waits for all of them.
//
// Cells never return errors to the group; each outcome is recorded in its
// own slot of the result slice.
func (p *Pipeline) runCells(ctx context.Context, ev event.Event, cells []matrix.Cell) []CellResult {
	p.phase.enter(PhaseBuilding)

	results := make([]CellResult, len(cells))

	var g errgroup.Group
	if n := p.cfg.Matrix.MaxParallel; n > 0 {
		g.SetLimit(n)
	}

	for i, cell := range cells {
		g.Go(func() error {
			results[i] = p.runCell(ctx, ev, cell)
			return nil
		})
	}
	g.Wait()

	var failed int
	for _, r := range results {
		if r.Status == StatusFailed {
			failed++
		}
	}
	p.log.Info("cells finished", "total", len(results), "failed", failed)

	return results
}

// Builds one cell and publishes it when the decision allows.
func (p *Pipeline) runCell(ctx context.Context, ev event.Event, cell matrix.Cell) CellResult {
	start := time.Now()
	res := CellResult{Cell: cell}
	log := p.log.With("cell", cell)

	finish := func(status CellStatus, err error) CellResult {
		res.Status = status
		res.setErr(err)
		res.Duration = time.Since(start)
		if err != nil {
			log.Error("cell failed", "error", err, "duration", res.Duration)
		} else {
			log.Info("cell "+string(status), "duration", res.Duration)
		}
		return res
	}

	if p.cfg.Skip != nil && p.cfg.Skip(cell) {
		if matrix.ShouldPublish(ev, cell, p.cfg.Matrix.Policy()) {
			log.Warn("canonical cell skipped, the release will not be published by this run")
		}
		return finish(StatusSkipped, nil)
	}
	if err := ctx.Err(); err != nil {
		return finish(StatusFailed, err)
	}

	artifacts, err := p.cells.Build(ctx, cell)
	if err != nil {
		return finish(StatusFailed, err)
	}
	res.Artifacts = artifacts

	if !matrix.ShouldPublish(ev, cell, p.cfg.Matrix.Policy()) {
		return finish(StatusSucceeded, nil)
	}

	if !p.published.CompareAndSwap(false, true) {
		return finish(StatusFailed, ErrDuplicatePublish)
	}

	p.phase.enter(PhasePublishing)
	log.Info("publishing", "artifacts", len(artifacts))

	if err := p.cells.Publish(ctx, cell, artifacts); err != nil {
		return finish(StatusFailed, err)
	}
	res.Published = true
	return finish(StatusSucceeded, nil)
}

// Returns the reference the image is pushed under for an event.
//
// The Version String is derived from the event's ref and validated, then
// normalized together with the image name, so the tag is the one that
// reaches the registry.
func ImageReference(name ImageName, ev event.Event) (registry.Reference, error) {
	version, err := ev.Version()
	if err != nil {
		return registry.Reference{}, err
	}
	return registry.NewReference(name.Host, name.Owner, name.Name, version)
}

// Builds, tags and pushes the image under ref.
func (p *Pipeline) runImage(ctx context.Context, ref registry.Reference) (*ImageResult, error) {
	img := &ImageResult{Reference: ref.String(), Local: ref.Local()}
	log := p.log.With("ref", ref)

	p.phase.enter(PhaseImageBuilding)
	built, err := p.images.BuildImage(ctx, ref.Local())
	if err != nil {
		return img, err
	}
	img.Digest = built.Descriptor.Digest.String()
	log.Info("image built", "digest", img.Digest)

	p.phase.enter(PhaseImageTagging)
	if err := p.images.TagImage(ctx, ref.String(), built.Descriptor); err != nil {
		return img, err
	}

	if !p.cfg.Push {
		log.Info("push disabled, image left local")
		return img, nil
	}

	p.phase.enter(PhaseImagePushing)
	if err := p.registry.Login(ctx); err != nil {
		return img, err
	}

	if p.cfg.Immutable {
		exists, err := p.registry.Exists(ctx, ref)
		if err != nil {
			return img, err
		}
		if exists {
			return img, fmt.Errorf("%w: %s", registry.ErrTagExists, ref)
		}
	}

	if err := p.registry.Push(ctx, built.Source, built.Descriptor, ref); err != nil {
		return img, err
	}
	img.Pushed = true
	return img, nil
}

// Returns the required cells that failed.
func (p *Pipeline) failedRequired(results []CellResult) []matrix.Cell {
	policy := p.cfg.Matrix.Policy()

	var failed []matrix.Cell
	for _, r := range results {
		if r.Status == StatusFailed && policy.IsRequired(r.Cell) {
			failed = append(failed, r.Cell)
		}
	}
	return failed
}

// Marks the run failed and completes the report.
func (p *Pipeline) fail(report *Report, err error) (*Report, error) {
	p.phase.enter(PhaseFailed)
	report.Error = err.Error()
	if errors.Is(err, context.Canceled) {
		p.log.Warn("run cancelled")
	}
	return p.finish(report), err
}
