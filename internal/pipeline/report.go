package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/qiboteam/qibo-docker/internal/artifact"
	"github.com/qiboteam/qibo-docker/internal/event"
	"github.com/qiboteam/qibo-docker/internal/matrix"
	"github.com/qiboteam/qibo-docker/internal/paths"
)

// Outcome of one cell.
type CellStatus string

const (
	StatusSucceeded CellStatus = "succeeded"
	StatusFailed    CellStatus = "failed"
	StatusSkipped   CellStatus = "skipped"
)

// Result of building (and possibly publishing) one cell.
type CellResult struct {
	Cell      matrix.Cell         `json:"cell"`
	Status    CellStatus          `json:"status"`
	Artifacts []artifact.Artifact `json:"artifacts,omitempty"`
	Published bool                `json:"published"`
	Error     string              `json:"error,omitempty"`
	Duration  time.Duration       `json:"duration_ns"`
	Err       error               `json:"-"` // Cause of a failed cell.
}

// Records err on the result.
func (r *CellResult) setErr(err error) {
	r.Err = err
	if err != nil {
		r.Error = err.Error()
	}
}

// Result of the image phase.
type ImageResult struct {
	Reference string `json:"reference"`        // Qualified reference, "host/owner/name:version".
	Local     string `json:"local"`            // Unqualified local tag.
	Digest    string `json:"digest,omitempty"` // Root digest of the built image.
	Pushed    bool   `json:"pushed"`
}

// Summary of a pipeline run.
type Report struct {
	RunID    string       `json:"run_id"`
	Event    event.Event  `json:"event"`
	Version  string       `json:"version,omitempty"`
	Phase    Phase        `json:"phase"`
	Cells    []CellResult `json:"cells"`
	Image    *ImageResult `json:"image,omitempty"`
	Error    string       `json:"error,omitempty"`
	Started  time.Time    `json:"started"`
	Finished time.Time    `json:"finished"`
}

// Counts cells by status.
func (r *Report) Count(status CellStatus) int {
	var n int
	for _, c := range r.Cells {
		if c.Status == status {
			n++
		}
	}
	return n
}

// Returns the cells that published.
func (r *Report) Publishers() []matrix.Cell {
	var cells []matrix.Cell
	for _, c := range r.Cells {
		if c.Published {
			cells = append(cells, c.Cell)
		}
	}
	return cells
}

// Writes the report as indented JSON to path, creating parent directories.
func (r *Report) Save(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), paths.DefaultDirMode); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), paths.DefaultFileMode)
}

func (p *Pipeline) newReport(ev event.Event) *Report {
	return &Report{
		RunID:   p.cfg.RunID,
		Event:   ev,
		Started: time.Now().UTC(),
	}
}

func (p *Pipeline) finish(r *Report) *Report {
	r.Phase = p.phase.current()
	r.Finished = time.Now().UTC()
	return r
}
