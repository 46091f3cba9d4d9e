package matrix

import (
	"slices"

	"github.com/qiboteam/qibo-docker/internal/event"
)

// Rules deciding which cells publish and which cells must succeed.
type Policy struct {
	Canonical Cell   // The single cell allowed to publish.
	Required  []Cell // Cells whose failure fails the run.
}

// Decides whether a cell publishes its package artifacts.
//
// Publishing happens only for a release event whose action is "published",
// and only in the canonical cell. Every other combination yields false, so
// at most one cell of a run publishes.
func ShouldPublish(ev event.Event, cell Cell, p Policy) bool {
	return ev.IsReleasePublished() && !p.Canonical.IsZero() && cell == p.Canonical
}

// Reports whether the policy marks the cell as required.
func (p Policy) IsRequired(c Cell) bool {
	return slices.Contains(p.Required, c)
}
