package pipeline

import (
	"fmt"
	"log/slog"
	"sync"
)

// Stage of a pipeline run.
type Phase int

const (
	PhaseTriggered      Phase = iota // Event classified.
	PhaseMatrixExpanded              // Cells enumerated.
	PhaseBuilding                    // Cells building.
	PhasePublishing                  // The canonical cell is publishing.
	PhaseImageBuilding               // All cells done; image building.
	PhaseImageTagging                // Image built; recording tags.
	PhaseImagePushing                // Authenticating and pushing.
	PhaseDone                        // Run finished.
	PhaseFailed                      // Run aborted.
)

var phaseNames = [...]string{
	PhaseTriggered:      "triggered",
	PhaseMatrixExpanded: "matrix-expanded",
	PhaseBuilding:       "building",
	PhasePublishing:     "publishing",
	PhaseImageBuilding:  "image-building",
	PhaseImageTagging:   "image-tagging",
	PhaseImagePushing:   "image-pushing",
	PhaseDone:           "done",
	PhaseFailed:         "failed",
}

// Returns the phase name.
func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return fmt.Sprintf("phase(%d)", int(p))
	}
	return phaseNames[p]
}

// Encodes the phase as its name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Tracks the current phase of a run and logs every transition.
type tracker struct {
	mu    sync.Mutex
	phase Phase
	log   *slog.Logger
}

// Moves to phase p. Transitions to an earlier phase are ignored, except
// into [PhaseFailed].
func (t *tracker) enter(p Phase) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if p <= t.phase && p != PhaseFailed {
		return
	}
	if t.phase == PhaseFailed {
		return
	}

	t.log.Info("phase", "from", t.phase, "to", p)
	t.phase = p
}

// Returns the current phase.
func (t *tracker) current() Phase {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.phase
}
