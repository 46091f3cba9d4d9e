package matrix

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// Static build matrix: every OS identifier crossed with every runtime version.
type Matrix struct {
	OS          []string `yaml:"os"`           // Runner labels, in declaration order.
	Runtime     []string `yaml:"runtime"`      // Runtime versions, in declaration order.
	Canonical   Cell     `yaml:"canonical"`    // The single cell allowed to publish.
	Required    []Cell   `yaml:"required"`     // Cells whose failure fails the run.
	MaxParallel int      `yaml:"max-parallel"` // Concurrent cells; zero or less means unbounded.
}

// Returns every cell of the matrix, OS-major, in declaration order.
func (m Matrix) Expand() []Cell {
	cells := make([]Cell, 0, len(m.OS)*len(m.Runtime))
	for _, label := range m.OS {
		for _, rt := range m.Runtime {
			cells = append(cells, Cell{OS: label, Runtime: rt})
		}
	}
	return cells
}

// Reports whether the cell is part of the expansion.
func (m Matrix) Contains(c Cell) bool {
	return slices.Contains(m.OS, c.OS) && slices.Contains(m.Runtime, c.Runtime)
}

// Returns the publishing policy carried by the matrix.
func (m Matrix) Policy() Policy {
	return Policy{
		Canonical: m.Canonical,
		Required:  slices.Clone(m.Required),
	}
}

// Checks the matrix for configuration errors.
//
// Both axes must be non-empty and free of blank or duplicate entries. The
// canonical cell must be part of the expansion: a matrix that drops it can
// never publish, which is reported as [ErrCanonicalMissing] rather than
// silently accepted. Required cells must also be part of the expansion.
func (m Matrix) Validate() error {
	if err := validateAxis("os", m.OS); err != nil {
		return err
	}
	if err := validateAxis("runtime", m.Runtime); err != nil {
		return err
	}

	if m.Canonical.IsZero() {
		return fmt.Errorf("%w: no canonical cell", ErrInvalidMatrix)
	}
	if !m.Contains(m.Canonical) {
		return fmt.Errorf("%w: %s", ErrCanonicalMissing, m.Canonical)
	}

	for _, c := range m.Required {
		if !m.Contains(c) {
			return fmt.Errorf("%w: required cell %s", ErrUnknownCell, c)
		}
	}

	return nil
}

// Checks one axis for emptiness, blanks and duplicates.
func validateAxis(name string, values []string) error {
	if len(values) == 0 {
		return fmt.Errorf("%w: %s axis is empty", ErrInvalidMatrix, name)
	}

	seen := make(map[string]bool, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("%w: blank %s entry", ErrInvalidMatrix, name)
		}
		if seen[v] {
			return fmt.Errorf("%w: duplicate %s entry %q", ErrInvalidMatrix, name, v)
		}
		seen[v] = true
	}
	return nil
}

// Entry of the GitHub Actions matrix include list.
type includeEntry struct {
	OS        string `json:"os"`
	Runtime   string `json:"runtime"`
	Canonical bool   `json:"canonical"`
}

// Renders the matrix as GitHub Actions "strategy.matrix" JSON.
//
// Every cell is listed under "include" with a "canonical" flag so that the
// workflow can pass it along to the cell job.
func (m Matrix) GitHubJSON() ([]byte, error) {
	cells := m.Expand()
	include := make([]includeEntry, 0, len(cells))
	for _, c := range cells {
		include = append(include, includeEntry{
			OS:        c.OS,
			Runtime:   c.Runtime,
			Canonical: c == m.Canonical,
		})
	}
	return json.Marshal(map[string]any{"include": include})
}
