// Package matrix expands the build matrix and decides which cell publishes.
//
// A [Matrix] is the cross product of operating-system identifiers and
// runtime versions. Each [Cell] is built independently. Exactly one cell,
// the canonical cell named by the [Policy], may publish package artifacts,
// and only when [ShouldPublish] holds for the trigger event.
//
// Example usage:
//
//	m := matrix.Matrix{
//	    OS:        []string{"ubuntu-latest", "macos-latest", "windows-latest"},
//	    Runtime:   []string{"3.8", "3.9", "3.10"},
//	    Canonical: matrix.Cell{OS: "ubuntu-latest", Runtime: "3.9"},
//	}
//	if err := m.Validate(); err != nil {
//	    return err
//	}
//
//	for _, cell := range m.Expand() {
//	    if matrix.ShouldPublish(ev, cell, m.Policy()) {
//	        // publish
//	    }
//	}
package matrix
