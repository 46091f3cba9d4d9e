package paths

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
)

const (

	// Name used for directory naming.
	toolName = "qibo-release"

	// Default permission mode for directories.
	DefaultDirMode os.FileMode = 0755

	// Default permission mode for files.
	DefaultFileMode os.FileMode = 0644
)

// Path to the cache directory holding run workspaces.
//
//	Linux:   $XDG_CACHE_HOME/qibo-release
//	macOS:   ~/Library/Caches/qibo-release
func Cache() string {
	return filepath.Join(xdg.CacheHome, toolName)
}

// Path to the directory of a single pipeline run.
func Run(runID string) string {
	return filepath.Join(Cache(), "runs", runID)
}

// Path to the directory holding the cell workspaces of a run. Each cell
// works in a subdirectory named after its slug (see matrix.Cell.Slug).
func Cells(runID string) string {
	return filepath.Join(Run(runID), "cells")
}

// Path to the directory receiving the exported image archive of a run.
func ImageOutput(runID string) string {
	return filepath.Join(Run(runID), "image")
}

// Path to the state directory, used for the last run report.
//
//	Linux:   $XDG_STATE_HOME/qibo-release
//	macOS:   ~/Library/Application Support/qibo-release
func State() string {
	return filepath.Join(xdg.StateHome, toolName)
}

// Path to the JSON report written at the end of the most recent run.
func LastReport() string {
	return filepath.Join(State(), "last-report.json")
}

// Resolves a possibly relative path against root. Absolute paths and an
// empty root are returned unchanged.
func Resolve(root, path string) string {
	if path == "" || filepath.IsAbs(path) || root == "" {
		return path
	}
	return filepath.Join(root, path)
}

// Returns true if path is inside (or equal to) dir after cleaning.
func Within(dir, path string) bool {
	rel, err := filepath.Rel(filepath.Clean(dir), filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
