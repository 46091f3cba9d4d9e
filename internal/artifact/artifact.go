package artifact

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/opencontainers/go-digest"
)

// A package file produced by a cell build.
type Artifact struct {
	Name   string        `json:"name"`   // Path relative to DIST_DIR, slash separated.
	Path   string        `json:"path"`   // Absolute path on disk.
	Size   int64         `json:"size"`   // Size in bytes.
	Digest digest.Digest `json:"digest"` // SHA-256 of the content.
}

// Formats the artifact for structured logging.
func (a Artifact) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("name", a.Name),
		slog.Int64("size", a.Size),
		slog.String("digest", a.Digest.String()),
	)
}

// Lists the regular files under dir as artifacts, sorted by name.
//
// Each file is hashed with SHA-256. Hidden files (leading dot) are skipped.
func Collect(dir string) ([]Artifact, error) {
	var artifacts []Artifact

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		a, err := describe(dir, path)
		if err != nil {
			return err
		}
		artifacts = append(artifacts, a)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWorkspace, err)
	}

	slices.SortFunc(artifacts, func(a, b Artifact) int {
		return strings.Compare(a.Name, b.Name)
	})
	return artifacts, nil
}

// Hashes one file.
func describe(root, path string) (Artifact, error) {
	f, err := os.Open(path)
	if err != nil {
		return Artifact{}, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return Artifact{}, err
	}

	dgst, err := digest.SHA256.FromReader(f)
	if err != nil {
		return Artifact{}, err
	}

	rel, err := filepath.Rel(root, path)
	if err != nil {
		return Artifact{}, err
	}

	return Artifact{
		Name:   filepath.ToSlash(rel),
		Path:   path,
		Size:   info.Size(),
		Digest: dgst,
	}, nil
}
