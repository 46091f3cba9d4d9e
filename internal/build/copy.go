package build

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/qiboteam/qibo-docker/internal/paths"
	"github.com/qiboteam/qibo-docker/internal/runtime"
)

// Copies a file or directory from the build context into the container.
//
// spec is "src dest". The source must stay inside the build context; a
// relative destination is taken from workdir. The source is streamed to the
// container as a tar archive whose single root is named after dest.
func executeCopy(ctx context.Context, ctr *runtime.Container, spec, workdir, buildCtx string) error {
	src, dest, err := parseCopy(spec, workdir)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCopy, err)
	}
	if src, err = resolveSource(buildCtx, src); err != nil {
		return fmt.Errorf("%w: %w", ErrCopy, err)
	}
	if _, err := os.Stat(src); err != nil {
		return fmt.Errorf("%w: %w", ErrCopy, err)
	}

	parent := path.Dir(dest)
	if err := ctr.MkdirAll(ctx, parent); err != nil {
		return fmt.Errorf("%w: %w", ErrCopy, err)
	}

	slog.Debug("copy", "src", src, "dest", dest)

	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(writeTree(pw, src, path.Base(dest)))
	}()

	if err := ctr.CopyTo(ctx, pr, parent); err != nil {
		pr.CloseWithError(err)
		return fmt.Errorf("%w: %s: %w", ErrCopy, spec, err)
	}
	return nil
}

// Returns the host path of a copy source.
//
// Sources that escape the context, through ".." or an absolute path
// outside it, are rejected.
func resolveSource(buildCtx, src string) (string, error) {
	resolved := paths.Resolve(buildCtx, src)
	if buildCtx != "" && !paths.Within(buildCtx, resolved) {
		return "", fmt.Errorf("source %q is outside the build context", src)
	}
	return resolved, nil
}

// Splits "src dest" and makes dest absolute against workdir.
func parseCopy(s, workdir string) (src, dest string, err error) {
	parts := strings.Fields(s)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("expected source and destination, got %q", s)
	}
	src, dest = parts[0], parts[1]

	if !path.IsAbs(dest) {
		if workdir == "" {
			return "", "", fmt.Errorf("relative dest %q requires workdir", dest)
		}
		dest = path.Join(workdir, dest)
	}
	return src, dest, nil
}

// Writes the tree rooted at src to w as a tar archive, with src renamed to
// name. A regular file yields a single entry.
func writeTree(w io.Writer, src, name string) error {
	tw := tar.NewWriter(w)

	err := filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		return addTarEntry(tw, p, path.Join(name, filepath.ToSlash(rel)), d)
	})
	if err != nil {
		return err
	}
	return tw.Close()
}

// Writes one entry, and its content for regular files.
func addTarEntry(tw *tar.Writer, hostPath, name string, d fs.DirEntry) error {
	info, err := d.Info()
	if err != nil {
		return err
	}

	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	hdr.Name = name
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}

	if !info.Mode().IsRegular() {
		return nil
	}

	f, err := os.Open(hostPath)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.Copy(tw, f)
	return err
}
