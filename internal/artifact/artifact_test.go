package artifact

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/opencontainers/go-digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollect(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".cache"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "qibo-0.2.1-py3-none-any.whl"), []byte("wheel"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "qibo-0.2.1.tar.gz"), []byte("sdist"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".cache", "junk"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden"), []byte("x"), 0o644))

	artifacts, err := Collect(dir)
	require.NoError(t, err)
	require.Len(t, artifacts, 2)

	assert.Equal(t, "qibo-0.2.1-py3-none-any.whl", artifacts[0].Name)
	assert.Equal(t, digest.FromString("wheel"), artifacts[0].Digest)
	assert.Equal(t, int64(5), artifacts[0].Size)

	assert.Equal(t, "sub/qibo-0.2.1.tar.gz", artifacts[1].Name)
	assert.Equal(t, filepath.Join(dir, "sub", "qibo-0.2.1.tar.gz"), artifacts[1].Path)
}

func TestCollectEmpty(t *testing.T) {
	artifacts, err := Collect(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, artifacts)
}

func TestCollectMissingDir(t *testing.T) {
	_, err := Collect(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, ErrWorkspace)
}
