package registry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"oras.land/oras-go/v2"
	"oras.land/oras-go/v2/content"
	"oras.land/oras-go/v2/content/memory"
)

const artifactType = "application/vnd.qibo.test"

// Starts a registry that accepts only bot:secret through basic auth.
func newBasicAuthRegistry(t *testing.T, handler http.HandlerFunc) string {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "bot" || pass != "secret" {
			w.Header().Set("WWW-Authenticate", `Basic realm="test"`)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"errors":[{"code":"UNAUTHORIZED","message":"authentication required"}]}`))
			return
		}
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	return strings.TrimPrefix(srv.URL, "http://")
}

func ok(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func TestLogin(t *testing.T) {
	host := newBasicAuthRegistry(t, ok)

	c := New(Options{
		Host:       host,
		Credential: Credential{Username: "bot", Password: "secret"},
		PlainHTTP:  true,
	})
	assert.NoError(t, c.Login(context.Background()))
}

func TestLoginRejected(t *testing.T) {
	host := newBasicAuthRegistry(t, ok)

	c := New(Options{
		Host:       host,
		Credential: Credential{Username: "bot", Password: "wrong"},
		PlainHTTP:  true,
	})
	err := c.Login(context.Background())
	assert.ErrorIs(t, err, ErrAuthentication)
}

func TestExists(t *testing.T) {
	host := newBasicAuthRegistry(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/qiboteam/qibo/manifests/v1" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", ocispec.MediaTypeImageManifest)
		w.Header().Set("Docker-Content-Digest", "sha256:"+strings.Repeat("a", 64))
		w.Header().Set("Content-Length", "123")
		w.WriteHeader(http.StatusOK)
	})

	c := New(Options{
		Host:       host,
		Credential: Credential{Username: "bot", Password: "secret"},
		PlainHTTP:  true,
	})

	ref, err := NewReference(host, "qiboteam", "qibo", "v1")
	require.NoError(t, err)
	found, err := c.Exists(context.Background(), ref)
	require.NoError(t, err)
	assert.True(t, found)

	ref.Version = "v2"
	found, err = c.Exists(context.Background(), ref)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCopy(t *testing.T) {
	ctx := context.Background()
	src := memory.New()
	dst := memory.New()

	desc, err := oras.PackManifest(ctx, src, oras.PackManifestVersion1_1, artifactType, oras.PackManifestOptions{})
	require.NoError(t, err)

	// The source holds the manifest untagged, as an exported image does.
	require.NoError(t, Copy(ctx, src, desc, dst, "v1.2.0"))

	resolved, err := dst.Resolve(ctx, "v1.2.0")
	require.NoError(t, err)
	assert.Equal(t, desc.Digest, resolved.Digest)
}

func TestCopyOverwritesTag(t *testing.T) {
	ctx := context.Background()
	src := memory.New()
	dst := memory.New()

	first, err := oras.PackManifest(ctx, src, oras.PackManifestVersion1_1, artifactType, oras.PackManifestOptions{
		ManifestAnnotations: map[string]string{"build": "1"},
	})
	require.NoError(t, err)
	second, err := oras.PackManifest(ctx, src, oras.PackManifestVersion1_1, artifactType, oras.PackManifestOptions{
		ManifestAnnotations: map[string]string{"build": "2"},
	})
	require.NoError(t, err)

	require.NoError(t, Copy(ctx, src, first, dst, "main"))
	require.NoError(t, Copy(ctx, src, second, dst, "main"))

	resolved, err := dst.Resolve(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, second.Digest, resolved.Digest)
}

func TestCopyMissingSource(t *testing.T) {
	absent := content.NewDescriptorFromBytes(ocispec.MediaTypeImageManifest, []byte("{}"))
	err := Copy(context.Background(), memory.New(), absent, memory.New(), "v1")
	assert.ErrorIs(t, err, ErrPush)
}

func TestOpenArchiveMissing(t *testing.T) {
	_, err := OpenArchive(context.Background(), t.TempDir()+"/missing.tar")
	assert.ErrorIs(t, err, ErrArchive)
}
