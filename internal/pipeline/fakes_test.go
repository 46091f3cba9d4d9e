package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/opencontainers/go-digest"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/qiboteam/qibo-docker/internal/artifact"
	"github.com/qiboteam/qibo-docker/internal/matrix"
	"github.com/qiboteam/qibo-docker/internal/registry"
	"oras.land/oras-go/v2"
	"oras.land/oras-go/v2/content"
	"oras.land/oras-go/v2/content/memory"
)

// Records builds and publishes; fails the cells in fail.
type fakeCells struct {
	mu        sync.Mutex
	built     []matrix.Cell
	published []matrix.Cell
	fail      map[matrix.Cell]error
	publish   error
	delay     time.Duration

	running atomic.Int32
	peak    atomic.Int32
}

func (f *fakeCells) Build(ctx context.Context, cell matrix.Cell) ([]artifact.Artifact, error) {
	n := f.running.Add(1)
	defer f.running.Add(-1)
	for {
		peak := f.peak.Load()
		if n <= peak || f.peak.CompareAndSwap(peak, n) {
			break
		}
	}

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	f.built = append(f.built, cell)
	f.mu.Unlock()

	if err := f.fail[cell]; err != nil {
		return nil, err
	}
	name := fmt.Sprintf("qibo-%s-%s.whl", cell.OS, cell.Runtime)
	return []artifact.Artifact{{Name: name, Digest: digest.FromString(name)}}, nil
}

func (f *fakeCells) Publish(_ context.Context, cell matrix.Cell, _ []artifact.Artifact) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publish != nil {
		return f.publish
	}
	f.published = append(f.published, cell)
	return nil
}

// Builds a tiny OCI artifact in memory and records tags.
type fakeImages struct {
	mu    sync.Mutex
	names []string
	tags  []string
	err   error
}

func (f *fakeImages) BuildImage(ctx context.Context, name string) (*BuiltImage, error) {
	if f.err != nil {
		return nil, f.err
	}

	store := memory.New()
	desc, err := oras.PackManifest(ctx, store, oras.PackManifestVersion1_1, "application/vnd.qibo.test", oras.PackManifestOptions{
		ManifestAnnotations: map[string]string{ocispec.AnnotationTitle: name},
	})
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.names = append(f.names, name)
	f.mu.Unlock()

	return &BuiltImage{Source: store, Descriptor: desc}, nil
}

func (f *fakeImages) TagImage(_ context.Context, name string, _ ocispec.Descriptor) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tags = append(f.tags, name)
	return nil
}

// Pushes into an in-memory store.
type fakeRegistry struct {
	store    *memory.Store
	loginErr error
	exists   bool
	logins   int
	pushed   []string
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{store: memory.New()}
}

func (f *fakeRegistry) Login(context.Context) error {
	f.logins++
	return f.loginErr
}

func (f *fakeRegistry) Exists(context.Context, registry.Reference) (bool, error) {
	return f.exists, nil
}

func (f *fakeRegistry) Push(ctx context.Context, src content.ReadOnlyStorage, root ocispec.Descriptor, ref registry.Reference) error {
	if err := registry.Copy(ctx, src, root, f.store, ref.Version); err != nil {
		return err
	}
	f.pushed = append(f.pushed, ref.String())
	return nil
}

var errBoom = errors.New("boom")
