package runtime

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/containerd/containerd/v2/core/content"
	"github.com/containerd/containerd/v2/core/images"
	"github.com/containerd/platforms"
	"github.com/opencontainers/go-digest"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

// Prefix of the labels containerd's garbage collector follows from a blob to
// the blobs it references.
const gcRefPrefix = "containerd.io/gc.ref.content."

// Reads a JSON document (manifest, index or image config) from the content
// store.
func readJSON[T any](ctx context.Context, p content.Provider, desc ocispec.Descriptor) (T, error) {
	var v T
	b, err := content.ReadBlob(ctx, p, desc)
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal(b, &v); err != nil {
		return v, fmt.Errorf("decode %s: %w", desc.Digest, err)
	}
	return v, nil
}

// Encodes v as JSON and writes it to the content store with the given GC
// labels. Returns the descriptor of the stored blob.
func writeJSON(ctx context.Context, cs content.Ingester, mediaType string, v any, labels map[string]string) (ocispec.Descriptor, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return ocispec.Descriptor{}, err
	}

	desc := ocispec.Descriptor{
		MediaType: mediaType,
		Digest:    digest.FromBytes(b),
		Size:      int64(len(b)),
	}

	var opts []content.Opt
	if len(labels) > 0 {
		opts = append(opts, content.WithLabels(labels))
	}
	if err := content.WriteBlob(ctx, cs, "commit-"+desc.Digest.Encoded(), bytes.NewReader(b), desc, opts...); err != nil {
		return ocispec.Descriptor{}, err
	}
	return desc, nil
}

// GC labels tying a manifest to its config and layers.
func manifestGCLabels(m ocispec.Manifest) map[string]string {
	labels := childGCLabels("l", m.Layers)
	labels[gcRefPrefix+"config"] = m.Config.Digest.String()
	return labels
}

// GC labels tying an index to its manifests.
func indexGCLabels(idx ocispec.Index) map[string]string {
	return childGCLabels("m", idx.Manifests)
}

func childGCLabels(kind string, children []ocispec.Descriptor) map[string]string {
	labels := make(map[string]string, len(children)+1)
	for i, d := range children {
		labels[fmt.Sprintf("%s%s.%d", gcRefPrefix, kind, i)] = d.Digest.String()
	}
	return labels
}

// Platform manifest selected from an image root.
type manifestChoice struct {
	desc  ocispec.Descriptor // Manifest for the platform.
	index *ocispec.Index     // Index the manifest came from; nil when the root is a manifest.
}

// Selects the manifest of root that serves platform.
//
// Index entries are matched on their platform field first. Entries without
// one, as some registries serve them, are matched on the OS and architecture
// recorded in their image config. When nothing matches, the first entry is
// used.
func chooseManifest(ctx context.Context, p content.Provider, root ocispec.Descriptor, platform string) (manifestChoice, error) {
	if !images.IsIndexType(root.MediaType) {
		return manifestChoice{desc: root}, nil
	}

	idx, err := readJSON[ocispec.Index](ctx, p, root)
	if err != nil {
		return manifestChoice{}, err
	}
	if len(idx.Manifests) == 0 {
		return manifestChoice{}, fmt.Errorf("%w: %s", ErrEmptyIndex, root.Digest)
	}

	want, err := platforms.Parse(platform)
	if err != nil {
		return manifestChoice{}, err
	}
	match := platforms.OnlyStrict(want)

	for _, m := range idx.Manifests {
		if m.Platform != nil && match.Match(*m.Platform) {
			return manifestChoice{desc: m, index: &idx}, nil
		}
	}
	for _, m := range idx.Manifests {
		if m.Platform != nil || !images.IsManifestType(m.MediaType) {
			continue
		}
		if got, ok := configPlatform(ctx, p, m); ok && match.Match(got) {
			return manifestChoice{desc: m, index: &idx}, nil
		}
	}

	slog.Debug("no manifest for platform, using the first", "platform", platform, "index", root.Digest.String())
	return manifestChoice{desc: idx.Manifests[0], index: &idx}, nil
}

// Returns the platform recorded in the image config of a manifest, or false
// when it cannot be read.
func configPlatform(ctx context.Context, p content.Provider, desc ocispec.Descriptor) (ocispec.Platform, bool) {
	manifest, err := readJSON[ocispec.Manifest](ctx, p, desc)
	if err != nil {
		return ocispec.Platform{}, false
	}
	config, err := readJSON[ocispec.Image](ctx, p, manifest.Config)
	if err != nil {
		return ocispec.Platform{}, false
	}
	return config.Platform, true
}
