package runtime

import (
	"errors"
	"strings"
	"testing"

	"github.com/distribution/reference"
)

func TestImageTag(t *testing.T) {
	tag := imageTag("/some/archive.tar")

	if !strings.HasPrefix(tag, "import/") {
		t.Fatalf("tag %q missing import/ prefix", tag)
	}
	if !strings.HasSuffix(tag, ":latest") {
		t.Fatalf("tag %q missing :latest suffix", tag)
	}

	if imageTag("/some/archive.tar") != tag {
		t.Fatal("imageTag is not deterministic")
	}

	if imageTag("/other/archive.tar") == tag {
		t.Fatal("different paths produced the same tag")
	}

	if _, err := reference.ParseNormalizedNamed(imageTag("/tmp/My Base (1).tar")); err != nil {
		t.Fatalf("tag is not a valid reference: %v", err)
	}
}

func TestDefaultPlatform(t *testing.T) {
	p := DefaultPlatform()
	if !strings.HasPrefix(p, "linux/") {
		t.Fatalf("DefaultPlatform = %q, want linux/<arch>", p)
	}
	parts := strings.Split(p, "/")
	if len(parts) != 2 || parts[1] == "" {
		t.Fatalf("DefaultPlatform = %q, want linux/<arch>", p)
	}
}

func TestNormalizeBase(t *testing.T) {
	tests := []struct {
		ref  string
		want string
	}{
		{"ubuntu:22.04", "docker.io/library/ubuntu:22.04"},
		{"ubuntu", "docker.io/library/ubuntu:latest"},
		{"ghcr.io/qiboteam/base:v1", "ghcr.io/qiboteam/base:v1"},
		{"quay.io/org/img@sha256:" + strings.Repeat("a", 64), "quay.io/org/img@sha256:" + strings.Repeat("a", 64)},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			got, err := NormalizeBase(tt.ref)
			if err != nil {
				t.Fatalf("NormalizeBase(%q) error: %v", tt.ref, err)
			}
			if got != tt.want {
				t.Fatalf("NormalizeBase(%q) = %q, want %q", tt.ref, got, tt.want)
			}
		})
	}
}

func TestNormalizeBaseInvalid(t *testing.T) {
	for _, ref := range []string{"", "Ubuntu:22.04", "ubuntu:bad tag"} {
		if _, err := NormalizeBase(ref); !errors.Is(err, ErrPull) {
			t.Fatalf("NormalizeBase(%q) error = %v, want ErrPull", ref, err)
		}
	}
}
