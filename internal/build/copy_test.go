package build

import (
	"archive/tar"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestParseCopy(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		workdir string
		src     string
		dest    string
		wantErr bool
	}{
		{
			name:  "absolute dest",
			input: "file.txt /opt/file.txt",
			src:   "file.txt",
			dest:  "/opt/file.txt",
		},
		{
			name:    "relative dest with workdir",
			input:   "file.txt out/",
			workdir: "/app",
			src:     "file.txt",
			dest:    "/app/out",
		},
		{
			name:    "relative dest without workdir",
			input:   "file.txt out/",
			wantErr: true,
		},
		{
			name:    "missing destination",
			input:   "file.txt",
			wantErr: true,
		},
		{
			name:    "too many tokens",
			input:   "a b c",
			wantErr: true,
		},
		{
			name:    "empty string",
			input:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, dest, err := parseCopy(tt.input, tt.workdir)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			assertParseCopy(t, src, dest, tt.src, tt.dest)
		})
	}
}

func assertParseCopy(t *testing.T, gotSrc, gotDest, wantSrc, wantDest string) {
	t.Helper()
	if gotSrc != wantSrc {
		t.Errorf("src = %q, want %q", gotSrc, wantSrc)
	}
	if gotDest != wantDest {
		t.Errorf("dest = %q, want %q", gotDest, wantDest)
	}
}

func TestResolveSource(t *testing.T) {
	tests := []struct {
		name    string
		ctx     string
		src     string
		want    string
		wantErr bool
	}{
		{name: "relative", ctx: "/work", src: "requirements.txt", want: "/work/requirements.txt"},
		{name: "nested", ctx: "/work", src: "docker/entry.sh", want: "/work/docker/entry.sh"},
		{name: "absolute inside", ctx: "/work", src: "/work/a", want: "/work/a"},
		{name: "parent escape", ctx: "/work", src: "../etc/passwd", wantErr: true},
		{name: "absolute outside", ctx: "/work", src: "/etc/passwd", wantErr: true},
		{name: "no context", ctx: "", src: "a.txt", want: "a.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveSource(tt.ctx, tt.src)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("resolveSource(%q, %q) = %q, want error", tt.ctx, tt.src, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("resolveSource = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWriteTreeDirectory(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("a"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "sub", "b.txt"), []byte("bb"), 0o644); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := writeTree(&buf, dir, "qibo"); err != nil {
		t.Fatal(err)
	}

	got := readTar(t, &buf)
	want := map[string]string{
		"qibo":           "",
		"qibo/a.txt":     "a",
		"qibo/sub":       "",
		"qibo/sub/b.txt": "bb",
	}
	if len(got) != len(want) {
		t.Fatalf("entries = %v, want %v", got, want)
	}
	for name, content := range want {
		if got[name] != content {
			t.Errorf("entry %q = %q, want %q", name, got[name], content)
		}
	}
}

func TestWriteTreeFile(t *testing.T) {
	src := filepath.Join(t.TempDir(), "requirements.txt")
	if err := os.WriteFile(src, []byte("qibo\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := writeTree(&buf, src, "reqs.txt"); err != nil {
		t.Fatal(err)
	}

	got := readTar(t, &buf)
	if len(got) != 1 || got["reqs.txt"] != "qibo\n" {
		t.Fatalf("entries = %v", got)
	}
}

func TestWriteTreeMissing(t *testing.T) {
	var buf bytes.Buffer
	if err := writeTree(&buf, filepath.Join(t.TempDir(), "absent"), "x"); err == nil {
		t.Fatal("expected error for missing source")
	}
}

// Reads a tar stream into a map of entry name to content.
func readTar(t *testing.T, r io.Reader) map[string]string {
	t.Helper()

	entries := make(map[string]string)
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return entries
		}
		if err != nil {
			t.Fatal(err)
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			t.Fatal(err)
		}
		entries[hdr.Name] = string(data)
	}
}
