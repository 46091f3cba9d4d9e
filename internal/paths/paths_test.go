package paths

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestRunDirectoriesNested(t *testing.T) {
	run := Run("abc")

	for _, dir := range []string{Cells("abc"), ImageOutput("abc")} {
		if !strings.HasPrefix(dir, run) {
			t.Fatalf("%q not under run dir %q", dir, run)
		}
	}
	if Cells("abc") == ImageOutput("abc") {
		t.Fatal("cells and image output share a directory")
	}
	if Run("abc") == Run("def") {
		t.Fatal("distinct runs share a directory")
	}
}

func TestLastReport(t *testing.T) {
	got := LastReport()
	if filepath.Base(got) != "last-report.json" {
		t.Fatalf("LastReport() = %q, want last-report.json", got)
	}
	if filepath.Dir(got) != State() {
		t.Fatalf("LastReport() = %q, want under %q", got, State())
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name string
		root string
		path string
		want string
	}{
		{"relative", "/src", "Dockerfile", filepath.Join("/src", "Dockerfile")},
		{"absolute", "/src", "/etc/Dockerfile", "/etc/Dockerfile"},
		{"empty root", "", "Dockerfile", "Dockerfile"},
		{"empty path", "/src", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Resolve(tt.root, tt.path); got != tt.want {
				t.Errorf("Resolve(%q, %q) = %q, want %q", tt.root, tt.path, got, tt.want)
			}
		})
	}
}

func TestWithin(t *testing.T) {
	tests := []struct {
		dir  string
		path string
		want bool
	}{
		{"/src", "/src", true},
		{"/src", "/src/a/b", true},
		{"/src", "/src/../etc", false},
		{"/src", "/srcfoo", false},
		{"/src", "/", false},
	}

	for _, tt := range tests {
		if got := Within(tt.dir, tt.path); got != tt.want {
			t.Errorf("Within(%q, %q) = %v, want %v", tt.dir, tt.path, got, tt.want)
		}
	}
}
