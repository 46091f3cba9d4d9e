package matrix

import (
	"fmt"
	"log/slog"
	"strings"
)

// One (operating system, runtime version) combination of the matrix.
type Cell struct {
	OS      string `yaml:"os" json:"os"`           // Runner label (e.g., "ubuntu-latest").
	Runtime string `yaml:"runtime" json:"runtime"` // Runtime version (e.g., "3.9").
}

// Formats the cell as "os/runtime".
func (c Cell) String() string {
	return c.OS + "/" + c.Runtime
}

// Returns a filesystem-safe name for the cell, used for workspace directories.
//
// Characters outside [A-Za-z0-9._-] are replaced with dashes.
func (c Cell) Slug() string {
	return slugify(c.OS) + "-" + slugify(c.Runtime)
}

// Returns true when neither field is set.
func (c Cell) IsZero() bool {
	return c.OS == "" && c.Runtime == ""
}

// Groups the cell fields for structured logging.
func (c Cell) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("os", c.OS),
		slog.String("runtime", c.Runtime),
	)
}

// Reports whether the cell can be built on a host with the given GOOS.
//
// Runner labels are matched by prefix ("ubuntu-22.04" and "ubuntu-latest"
// both mean linux). Labels that name no known family are assumed to run
// anywhere.
func (c Cell) MatchesHost(goos string) bool {
	family, ok := osFamily(c.OS)
	if !ok {
		return true
	}
	return family == goos
}

// Known runner label prefixes and the GOOS they run on.
var runnerFamilies = []struct {
	prefix string
	goos   string
}{
	{"ubuntu", "linux"},
	{"linux", "linux"},
	{"macos", "darwin"},
	{"darwin", "darwin"},
	{"windows", "windows"},
}

// Maps a runner label to its GOOS.
func osFamily(label string) (string, bool) {
	l := strings.ToLower(label)
	for _, f := range runnerFamilies {
		if strings.HasPrefix(l, f.prefix) {
			return f.goos, true
		}
	}
	return "", false
}

// Parses "os/runtime" into a [Cell].
func ParseCell(s string) (Cell, error) {
	label, version, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok || label == "" || version == "" {
		return Cell{}, fmt.Errorf("%w: %q is not of the form os/runtime", ErrInvalidMatrix, s)
	}
	return Cell{OS: label, Runtime: version}, nil
}

// Replaces characters unsafe in file names with dashes.
func slugify(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '_', r == '-':
			return r
		default:
			return '-'
		}
	}, s)
}
