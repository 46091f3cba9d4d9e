package matrix

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultMatrix() Matrix {
	return Matrix{
		OS:        []string{"ubuntu-latest", "macos-latest", "windows-latest"},
		Runtime:   []string{"3.8", "3.9", "3.10"},
		Canonical: Cell{OS: "ubuntu-latest", Runtime: "3.9"},
	}
}

func TestExpand(t *testing.T) {
	cells := defaultMatrix().Expand()
	require.Len(t, cells, 9)
	assert.Equal(t, Cell{OS: "ubuntu-latest", Runtime: "3.8"}, cells[0])
	assert.Equal(t, Cell{OS: "ubuntu-latest", Runtime: "3.9"}, cells[1])
	assert.Equal(t, Cell{OS: "windows-latest", Runtime: "3.10"}, cells[8])

	seen := make(map[Cell]bool)
	for _, c := range cells {
		assert.False(t, seen[c], "duplicate cell %s", c)
		seen[c] = true
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, defaultMatrix().Validate())

	tests := []struct {
		name   string
		mutate func(*Matrix)
		want   error
	}{
		{"empty os", func(m *Matrix) { m.OS = nil }, ErrInvalidMatrix},
		{"empty runtime", func(m *Matrix) { m.Runtime = nil }, ErrInvalidMatrix},
		{"duplicate os", func(m *Matrix) { m.OS = append(m.OS, "macos-latest") }, ErrInvalidMatrix},
		{"blank runtime", func(m *Matrix) { m.Runtime = append(m.Runtime, " ") }, ErrInvalidMatrix},
		{"no canonical", func(m *Matrix) { m.Canonical = Cell{} }, ErrInvalidMatrix},
		{"canonical os removed", func(m *Matrix) { m.OS = []string{"macos-latest"} }, ErrCanonicalMissing},
		{"canonical runtime removed", func(m *Matrix) { m.Runtime = []string{"3.10"} }, ErrCanonicalMissing},
		{"unknown required", func(m *Matrix) { m.Required = []Cell{{OS: "freebsd", Runtime: "3.9"}} }, ErrUnknownCell},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := defaultMatrix()
			tt.mutate(&m)
			assert.ErrorIs(t, m.Validate(), tt.want)
		})
	}
}

func TestGitHubJSON(t *testing.T) {
	b, err := defaultMatrix().GitHubJSON()
	require.NoError(t, err)

	var decoded struct {
		Include []struct {
			OS        string `json:"os"`
			Runtime   string `json:"runtime"`
			Canonical bool   `json:"canonical"`
		} `json:"include"`
	}
	require.NoError(t, json.Unmarshal(b, &decoded))
	require.Len(t, decoded.Include, 9)

	canonical := 0
	for _, e := range decoded.Include {
		if e.Canonical {
			canonical++
			assert.Equal(t, "ubuntu-latest", e.OS)
			assert.Equal(t, "3.9", e.Runtime)
		}
	}
	assert.Equal(t, 1, canonical)
}
