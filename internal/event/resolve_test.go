package event

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePayload(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "event.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestResolveExplicit(t *testing.T) {
	ev, err := Resolve(Source{Name: "push", Ref: "refs/heads/feature/x"})
	require.NoError(t, err)
	assert.Equal(t, Event{Kind: KindPush, Ref: "refs/heads/feature/x"}, ev)
}

func TestResolveReleasePayload(t *testing.T) {
	path := writePayload(t, `{"action":"published","release":{"tag_name":"v1.2.0"}}`)

	ev, err := Resolve(Source{Name: "release", PayloadPath: path})
	require.NoError(t, err)
	assert.Equal(t, KindRelease, ev.Kind)
	assert.Equal(t, "refs/tags/v1.2.0", ev.Ref)
	assert.Equal(t, "published", ev.Action)
	assert.True(t, ev.IsReleasePublished())
}

func TestResolveExplicitWinsOverPayload(t *testing.T) {
	path := writePayload(t, `{"action":"published","ref":"refs/tags/v0.0.1"}`)

	ev, err := Resolve(Source{
		Name:        "release",
		Ref:         "refs/tags/v1.2.0",
		Action:      "created",
		PayloadPath: path,
	})
	require.NoError(t, err)
	assert.Equal(t, "refs/tags/v1.2.0", ev.Ref)
	assert.Equal(t, "created", ev.Action)
	assert.False(t, ev.IsReleasePublished())
}

func TestResolveDefaultsToManual(t *testing.T) {
	ev, err := Resolve(Source{Ref: "main"})
	require.NoError(t, err)
	assert.Equal(t, KindManual, ev.Kind)
}

func TestResolveErrors(t *testing.T) {
	_, err := Resolve(Source{Name: "schedule", Ref: "main"})
	assert.ErrorIs(t, err, ErrUnknownEvent)

	_, err = Resolve(Source{Name: "push"})
	assert.ErrorIs(t, err, ErrNoRef)

	_, err = Resolve(Source{Name: "push", PayloadPath: writePayload(t, "{not json")})
	assert.ErrorIs(t, err, ErrPayload)

	_, err = Resolve(Source{Name: "push", PayloadPath: filepath.Join(t.TempDir(), "missing.json")})
	assert.ErrorIs(t, err, ErrPayload)
}
