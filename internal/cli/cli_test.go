package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	goruntime "runtime"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/qiboteam/qibo-docker/internal"
	"github.com/qiboteam/qibo-docker/internal/config"
	"github.com/qiboteam/qibo-docker/internal/event"
	"github.com/qiboteam/qibo-docker/internal/matrix"
	"github.com/qiboteam/qibo-docker/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Clears the GitHub Actions environment so tests behave the same in CI.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"GITHUB_EVENT_NAME", "GITHUB_REF", "GITHUB_EVENT_PATH", "GITHUB_RUN_ID",
		"GITHUB_ACTOR", "GITHUB_TOKEN", "REGISTRY_USER", "REGISTRY_TOKEN",
		"PYPI_TOKEN", "MATRIX_OS", "RUNTIME_VERSION",
		"CONTAINERD_ADDRESS", "CONTAINERD_NAMESPACE",
	} {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
}

func parse(t *testing.T, args ...string) string {
	t.Helper()
	parser, err := kong.New(&RootCmd,
		kong.Vars{
			"version":              "test",
			"containerd_address":   DefaultContainerdAddress,
			"containerd_namespace": DefaultContainerdNamespace,
		},
		kong.Exit(func(int) { t.Fatal("unexpected exit") }),
	)
	require.NoError(t, err)

	ctx, err := parser.Parse(args)
	require.NoError(t, err)
	return ctx.Command()
}

func TestParseCell(t *testing.T) {
	clearEnv(t)

	cmd := parse(t, "cell", "--os", "ubuntu-latest", "--runtime", "3.9",
		"--event", "release", "--ref", "refs/tags/v1.2.0", "--action", "published")

	assert.Equal(t, "cell", cmd)
	assert.Equal(t, "ubuntu-latest", RootCmd.Cell.OS)
	assert.Equal(t, "3.9", RootCmd.Cell.Runtime)
	assert.Equal(t, "release", RootCmd.Cell.Event)
	assert.Equal(t, "refs/tags/v1.2.0", RootCmd.Cell.Ref)
	assert.Equal(t, "published", RootCmd.Cell.Action)
}

func TestParseRunDefaults(t *testing.T) {
	clearEnv(t)

	cmd := parse(t, "run", "--no-push", "--all-os")

	assert.Equal(t, "run", cmd)
	assert.True(t, RootCmd.Run.NoPush)
	assert.True(t, RootCmd.Run.AllOS)
	assert.Equal(t, DefaultContainerdAddress, RootCmd.Run.ContainerdAddress)
	assert.Equal(t, DefaultContainerdNamespace, RootCmd.Run.ContainerdNamespace)
}

func TestParseReadsGitHubEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("GITHUB_EVENT_NAME", "push")
	t.Setenv("GITHUB_REF", "refs/heads/main")
	t.Setenv("GITHUB_ACTOR", "octocat")
	t.Setenv("GITHUB_TOKEN", "ghs_secret")
	t.Setenv("GITHUB_RUN_ID", "42")

	parse(t, "image")

	assert.Equal(t, "push", RootCmd.Image.Event)
	assert.Equal(t, "refs/heads/main", RootCmd.Image.Ref)
	assert.Equal(t, "octocat", RootCmd.Image.RegistryUser)
	assert.Equal(t, "ghs_secret", RootCmd.Image.RegistryToken.Reveal())
	assert.Equal(t, "42", RootCmd.RunID)
}

func TestParseExplicitCredentialWins(t *testing.T) {
	clearEnv(t)
	t.Setenv("REGISTRY_USER", "robot")
	t.Setenv("GITHUB_ACTOR", "octocat")

	parse(t, "image")
	assert.Equal(t, "robot", RootCmd.Image.RegistryUser)
}

func TestTriggerFlagsResolve(t *testing.T) {
	f := TriggerFlags{Event: "release", Ref: "refs/tags/v1.2.0", Action: "published"}

	ev, err := f.resolve("")
	require.NoError(t, err)
	assert.Equal(t, event.KindRelease, ev.Kind)
	assert.True(t, ev.IsReleasePublished())

	_, err = TriggerFlags{Event: "schedule", Ref: "refs/heads/main"}.resolve("")
	assert.ErrorIs(t, err, event.ErrUnknownEvent)
}

func TestTriggerFlagsReadPayload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "event.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"action":"created"}`), 0o644))

	ev, err := TriggerFlags{Event: "release", Ref: "refs/tags/v1.2.0", EventPath: path}.resolve("")
	require.NoError(t, err)
	assert.Equal(t, "created", ev.Action)
	assert.False(t, ev.IsReleasePublished())
}

func TestNewRegistryRequiresCredentialToPush(t *testing.T) {
	cfg, err := config.Default(t.TempDir())
	require.NoError(t, err)

	_, err = newRegistry(cfg, RegistryFlags{})
	assert.ErrorIs(t, err, registry.ErrMissingCredential)

	_, err = newRegistry(cfg, RegistryFlags{NoPush: true})
	assert.NoError(t, err)

	_, err = newRegistry(cfg, RegistryFlags{RegistryUser: "octocat", RegistryToken: "tok"})
	assert.NoError(t, err)
}

func TestNewPipelineFromDefault(t *testing.T) {
	cfg, err := config.Default(t.TempDir())
	require.NoError(t, err)

	p, err := newPipeline(cfg, "run-1", nil, nil, nil, false, nil)
	require.NoError(t, err)
	assert.Equal(t, "run-1", p.RunID())
}

func TestRunID(t *testing.T) {
	RootCmd.RunID = "fixed"
	t.Cleanup(func() { RootCmd.RunID = "" })
	assert.Equal(t, "fixed", runID())

	RootCmd.RunID = ""
	assert.NotEqual(t, runID(), runID())
}

func TestHostFilter(t *testing.T) {
	assert.Nil(t, hostFilter(true))

	skip := hostFilter(false)
	require.NotNil(t, skip)

	host := map[string]string{"linux": "ubuntu-latest", "darwin": "macos-latest", "windows": "windows-latest"}
	label, ok := host[goruntime.GOOS]
	if !ok {
		t.Skipf("no runner label for %s", goruntime.GOOS)
	}
	assert.False(t, skip(matrix.Cell{OS: label, Runtime: "3.9"}))

	for goos, other := range host {
		if goos != goruntime.GOOS {
			assert.True(t, skip(matrix.Cell{OS: other, Runtime: "3.9"}))
		}
	}
}

func TestFlagLogMode(t *testing.T) {
	t.Cleanup(func() {
		RootCmd.Quiet, RootCmd.Verbose, RootCmd.Debug = false, false, false
	})

	tests := []struct {
		name                  string
		quiet, verbose, debug bool
		base                  internal.LogMode
		want                  internal.LogMode
	}{
		{"no flags keeps base", false, false, false, internal.LogVerbose, internal.LogVerbose},
		{"quiet", true, false, false, internal.LogNormal, internal.LogQuiet},
		{"verbose over quiet", true, true, false, internal.LogNormal, internal.LogVerbose},
		{"verbose keeps debug base", false, true, false, internal.LogDebug, internal.LogDebug},
		{"debug wins", true, true, true, internal.LogQuiet, internal.LogDebug},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			RootCmd.Quiet, RootCmd.Verbose, RootCmd.Debug = tt.quiet, tt.verbose, tt.debug
			assert.Equal(t, tt.want, flagLogMode(tt.base))
		})
	}
}

func TestLogLevel(t *testing.T) {
	assert.Equal(t, log.WarnLevel, LogLevel(internal.LogQuiet))
	assert.Equal(t, log.InfoLevel, LogLevel(internal.LogNormal))
	assert.Equal(t, log.InfoLevel, LogLevel(internal.LogVerbose))
	assert.Equal(t, log.DebugLevel, LogLevel(internal.LogDebug))
}

// Runs fn and returns what it wrote to stdout.
func captureStdout(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	r, w, err := os.Pipe()
	require.NoError(t, err)
	stdout := os.Stdout
	os.Stdout = w
	t.Cleanup(func() { os.Stdout = stdout })

	runErr := fn()
	require.NoError(t, w.Close())
	os.Stdout = stdout

	out, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(out), runErr
}

func TestVersionStringPrintsPushedTag(t *testing.T) {
	RootCmd.Config = ""
	cmd := &VersionStringCmd{TriggerFlags{Event: "push", Ref: "refs/heads/Feature-X"}}

	out, err := captureStdout(t, func() error { return cmd.Run(context.Background()) })
	require.NoError(t, err)
	assert.Equal(t, "feature-x\n", out)

	cmd = &VersionStringCmd{TriggerFlags{Event: "release", Ref: "refs/tags/v1.2.0+cu118", Action: "published"}}
	_, err = captureStdout(t, func() error { return cmd.Run(context.Background()) })
	assert.ErrorIs(t, err, event.ErrInvalidVersion)
}
