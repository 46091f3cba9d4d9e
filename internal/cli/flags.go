package cli

import (
	"log/slog"

	"github.com/qiboteam/qibo-docker/internal/event"
	"github.com/qiboteam/qibo-docker/internal/registry"
)

const (

	// Default containerd socket address.
	DefaultContainerdAddress = "/run/containerd/containerd.sock"

	// Default containerd namespace for images and build containers.
	DefaultContainerdNamespace = "qibo-release"
)

// Flags describing the trigger event. In GitHub Actions they are read from
// the environment; locally the reference defaults to the repository HEAD.
type TriggerFlags struct {
	Event     string `help:"Trigger event (workflow_dispatch, push, merge_group, release)." env:"GITHUB_EVENT_NAME" placeholder:"NAME"`
	Ref       string `help:"Git reference that triggered the run." env:"GITHUB_REF" placeholder:"REF"`
	Action    string `help:"Release action (e.g., published). Read from the event payload when empty." placeholder:"ACTION"`
	EventPath string `help:"JSON event payload." env:"GITHUB_EVENT_PATH" type:"path" placeholder:"PATH"`
}

// Resolves the trigger event. repoDir is consulted for HEAD when no
// reference is given.
func (f TriggerFlags) resolve(repoDir string) (event.Event, error) {
	ev, err := event.Resolve(event.Source{
		Name:        f.Event,
		Ref:         f.Ref,
		Action:      f.Action,
		PayloadPath: f.EventPath,
		RepoDir:     repoDir,
	})
	if err != nil {
		return event.Event{}, err
	}
	slog.Debug("trigger event resolved", "event", ev)
	return ev, nil
}

// Flags for the image registry.
type RegistryFlags struct {
	RegistryUser  string          `help:"Registry username." env:"REGISTRY_USER,GITHUB_ACTOR" placeholder:"USER"`
	RegistryToken registry.Secret `help:"Registry token or password." env:"REGISTRY_TOKEN,GITHUB_TOKEN" placeholder:"TOKEN"`
	NoPush        bool            `help:"Build and tag the image without logging in or pushing."`
}

// Returns the registry credential.
func (f RegistryFlags) credential() registry.Credential {
	return registry.Credential{
		Username: f.RegistryUser,
		Password: f.RegistryToken,
	}
}

// Flags for the package cells.
type PackageFlags struct {
	PackageIndexToken registry.Secret `help:"Package index token, used only by the publishing cell." env:"PYPI_TOKEN" placeholder:"TOKEN"`
}

// Flags for the containerd-backed image build.
type BuildFlags struct {
	Root                string `help:"Build context directory. Defaults to the pipeline's context." type:"path" placeholder:"DIR"`
	Platform            string `help:"Target platform (e.g., linux/amd64). Defaults to the pipeline's, then the host's." placeholder:"PLATFORM"`
	ContainerdAddress   string `help:"Containerd socket address." env:"CONTAINERD_ADDRESS" default:"${containerd_address}" placeholder:"PATH"`
	ContainerdNamespace string `help:"Containerd namespace." env:"CONTAINERD_NAMESPACE" default:"${containerd_namespace}" placeholder:"NAME"`
}
