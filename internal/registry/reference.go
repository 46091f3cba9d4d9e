package registry

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/distribution/reference"
)

// Fully qualified, lowercase image reference.
type Reference struct {
	Host    string // Registry host, with optional port (e.g., "ghcr.io").
	Owner   string // Repository owner or organisation.
	Name    string // Image name.
	Version string // Tag, derived from the trigger reference.
}

// Creates a normalized and validated reference.
func NewReference(host, owner, name, version string) (Reference, error) {
	r := Reference{
		Host:    host,
		Owner:   owner,
		Name:    name,
		Version: version,
	}.Normalize()

	if err := r.Validate(); err != nil {
		return Reference{}, err
	}
	return r, nil
}

// Returns a copy with every component trimmed and lowercased.
//
// Normalizing an already normalized reference returns it unchanged.
func (r Reference) Normalize() Reference {
	return Reference{
		Host:    normalize(r.Host),
		Owner:   normalize(r.Owner),
		Name:    normalize(r.Name),
		Version: normalize(r.Version),
	}
}

// Checks that the reference is complete and well formed.
func (r Reference) Validate() error {
	if r.Host == "" || r.Owner == "" || r.Name == "" || r.Version == "" {
		return fmt.Errorf("%w: %q has empty components", ErrInvalidReference, r.String())
	}

	named, err := reference.ParseNamed(r.Repository())
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidReference, r.Repository(), err)
	}

	if _, err := reference.WithTag(named, r.Version); err != nil {
		return fmt.Errorf("%w: tag %q: %w", ErrInvalidReference, r.Version, err)
	}
	return nil
}

// Returns "host/owner/name".
func (r Reference) Repository() string {
	return r.Host + "/" + r.Owner + "/" + r.Name
}

// Returns "host/owner/name:version".
func (r Reference) String() string {
	return r.Repository() + ":" + r.Version
}

// Returns the unqualified local tag (the image name).
func (r Reference) Local() string {
	return r.Name
}

// Formats the reference for structured logging.
func (r Reference) LogValue() slog.Value {
	return slog.StringValue(r.String())
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
