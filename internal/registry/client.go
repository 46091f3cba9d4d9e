package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"oras.land/oras-go/v2"
	"oras.land/oras-go/v2/content"
	"oras.land/oras-go/v2/content/oci"
	"oras.land/oras-go/v2/errdef"
	"oras.land/oras-go/v2/registry/remote"
	"oras.land/oras-go/v2/registry/remote/auth"
	"oras.land/oras-go/v2/registry/remote/errcode"
	"oras.land/oras-go/v2/registry/remote/retry"
)

// User agent sent to registries.
const userAgent = "qibo-release"

// Configures a [Client].
type Options struct {
	Host       string     // Registry host (e.g., "ghcr.io").
	Credential Credential // Static credential for Host.
	PlainHTTP  bool       // Use HTTP instead of HTTPS (local registries only).
}

// Authenticated client for a single registry host.
type Client struct {
	host      string       // Registry host the credential belongs to.
	plainHTTP bool         // Whether to talk HTTP instead of HTTPS.
	auth      *auth.Client // Authenticating HTTP client shared by all requests.
}

// Creates a client for the registry in opts.
//
// The credential is bound to opts.Host only; requests to other hosts carry
// no credential. Tokens obtained during [Client.Login] are cached and reused
// by later calls.
func New(opts Options) *Client {
	client := &auth.Client{
		Client: retry.DefaultClient,
		Cache:  auth.NewCache(),
		Credential: auth.StaticCredential(opts.Host, auth.Credential{
			Username: opts.Credential.Username,
			Password: opts.Credential.Password.Reveal(),
		}),
	}
	client.SetUserAgent(userAgent)

	return &Client{
		host:      opts.Host,
		plainHTTP: opts.PlainHTTP,
		auth:      client,
	}
}

// Verifies the credential against the registry.
//
// Pings the registry API endpoint, which forces the authentication
// challenge. Rejected credentials return [ErrAuthentication].
func (c *Client) Login(ctx context.Context) error {
	reg, err := remote.NewRegistry(c.host)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidReference, err)
	}
	reg.PlainHTTP = c.plainHTTP
	reg.Client = c.auth

	if err := reg.Ping(ctx); err != nil {
		return mapError(err)
	}

	slog.Info("logged in", "registry", c.host)
	return nil
}

// Reports whether the reference's tag already exists in the registry.
func (c *Client) Exists(ctx context.Context, ref Reference) (bool, error) {
	repo, err := c.repository(ref)
	if err != nil {
		return false, err
	}

	if _, err := repo.Resolve(ctx, ref.Version); err != nil {
		if errors.Is(err, errdef.ErrNotFound) {
			return false, nil
		}
		return false, mapError(err)
	}
	return true, nil
}

// Pushes the image rooted at root in src to the reference's tag.
//
// An existing tag is overwritten.
func (c *Client) Push(ctx context.Context, src content.ReadOnlyStorage, root ocispec.Descriptor, ref Reference) error {
	repo, err := c.repository(ref)
	if err != nil {
		return err
	}

	if err := Copy(ctx, src, root, repo, ref.Version); err != nil {
		return mapError(err)
	}

	slog.Info("image pushed", "ref", ref, "digest", root.Digest.String())
	return nil
}

// Copies the graph rooted at root from src to dst and tags it in dst.
//
// The root is addressed by descriptor, so src needs no tag or digest
// resolution of its own.
func Copy(ctx context.Context, src content.ReadOnlyStorage, root ocispec.Descriptor, dst oras.Target, tag string) error {
	if err := oras.CopyGraph(ctx, src, dst, root, oras.DefaultCopyGraphOptions); err != nil {
		return fmt.Errorf("%w: %s -> %s: %w", ErrPush, root.Digest, tag, err)
	}
	if err := dst.Tag(ctx, root, tag); err != nil {
		return fmt.Errorf("%w: tag %s: %w", ErrPush, tag, err)
	}
	return nil
}

// Opens an OCI image archive as a read-only store.
func OpenArchive(ctx context.Context, path string) (*oci.ReadOnlyStore, error) {
	store, err := oci.NewFromTar(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrArchive, path, err)
	}
	return store, nil
}

// Creates a remote repository handle for the reference.
func (c *Client) repository(ref Reference) (*remote.Repository, error) {
	repo, err := remote.NewRepository(ref.Repository())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidReference, err)
	}
	repo.PlainHTTP = c.plainHTTP
	repo.Client = c.auth
	return repo, nil
}

// Classifies registry errors. Unauthorized and forbidden responses become
// [ErrAuthentication]; everything else is returned as is.
func mapError(err error) error {
	var resp *errcode.ErrorResponse
	if errors.As(err, &resp) {
		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %w", ErrAuthentication, err)
		}
	}
	return err
}
