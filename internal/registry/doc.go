// Package registry names, authenticates against and pushes to container
// registries.
//
// An image [Reference] combines a registry host, repository owner, image
// name and Version String. Every component is lowercased before the
// reference is assembled, because registry names reject uppercase.
//
// A [Client] wraps oras-go's remote registry client with a static
// [Credential]. [Client.Login] verifies the credential before anything is
// pushed; [Client.Push] copies an image graph from a local OCI store (such as
// the archive written by the image builder) to the remote tag. Pushing an
// existing tag overwrites it unless the caller checks [Client.Exists] first.
//
// Example usage:
//
//	ref, err := registry.NewReference("ghcr.io", "QiboTeam", "qibo", "v1.2.0")
//	if err != nil {
//	    return err
//	}
//
//	client := registry.New(registry.Options{
//	    Host:       ref.Host,
//	    Credential: registry.Credential{Username: "bot", Password: registry.Secret(token)},
//	})
//	if err := client.Login(ctx); err != nil {
//	    return err
//	}
//
//	src, err := registry.OpenArchive(ctx, "dist/image.tar")
//	if err != nil {
//	    return err
//	}
//	if err := client.Push(ctx, src, root, ref); err != nil {
//	    return err
//	}
package registry
