package event

import (
	"fmt"
	"strings"

	"github.com/distribution/reference"
)

// Separator between reference path segments.
const refSeparator = "/"

// Placeholder repository used to validate tags in isolation.
var tagRepository, _ = reference.ParseNormalizedNamed("qibo")

// Derives the Version String from a git reference.
//
// Everything up to and including the last "/" is stripped, so
// "refs/tags/v1.2.0" becomes "v1.2.0" and "refs/heads/feature/x" becomes
// "x". A reference without a separator is returned unchanged. The result is
// not validated; see [ValidateVersion].
func VersionFromRef(ref string) string {
	i := strings.LastIndex(ref, refSeparator)
	if i < 0 {
		return ref
	}
	return ref[i+len(refSeparator):]
}

// Checks that a Version String is usable as an image tag.
//
// The string must be non-empty and match the registry tag grammar: a word
// character followed by up to 127 word characters, dots or dashes.
func ValidateVersion(v string) error {
	if v == "" {
		return fmt.Errorf("%w: empty", ErrInvalidVersion)
	}
	if _, err := reference.WithTag(tagRepository, v); err != nil {
		return fmt.Errorf("%w: %q: %w", ErrInvalidVersion, v, err)
	}
	return nil
}
