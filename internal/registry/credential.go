package registry

import (
	"fmt"
	"io"
	"log/slog"
)

// Placeholder printed instead of a secret value.
const redacted = "[REDACTED]"

// A secret string that never prints its value.
//
// Formatting, logging and marshalling all yield a placeholder. The value is
// available only through [Secret.Reveal].
type Secret string

// Returns the secret value. Call only at the point of use.
func (s Secret) Reveal() string {
	return string(s)
}

// Returns a placeholder, or "" for an empty secret.
func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return redacted
}

// Returns a placeholder for %#v.
func (s Secret) GoString() string {
	return fmt.Sprintf("registry.Secret(%q)", s.String())
}

// Writes a placeholder for every fmt verb.
func (s Secret) Format(f fmt.State, verb rune) {
	if verb == 'v' && f.Flag('#') {
		io.WriteString(f, s.GoString())
		return
	}
	fmt.Fprintf(f, fmt.FormatString(f, verb), s.String())
}

// Returns a placeholder for slog.
func (s Secret) LogValue() slog.Value {
	return slog.StringValue(s.String())
}

// Returns a placeholder for JSON and YAML encoders.
func (s Secret) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Username and password (or token) for a registry.
type Credential struct {
	Username string // Account name.
	Password Secret // Password or access token.
}

// Checks that both fields are set.
func (c Credential) Validate() error {
	if c.Username == "" {
		return fmt.Errorf("%w: username", ErrMissingCredential)
	}
	if c.Password == "" {
		return fmt.Errorf("%w: password", ErrMissingCredential)
	}
	return nil
}
