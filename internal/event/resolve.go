package event

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// Prefix of git tag references.
const tagRefPrefix = "refs/tags/"

// Inputs from which an [Event] is resolved.
//
// Explicit fields win over values found in the payload file, and the payload
// wins over the local repository. An empty Name resolves to a manual
// dispatch, which is what a developer running the tool by hand gets.
type Source struct {
	Name        string // Event name (e.g., GITHUB_EVENT_NAME).
	Ref         string // Git reference (e.g., GITHUB_REF).
	Action      string // Release action override.
	PayloadPath string // Path to the JSON event payload (e.g., GITHUB_EVENT_PATH).
	RepoDir     string // Repository used to find HEAD when no reference is known.
}

// Subset of a webhook payload relevant to classification.
type payload struct {
	Action  string `json:"action"`
	Ref     string `json:"ref"`
	Release *struct {
		TagName string `json:"tag_name"`
	} `json:"release"`
}

// Resolves a trigger event from the given sources.
func Resolve(src Source) (Event, error) {
	name := src.Name
	if strings.TrimSpace(name) == "" {
		name = string(KindManual)
	}

	kind, err := ParseKind(name)
	if err != nil {
		return Event{}, err
	}

	var p payload
	if src.PayloadPath != "" {
		if p, err = readPayload(src.PayloadPath); err != nil {
			return Event{}, err
		}
	}

	action := firstNonEmpty(src.Action, p.Action)
	ref := firstNonEmpty(src.Ref, p.Ref)
	if ref == "" && p.Release != nil && p.Release.TagName != "" {
		ref = tagRefPrefix + p.Release.TagName
	}

	if ref == "" && src.RepoDir != "" {
		head, err := HeadRef(src.RepoDir)
		if err != nil {
			return Event{}, err
		}
		slog.Debug("reference taken from repository", "dir", src.RepoDir, "ref", head)
		ref = head
	}

	if ref == "" {
		return Event{}, ErrNoRef
	}

	return New(kind, ref, action)
}

// Reads and decodes an event payload file.
func readPayload(path string) (payload, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return payload{}, fmt.Errorf("%w: %w", ErrPayload, err)
	}

	var p payload
	if err := json.Unmarshal(b, &p); err != nil {
		return payload{}, fmt.Errorf("%w: %s: %w", ErrPayload, path, err)
	}
	return p, nil
}

// Returns the first argument that is not blank, trimmed.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
