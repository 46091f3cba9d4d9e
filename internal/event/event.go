package event

import (
	"fmt"
	"log/slog"
	"strings"
)

// Kind of trigger that started a pipeline run.
type Kind string

const (
	KindManual     Kind = "workflow_dispatch" // Manual dispatch.
	KindPush       Kind = "push"              // Push to a branch or tag.
	KindMergeGroup Kind = "merge_group"       // Merge queue group.
	KindRelease    Kind = "release"           // Release event; see [Event.Action].
)

// Release action that makes a release event eligible for publishing.
const ActionPublished = "published"

// Alternative spellings accepted for each kind.
var kindAliases = map[string]Kind{
	"workflow_dispatch": KindManual,
	"manual":            KindManual,
	"dispatch":          KindManual,
	"push":              KindPush,
	"merge_group":       KindMergeGroup,
	"merge-group":       KindMergeGroup,
	"release":           KindRelease,
}

// Parses an event name into a [Kind].
//
// Matching is case-insensitive and ignores surrounding whitespace. Names
// outside the four supported kinds return [ErrUnknownEvent].
func ParseKind(name string) (Kind, error) {
	k, ok := kindAliases[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownEvent, name)
	}
	return k, nil
}

// A classified trigger event.
//
// Constructed once per run and never modified.
type Event struct {
	Kind   Kind   `json:"kind"`             // Trigger kind.
	Ref    string `json:"ref"`              // Git reference (e.g., "refs/tags/v1.2.0").
	Action string `json:"action,omitempty"` // Release action (e.g., "published"). Empty for other kinds.
}

// Creates an event, validating the kind.
//
// The action is kept only for release events; other kinds carry no action.
func New(kind Kind, ref, action string) (Event, error) {
	k, err := ParseKind(string(kind))
	if err != nil {
		return Event{}, err
	}

	ev := Event{Kind: k, Ref: strings.TrimSpace(ref)}
	if k == KindRelease {
		ev.Action = strings.TrimSpace(action)
	}
	return ev, nil
}

// Returns true for a release event whose action is "published".
func (e Event) IsReleasePublished() bool {
	return e.Kind == KindRelease && e.Action == ActionPublished
}

// Derives and validates the Version String for this event.
func (e Event) Version() (string, error) {
	v := VersionFromRef(e.Ref)
	if err := ValidateVersion(v); err != nil {
		return "", fmt.Errorf("ref %q: %w", e.Ref, err)
	}
	return v, nil
}

// Formats the event as "kind ref" or "kind/action ref".
func (e Event) String() string {
	if e.Action != "" {
		return fmt.Sprintf("%s/%s %s", e.Kind, e.Action, e.Ref)
	}
	return fmt.Sprintf("%s %s", e.Kind, e.Ref)
}

// Groups the event fields for structured logging.
func (e Event) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("kind", string(e.Kind)),
		slog.String("ref", e.Ref),
	}
	if e.Action != "" {
		attrs = append(attrs, slog.String("action", e.Action))
	}
	return slog.GroupValue(attrs...)
}
