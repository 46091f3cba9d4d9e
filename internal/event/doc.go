// Package event classifies the trigger of a pipeline run.
//
// A trigger [Event] is one of four kinds (manual dispatch, push, merge group,
// release) and carries the git reference that triggered it. Release events
// also carry an action, compared against "published" when deciding whether a
// run publishes packages.
//
// Events are resolved from explicit values first, then from the GitHub
// Actions environment (event name, ref, and the JSON payload file), and
// finally from the local git repository when no reference is known.
//
// The Version String used to tag images is derived from the reference by
// [VersionFromRef] and must pass [ValidateVersion] before anything is
// tagged or pushed.
//
// Example usage:
//
//	ev, err := event.Resolve(event.Source{
//	    Name:        os.Getenv("GITHUB_EVENT_NAME"),
//	    Ref:         os.Getenv("GITHUB_REF"),
//	    PayloadPath: os.Getenv("GITHUB_EVENT_PATH"),
//	    RepoDir:     ".",
//	})
//	if err != nil {
//	    return err
//	}
//
//	version, err := ev.Version()
//	if err != nil {
//	    return err
//	}
package event
