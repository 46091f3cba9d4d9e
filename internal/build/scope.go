package build

import (
	"maps"
	"slices"

	"github.com/qiboteam/qibo-docker/internal/recipe"
)

// Shell used by run steps until a shell modifier says otherwise.
const defaultShell = "/bin/sh"

// Modifiers in effect at a point of the recipe.
//
// A modifier-only step changes the scope of every step after it. Modifiers
// on a run or copy step apply to that step alone. The scope left after the
// last step also provides the image's environment and working directory.
type scope struct {
	shell   string
	workdir string
	env     map[string]string
}

// Returns the scope a recipe starts in.
func newScope() scope {
	return scope{shell: defaultShell, env: map[string]string{}}
}

// Returns s with the step's modifiers laid over it. Empty modifiers keep
// the current value. s itself is not modified.
func (s scope) with(step recipe.Step) scope {
	next := scope{
		shell:   s.shell,
		workdir: s.workdir,
		env:     maps.Clone(s.env),
	}
	if next.env == nil {
		next.env = make(map[string]string, len(step.Env))
	}
	maps.Copy(next.env, step.Env)

	if step.Shell != "" {
		next.shell = step.Shell
	}
	if step.Workdir != "" {
		next.workdir = step.Workdir
	}
	return next
}

// Returns the environment as "KEY=value" entries sorted by key.
func (s scope) environ() []string {
	env := make([]string, 0, len(s.env))
	for _, k := range slices.Sorted(maps.Keys(s.env)) {
		env = append(env, k+"="+s.env[k])
	}
	return env
}
