package recipe

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Entrypoint of an image whose recipe does not declare one.
var DefaultEntrypoint = []string{"/bin/bash"}

// Instructions for building one image.
type Recipe struct {
	From       string            `yaml:"from"`                 // Base image reference.
	Labels     map[string]string `yaml:"labels,omitempty"`     // Image metadata labels.
	Steps      []Step            `yaml:"steps"`                // Ordered build steps.
	Entrypoint []string          `yaml:"entrypoint,omitempty"` // Image entrypoint. Defaults to [DefaultEntrypoint].
	Cmd        []string          `yaml:"cmd,omitempty"`        // Default arguments to the entrypoint.
}

// A single build step.
//
// A step with Run or Copy is an operation; its Env, Workdir and Shell apply
// to that operation only. A step with neither is a modifier whose fields
// persist for all later steps.
type Step struct {
	Run     string            `yaml:"run,omitempty"`     // Shell command.
	Copy    string            `yaml:"copy,omitempty"`    // "src dest", src relative to the build context.
	Env     map[string]string `yaml:"env,omitempty"`     // Environment variables.
	Workdir string            `yaml:"workdir,omitempty"` // Working directory inside the image.
	Shell   string            `yaml:"shell,omitempty"`   // Shell used for run steps.
}

// Reports whether the step runs a command or copies files.
func (s Step) IsOperation() bool {
	return s.Run != "" || s.Copy != ""
}

// Returns the entrypoint for the built image.
func (r *Recipe) ImageEntrypoint() []string {
	if len(r.Entrypoint) == 0 {
		return DefaultEntrypoint
	}
	return r.Entrypoint
}

// Checks that the recipe can be built.
func (r *Recipe) Validate() error {
	if strings.TrimSpace(r.From) == "" {
		return fmt.Errorf("%w: missing base image", ErrInvalidRecipe)
	}

	for i, step := range r.Steps {
		if step.Run != "" && step.Copy != "" {
			return fmt.Errorf("%w: step %d has both run and copy", ErrInvalidRecipe, i+1)
		}
		if !step.IsOperation() && len(step.Env) == 0 && step.Workdir == "" && step.Shell == "" {
			return fmt.Errorf("%w: step %d is empty", ErrInvalidRecipe, i+1)
		}
		if step.Copy != "" && len(strings.Fields(step.Copy)) != 2 {
			return fmt.Errorf("%w: step %d: copy expects source and destination", ErrInvalidRecipe, i+1)
		}
		if step.Workdir != "" && !strings.HasPrefix(step.Workdir, "/") {
			return fmt.Errorf("%w: step %d: workdir %q is not absolute", ErrInvalidRecipe, i+1, step.Workdir)
		}
	}
	return nil
}

// Decodes and validates a YAML recipe.
func ParseYAML(data []byte) (*Recipe, error) {
	var r Recipe
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRecipe, err)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

// Reads a recipe from a file.
//
// Files named "Dockerfile", or with a ".Dockerfile" or ".dockerfile"
// suffix, are parsed as Dockerfiles. Anything else is YAML.
func Load(path string) (*Recipe, error) {
	if IsDockerfile(path) {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDockerfile, err)
		}
		defer f.Close()
		return ParseDockerfile(f)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRecipe, err)
	}
	return ParseYAML(data)
}

// Reports whether path names a Dockerfile.
func IsDockerfile(path string) bool {
	base := filepath.Base(path)
	lower := strings.ToLower(base)
	return lower == "dockerfile" || strings.HasSuffix(lower, ".dockerfile")
}
