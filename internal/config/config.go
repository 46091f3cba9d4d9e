package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/distribution/reference"
	"github.com/qiboteam/qibo-docker/internal/matrix"
	"github.com/qiboteam/qibo-docker/internal/paths"
	"github.com/qiboteam/qibo-docker/internal/recipe"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultPipeline []byte

// Contents of the pipeline file.
type Pipeline struct {
	Image    Image         `yaml:"image"`
	Registry Registry      `yaml:"registry"`
	Matrix   matrix.Matrix `yaml:"matrix"`
	Package  Package       `yaml:"package"`

	dir string // Directory of the pipeline file, for resolving relative paths.
}

// Image section.
type Image struct {
	Name       string         `yaml:"name"`                 // Local image name and repository name.
	Recipe     *recipe.Recipe `yaml:"recipe,omitempty"`     // Inline recipe.
	Dockerfile string         `yaml:"dockerfile,omitempty"` // Dockerfile path, instead of an inline recipe.
	Context    string         `yaml:"context,omitempty"`    // Build context directory. Defaults to the pipeline directory.
	Platform   string         `yaml:"platform,omitempty"`   // Target platform. Defaults to the host.
}

// Registry section.
type Registry struct {
	Host      string `yaml:"host"`       // Registry host (e.g., "ghcr.io").
	Owner     string `yaml:"owner"`      // Repository owner.
	Immutable bool   `yaml:"immutable"`  // Refuse to overwrite an existing tag.
	PlainHTTP bool   `yaml:"plain-http"` // Talk HTTP to the registry (local testing only).
}

// Package section.
type Package struct {
	Source  string `yaml:"source"`  // Package source tree. Defaults to the pipeline directory.
	Build   string `yaml:"build"`   // Cell build script.
	Publish string `yaml:"publish"` // Cell publish script.
}

// Returns the embedded default pipeline, resolved against dir.
func Default(dir string) (*Pipeline, error) {
	return Parse(defaultPipeline, dir)
}

// Loads a pipeline file. An empty path loads the embedded default relative
// to the working directory.
func Load(path string) (*Pipeline, error) {
	if path == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrRead, err)
		}
		return Default(wd)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}

	p, err := Parse(data, dirOf(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Decodes and validates a pipeline. Relative paths in it resolve against
// dir.
func Parse(data []byte, dir string) (*Pipeline, error) {
	var p Pipeline

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	p.dir = dir
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Checks the pipeline for configuration errors.
func (p *Pipeline) Validate() error {
	if err := p.Image.validate(); err != nil {
		return err
	}
	if err := p.Registry.validate(); err != nil {
		return err
	}
	if err := p.Matrix.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if strings.TrimSpace(p.Package.Build) == "" {
		return fmt.Errorf("%w: package.build is empty", ErrInvalidConfig)
	}
	return nil
}

// Returns the image recipe, reading the Dockerfile when one is configured.
func (p *Pipeline) Recipe() (*recipe.Recipe, error) {
	if p.Image.Dockerfile != "" {
		return recipe.Load(paths.Resolve(p.dir, p.Image.Dockerfile))
	}
	return p.Image.Recipe, nil
}

// Returns the absolute build context directory.
func (p *Pipeline) BuildContext() string {
	return p.resolveDir(p.Image.Context)
}

// Returns the absolute package source directory.
func (p *Pipeline) SourceDir() string {
	return p.resolveDir(p.Package.Source)
}

// Resolves a configured directory against the pipeline directory.
func (p *Pipeline) resolveDir(dir string) string {
	if dir == "" {
		return p.dir
	}
	return paths.Resolve(p.dir, dir)
}

func (i Image) validate() error {
	if i.Name == "" {
		return fmt.Errorf("%w: image.name is empty", ErrInvalidConfig)
	}
	if _, err := reference.ParseNormalizedNamed(strings.ToLower(i.Name)); err != nil {
		return fmt.Errorf("%w: image.name %q: %w", ErrInvalidConfig, i.Name, err)
	}

	switch {
	case i.Recipe != nil && i.Dockerfile != "":
		return fmt.Errorf("%w: image.recipe and image.dockerfile are mutually exclusive", ErrInvalidConfig)
	case i.Recipe == nil && i.Dockerfile == "":
		return fmt.Errorf("%w: image needs a recipe or a dockerfile", ErrInvalidConfig)
	case i.Recipe != nil:
		if err := i.Recipe.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}
	return nil
}

func (r Registry) validate() error {
	if strings.TrimSpace(r.Host) == "" {
		return fmt.Errorf("%w: registry.host is empty", ErrInvalidConfig)
	}
	if strings.TrimSpace(r.Owner) == "" {
		return fmt.Errorf("%w: registry.owner is empty", ErrInvalidConfig)
	}
	return nil
}

// Returns the absolute directory containing path.
func dirOf(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Dir(path)
	}
	return filepath.Dir(abs)
}
