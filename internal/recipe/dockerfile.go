package recipe

import (
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/moby/buildkit/frontend/dockerfile/parser"
)

// Parses a single-stage Dockerfile into a recipe.
//
// FROM, LABEL, MAINTAINER, RUN, ENV, WORKDIR, SHELL, COPY, ADD (local
// sources only), ENTRYPOINT and CMD are translated. ARG, EXPOSE, USER,
// VOLUME, STOPSIGNAL, HEALTHCHECK and ONBUILD are rejected with
// [ErrUnsupported]. A second FROM is rejected as well.
func ParseDockerfile(r io.Reader) (*Recipe, error) {
	res, err := parser.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDockerfile, err)
	}

	d := &dockerfile{recipe: &Recipe{}}
	for _, node := range res.AST.Children {
		if err := d.instruction(node); err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrDockerfile, node.StartLine, err)
		}
	}

	if err := d.recipe.Validate(); err != nil {
		return nil, err
	}
	return d.recipe, nil
}

// Translation state for one Dockerfile.
type dockerfile struct {
	recipe  *Recipe // Recipe under construction.
	workdir string  // Current WORKDIR, for resolving relative ones.
}

// Translates one instruction node.
func (d *dockerfile) instruction(node *parser.Node) error {
	args := nodeArgs(node)

	switch strings.ToLower(node.Value) {
	case "from":
		if d.recipe.From != "" {
			return fmt.Errorf("%w: multi-stage builds", ErrUnsupported)
		}
		if len(args) == 0 {
			return fmt.Errorf("FROM requires an image")
		}
		if len(args) > 1 {
			return fmt.Errorf("%w: FROM ... AS", ErrUnsupported)
		}
		d.recipe.From = args[0]

	case "label":
		pairs, err := keyValues(node)
		if err != nil {
			return err
		}
		if d.recipe.Labels == nil {
			d.recipe.Labels = make(map[string]string, len(pairs))
		}
		for _, kv := range pairs {
			d.recipe.Labels[kv[0]] = kv[1]
		}

	case "maintainer":
		if d.recipe.Labels == nil {
			d.recipe.Labels = make(map[string]string, 1)
		}
		d.recipe.Labels["maintainer"] = strings.Join(args, " ")

	case "env":
		pairs, err := keyValues(node)
		if err != nil {
			return err
		}
		env := make(map[string]string, len(pairs))
		for _, kv := range pairs {
			env[kv[0]] = kv[1]
		}
		d.recipe.Steps = append(d.recipe.Steps, Step{Env: env})

	case "workdir":
		if len(args) != 1 {
			return fmt.Errorf("WORKDIR requires exactly one argument")
		}
		dir := args[0]
		if !path.IsAbs(dir) {
			dir = path.Join("/", d.workdir, dir)
		}
		d.workdir = dir
		d.recipe.Steps = append(d.recipe.Steps, Step{Workdir: dir})

	case "shell":
		if !isJSON(node) || len(args) == 0 {
			return fmt.Errorf("SHELL requires a JSON array")
		}
		d.recipe.Steps = append(d.recipe.Steps, Step{Shell: args[0]})

	case "run":
		if len(node.Heredocs) > 0 {
			return fmt.Errorf("%w: heredocs", ErrUnsupported)
		}
		cmd := strings.Join(args, " ")
		if isJSON(node) {
			cmd = shellJoin(args)
		}
		d.recipe.Steps = append(d.recipe.Steps, Step{Run: cmd})

	case "copy", "add":
		if len(node.Flags) > 0 {
			return fmt.Errorf("%w: %s flags %v", ErrUnsupported, strings.ToUpper(node.Value), node.Flags)
		}
		steps, err := d.copySteps(args)
		if err != nil {
			return err
		}
		d.recipe.Steps = append(d.recipe.Steps, steps...)

	case "entrypoint":
		d.recipe.Entrypoint = execForm(node, args)

	case "cmd":
		d.recipe.Cmd = execForm(node, args)

	default:
		return fmt.Errorf("%w: %s", ErrUnsupported, strings.ToUpper(node.Value))
	}

	return nil
}

// Expands "COPY src... dest" into one copy step per source.
func (d *dockerfile) copySteps(args []string) ([]Step, error) {
	if len(args) < 2 {
		return nil, fmt.Errorf("COPY requires a source and a destination")
	}

	srcs, dest := args[:len(args)-1], args[len(args)-1]
	intoDir := len(srcs) > 1 || dest == "." || strings.HasSuffix(dest, "/")
	if !path.IsAbs(dest) {
		dest = path.Join("/", d.workdir, dest)
	}

	steps := make([]Step, 0, len(srcs))
	for _, src := range srcs {
		if strings.Contains(src, "://") {
			return nil, fmt.Errorf("%w: remote source %q", ErrUnsupported, src)
		}
		target := dest
		if intoDir {
			target = path.Join(dest, path.Base(src))
		}
		steps = append(steps, Step{Copy: src + " " + target})
	}
	return steps, nil
}

// Collects the argument values of an instruction node.
func nodeArgs(node *parser.Node) []string {
	var args []string
	for n := node.Next; n != nil; n = n.Next {
		args = append(args, n.Value)
	}
	return args
}

// Reports whether the instruction used the JSON (exec) form.
func isJSON(node *parser.Node) bool {
	return node.Attributes["json"]
}

// Reads the key/value/separator triples of LABEL and ENV.
func keyValues(node *parser.Node) ([][2]string, error) {
	var pairs [][2]string
	for n := node.Next; n != nil; n = n.Next {
		if n.Next == nil {
			return nil, fmt.Errorf("%s %q has no value", strings.ToUpper(node.Value), n.Value)
		}
		key, value := unquote(n.Value), unquote(n.Next.Value)
		pairs = append(pairs, [2]string{key, value})

		n = n.Next
		if n.Next != nil && (n.Next.Value == "=" || n.Next.Value == "") {
			n = n.Next
		}
	}
	return pairs, nil
}

// Returns the argument list as given in exec form, or wrapped in "/bin/sh
// -c" in shell form.
func execForm(node *parser.Node, args []string) []string {
	if isJSON(node) || len(args) == 0 {
		return args
	}
	return []string{"/bin/sh", "-c", strings.Join(args, " ")}
}

// Strips one level of matching double or single quotes.
func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// Joins exec-form arguments into a single shell command line.
func shellJoin(args []string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		if a != "" && !strings.ContainsAny(a, " \t\n'\"\\$`;&|<>()*?[]#~") {
			quoted[i] = a
			continue
		}
		quoted[i] = "'" + strings.ReplaceAll(a, "'", `'\''`) + "'"
	}
	return strings.Join(quoted, " ")
}
