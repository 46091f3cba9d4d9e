package recipe

import "errors"

var (
	ErrInvalidRecipe = errors.New("invalid recipe")
	ErrDockerfile    = errors.New("invalid dockerfile")
	ErrUnsupported   = errors.New("unsupported instruction")
)
