package matrix

import "errors"

var (
	ErrInvalidMatrix    = errors.New("invalid build matrix")
	ErrCanonicalMissing = errors.New("canonical cell is not part of the matrix")
	ErrUnknownCell      = errors.New("cell is not part of the matrix")
)
