package pipeline

import "errors"

var (
	ErrInvalidConfig      = errors.New("invalid pipeline configuration")
	ErrDuplicatePublish   = errors.New("another cell already published in this run")
	ErrCellFailed         = errors.New("cell failed")
	ErrRequiredCellFailed = errors.New("required cell failed")
)
