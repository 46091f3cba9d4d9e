package config

import "errors"

var (
	ErrInvalidConfig = errors.New("invalid pipeline configuration")
	ErrRead          = errors.New("cannot read pipeline file")
)
