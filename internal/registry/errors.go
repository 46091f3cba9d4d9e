package registry

import "errors"

var (
	ErrInvalidReference  = errors.New("invalid image reference")
	ErrMissingCredential = errors.New("missing registry credential")
	ErrAuthentication    = errors.New("registry authentication failed")
	ErrPush              = errors.New("push failed")
	ErrTagExists         = errors.New("tag already exists")
	ErrArchive           = errors.New("cannot open image archive")
)
