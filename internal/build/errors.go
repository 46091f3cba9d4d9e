package build

import "errors"

var (
	ErrBuild               = errors.New("build failed")
	ErrBaseImage           = errors.New("base image unavailable")
	ErrCommandFailed       = errors.New("command failed")
	ErrFileSystemOperation = errors.New("file system operation failed")
	ErrCopy                = errors.New("copy failed")
)
