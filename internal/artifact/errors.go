package artifact

import "errors"

var (
	ErrScript       = errors.New("invalid script")
	ErrScriptFailed = errors.New("script failed")
	ErrNoArtifacts  = errors.New("build produced no artifacts")
	ErrWorkspace    = errors.New("workspace error")
	ErrMissingToken = errors.New("missing package index token")
	ErrNoScript     = errors.New("no script configured")
)
