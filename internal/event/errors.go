package event

import "errors"

var (
	ErrUnknownEvent   = errors.New("unknown trigger event")
	ErrInvalidVersion = errors.New("invalid version string")
	ErrNoRef          = errors.New("no reference for trigger event")
	ErrPayload        = errors.New("invalid event payload")
)
