package internal

import (
	"strings"
	"sync/atomic"
)

// How much the tool logs.
//
// Modes are ordered: each one shows everything the mode before it shows.
type LogMode int32

const (
	LogQuiet   LogMode = iota // Warnings and errors only.
	LogNormal                 // Progress at info level.
	LogVerbose                // Adds timestamps and call sites.
	LogDebug                  // Adds debug records.
)

var logMode atomic.Int32

// Seeds the mode from the rawLogMode linker flag.
func init() {
	logMode.Store(int32(ParseLogMode(rawLogMode)))
}

// Returns the mode named s ("quiet", "verbose", "debug"). Anything else,
// including the empty string, is [LogNormal].
func ParseLogMode(s string) LogMode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "quiet":
		return LogQuiet
	case "verbose":
		return LogVerbose
	case "debug":
		return LogDebug
	}
	return LogNormal
}

// Returns the current log mode.
func CurrentLogMode() LogMode {
	return LogMode(logMode.Load())
}

// Sets the current log mode.
func SetLogMode(m LogMode) {
	logMode.Store(int32(m))
}

func (m LogMode) String() string {
	switch m {
	case LogQuiet:
		return "quiet"
	case LogVerbose:
		return "verbose"
	case LogDebug:
		return "debug"
	}
	return "normal"
}
