package internal

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"sync/atomic"
)

// Name used for binary, directory, and log naming.
const Name = "reprodroid"

// String to indicate a local (non-pipeline) build.
const defaultLocalBuild = "(local)"

var (
	version   = "" // Version number (e.g., "1.2.3"), set via ldflags.
	gitCommit = "" // Git commit hash, set via ldflags.

	rawQuiet   = "false" // Whether to enable quiet mode by default.
	rawVerbose = "false" // Whether to enable verbose logging by default.
	rawDebug   = "false" // Whether to enable debug logging by default.
)

var (
	quietMode   atomic.Bool
	verboseMode atomic.Bool
	debugMode   atomic.Bool
)

// Parses the linker flags into usable runtime variables.
func init() {
	if v, err := strconv.ParseBool(rawQuiet); err == nil {
		quietMode.Store(v)
	}
	if v, err := strconv.ParseBool(rawVerbose); err == nil {
		verboseMode.Store(v)
	}
	if v, err := strconv.ParseBool(rawDebug); err == nil {
		debugMode.Store(v)
	}
}

// Returns true if quiet mode is enabled.
func IsQuiet() bool { return quietMode.Load() }

// Returns true if verbose logging is enabled.
func IsVerbose() bool { return verboseMode.Load() }

// Returns true if debug logging is enabled.
func IsDebug() bool { return debugMode.Load() }

// Returns the current version with any "v" prefix stripped, or "(local)"
// when no version was baked in at build time.
func Version() string {
	v := strings.TrimSpace(version)
	if v == "" {
		return defaultLocalBuild
	}
	return strings.TrimPrefix(strings.ToLower(v), "v")
}

// Returns a detailed version string.
//
// Local builds report "(local)". Pipeline builds report
// "<version> <git-commit> [<arch>]".
func VersionString() string {
	if strings.TrimSpace(version) == "" || strings.TrimSpace(gitCommit) == "" {
		return defaultLocalBuild
	}
	return fmt.Sprintf("%s %s [%s]", Version(), strings.TrimSpace(gitCommit), runtime.GOARCH)
}
