package version

import (
	"fmt"
	"runtime"
)

// Version is the release version embedded in the binary.
// It can be overridden at build time via:
// go build -ldflags "-X github.com/oukeidos/xraylens/internal/version.Version=0.2.0"
var Version = "0.1.0"

// Commit is the git commit hash embedded in the binary.
var Commit = "unknown"

// BuildDate is the RFC3339 build timestamp embedded in the binary.
var BuildDate = "unknown"

// Info returns a multi-line version string for CLI output.
func Info() string {
	return fmt.Sprintf("xraylens %s\ncommit: %s\nbuild: %s\ngo: %s", Version, Commit, BuildDate, runtime.Version())
}

// UserAgent identifies outgoing image fetches.
func UserAgent() string {
	return "xraylens/" + Version
}
