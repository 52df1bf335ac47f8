// Package version carries build metadata injected with -ldflags.
package version

import "runtime"

// Name is the application name used in logs and user agents.
const Name = "deskshell"

var (
	// Version is the semantic version (e.g., "1.0.0")
	Version = "dev"
	// Commit is the git commit hash
	Commit = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// Info returns "<version> (<commit>)".
func Info() string {
	return Version + " (" + Commit + ")"
}

// Full includes the build time.
func Full() string {
	return Version + " (commit: " + Commit + ", built: " + BuildTime + ")"
}

// UserAgent identifies outgoing HTTP requests.
func UserAgent() string {
	return Name + "/" + Version + " (" + runtime.GOOS + "; " + runtime.GOARCH + ")"
}
