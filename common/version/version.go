// Package version carries build-time version information, populated via
// -ldflags "-X".
package version

var (
	// Version is the semantic version.
	Version = "v0.0.0-dev"

	// GitCommit is the git commit hash.
	GitCommit = "unknown"

	// BuildTime is the build timestamp.
	BuildTime = "unknown"
)

// Info returns a single formatted version string.
func Info() string {
	return Version + " (" + GitCommit + ") built at " + BuildTime
}
