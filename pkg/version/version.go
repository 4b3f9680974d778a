// Package version holds the build version of mcpagent.
package version

// Version is overridden at build time with -ldflags "-X github.com/mcpagent/mcpagent/pkg/version.Version=...".
var Version = "1.0.0"

// GetVersion returns the version of this build.
func GetVersion() string {
	return Version
}
