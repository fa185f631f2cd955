// Package version carries build-time version metadata.
package version

// Version is the current released version. Override at build time:
//
//	go build -ldflags "-X github.com/davag/ragquery/internal/version.Version=v0.3.0"
var Version = "0.0.0-dev"

// GitCommit is the git commit hash at build time.
var GitCommit = "unknown"

// BuildTime is the build timestamp in RFC3339 format.
var BuildTime = "unknown"

// GetCurrentVersion returns the version string reported by the server.
func GetCurrentVersion(mode string) string {
	if mode == "dev" {
		return Version + "+dev"
	}
	return Version
}
