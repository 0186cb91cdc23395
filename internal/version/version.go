// Package version holds build metadata injected via ldflags.
//
// Example:
//
//	go build -ldflags "-X github.com/kailas-cloud/aigate/internal/version.Version=$(git describe --tags)"
package version

//nolint:revive // Set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)
