// Package version holds build-time version metadata.
package version

import "fmt"

// Version is set via build-time ldflags:
// go build -ldflags "-X git.home.luguber.info/inful/previewd/internal/version.Version=v1.2.0".
var Version = "unknown"

// Build metadata, also injected at link time.
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String renders a one-line version summary for the CLI.
func String() string {
	return fmt.Sprintf("previewd %s (commit %s, built %s)", Version, GitCommit, BuildTime)
}
