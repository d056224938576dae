// Package version holds build information, injected with -ldflags:
//
//	go build -ldflags "-X qrshare/internal/version.GitCommit=$(git rev-parse --short HEAD)"
package version

import "fmt"

// Set at build time.
var (
	GitCommit = "unknown"
	BuildTime = "unknown"
	Version   = "0.1.0-dev"
)

// Info returns the string printed by --version.
func Info() string {
	return fmt.Sprintf("%s (%s, %s)", Version, GitCommit, BuildTime)
}
