// Package version holds build metadata injected at link time:
//
//	-ldflags "-X github.com/bitaca/mediadex/internal/version.Version=v1.2.3"
package version

import "fmt"

var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// String renders the build info in one line for startup logs.
func String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, Date)
}
