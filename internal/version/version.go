// Package version holds build information injected with ldflags:
//
//	go build -ldflags "-X github.com/SugiPHP/Cron/internal/version.Version=1.2.0 \
//	                   -X github.com/SugiPHP/Cron/internal/version.Commit=abc123 \
//	                   -X github.com/SugiPHP/Cron/internal/version.BuildTime=2026-01-01T00:00:00Z"
package version

import "fmt"

var (
	// Version is the semantic version, "dev" for local builds.
	Version = "dev"

	// Commit is the git commit the binary was built from.
	Commit = "unknown"

	// BuildTime is the RFC3339 build timestamp.
	BuildTime = "unknown"
)

// Info returns a one-line version string.
func Info() string {
	return fmt.Sprintf("sugicron %s (commit: %s, built: %s)", Version, Commit, BuildTime)
}
