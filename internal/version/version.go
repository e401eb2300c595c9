package version

import "fmt"

// Version is the tool's current released version.
// This value can be overridden at build time using ldflags:
//
//	go build -ldflags "-X github.com/calyptra/memtide/internal/version.Version=v0.3.0"
var Version = "0.0.0-dev"

// GitCommit is the git commit hash at build time.
// Set via ldflags: -X github.com/calyptra/memtide/internal/version.GitCommit=$(git rev-parse HEAD)
var GitCommit = "unknown"

// BuildTime is the build timestamp in RFC3339 format.
// Set via ldflags: -X github.com/calyptra/memtide/internal/version.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)
var BuildTime = "unknown"

// String returns the full version line printed by --version.
func String() string {
	return fmt.Sprintf("memtide %s (commit %s, built %s)", Version, GitCommit, BuildTime)
}
