// Package version exposes build information stamped at link time.
package version

import (
	"fmt"
	"runtime"
)

// Set via -ldflags at build time; "dev" builds carry the defaults.
var (
	Version    = "dev"
	CommitHash = "dev"
	BuildTime  = "unknown"
)

// Info bundles version and build environment details.
type Info struct {
	Version    string `json:"version"`
	CommitHash string `json:"commit_hash"`
	BuildTime  string `json:"build_time"`
	GoVersion  string `json:"go_version"`
	Platform   string `json:"platform"`
}

// Get returns the build information of the running binary.
func Get() Info {
	return Info{
		Version:    Version,
		CommitHash: CommitHash,
		BuildTime:  BuildTime,
		GoVersion:  runtime.Version(),
		Platform:   runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// String renders a one-line human-readable form.
func (i Info) String() string {
	return fmt.Sprintf("typeforge %s (commit %s, built %s)", i.Version, i.CommitHash, i.BuildTime)
}

// Short returns the abbreviated commit hash.
func (i Info) Short() string {
	if len(i.CommitHash) >= 7 {
		return i.CommitHash[:7]
	}
	return i.CommitHash
}
