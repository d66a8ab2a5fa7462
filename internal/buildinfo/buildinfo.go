// Package buildinfo stores build-time metadata shared across packages.
package buildinfo

var (
	// Version is set via ldflags during build. Defaults to "dev".
	Version = "dev"
	// Commit is the source revision, set via ldflags.
	Commit = "unknown"
)
