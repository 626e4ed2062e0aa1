// Package version carries build metadata injected at link time via -ldflags.
package version

var (
	// Version is the current release of the dataset tooling.
	Version = "dev"
	// GitSHA is the git commit SHA the binaries were built from.
	GitSHA = "unknown"
	// BuildTime is the build timestamp.
	BuildTime = "unknown"
)
