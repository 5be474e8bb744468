// Package version records the build identity of the pkggate binary.
// Values are injected at build time through -ldflags.
package version

var (
	// Version is the semantic version of the binary.
	Version = "dev"

	// Commit is the git revision the binary was built from.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)
