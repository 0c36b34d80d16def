// Package version exposes build metadata injected at link time.
package version

var (
	// Version is the release version, overridden via -ldflags.
	Version = "0.1.0"
	// Commit is the source revision the binary was built from.
	Commit = "unknown"
)

// Resolve returns the version string shown to users, with a short
// commit suffix when the build injected one.
func Resolve() string {
	return resolve(Version, Commit)
}

func resolve(base, commit string) string {
	if base == "" {
		base = "0.0.0"
	}

	if commit == "" || commit == "unknown" {
		return base
	}
	if len(commit) > 7 {
		commit = commit[:7]
	}
	return base + "+" + commit
}
