// Package version reports build information of the optsync binary.
//
// Variables are set at build time via ldflags:
//
//	go build -ldflags "-X github.com/rickgao/option-data/internal/version.Version=1.0.0 \
//	                   -X github.com/rickgao/option-data/internal/version.Commit=$(git rev-parse --short HEAD) \
//	                   -X github.com/rickgao/option-data/internal/version.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
//
// Without ldflags the commit and build time fall back to the VCS stamp Go
// embeds in module builds.
package version

import "runtime/debug"

// Build-time variables (set via ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

var readBuildInfo = debug.ReadBuildInfo

// resolve returns commit and build time, consulting the embedded VCS
// settings for values not set via ldflags.
func resolve() (commit, built string) {
	commit, built = Commit, BuildTime
	if commit != "unknown" && built != "unknown" {
		return commit, built
	}
	info, ok := readBuildInfo()
	if !ok {
		return commit, built
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if commit == "unknown" && s.Value != "" {
				commit = s.Value
				if len(commit) > 7 {
					commit = commit[:7]
				}
			}
		case "vcs.time":
			if built == "unknown" && s.Value != "" {
				built = s.Value
			}
		}
	}
	return commit, built
}

// String returns a formatted version string.
func String() string {
	commit, built := resolve()
	return Version + " (" + commit + ") built " + built
}

// LogAttrs returns key/value pairs for slog.
func LogAttrs() []any {
	commit, built := resolve()
	return []any{"version", Version, "commit", commit, "built", built}
}
