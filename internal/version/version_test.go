package version

import (
	"runtime/debug"
	"testing"
)

func withBuildInfo(t *testing.T, info *debug.BuildInfo) {
	t.Helper()
	orig := readBuildInfo
	readBuildInfo = func() (*debug.BuildInfo, bool) { return info, info != nil }
	t.Cleanup(func() { readBuildInfo = orig })
}

func withVars(t *testing.T, version, commit, built string) {
	t.Helper()
	v, c, b := Version, Commit, BuildTime
	Version, Commit, BuildTime = version, commit, built
	t.Cleanup(func() { Version, Commit, BuildTime = v, c, b })
}

func TestStringFromLdflags(t *testing.T) {
	withVars(t, "1.2.0", "abc1234", "2024-05-01T00:00:00Z")
	withBuildInfo(t, nil)

	if got, want := String(), "1.2.0 (abc1234) built 2024-05-01T00:00:00Z"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestStringFromBuildInfo(t *testing.T) {
	withVars(t, "dev", "unknown", "unknown")
	withBuildInfo(t, &debug.BuildInfo{Settings: []debug.BuildSetting{
		{Key: "vcs.revision", Value: "0123456789abcdef"},
		{Key: "vcs.time", Value: "2024-05-02T10:00:00Z"},
	}})

	if got, want := String(), "dev (0123456) built 2024-05-02T10:00:00Z"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestStringWithoutBuildInfo(t *testing.T) {
	withVars(t, "dev", "unknown", "unknown")
	withBuildInfo(t, nil)

	if got, want := String(), "dev (unknown) built unknown"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestLogAttrs(t *testing.T) {
	withVars(t, "1.2.0", "abc1234", "now")
	withBuildInfo(t, nil)

	attrs := LogAttrs()
	if len(attrs) != 6 || attrs[1] != "1.2.0" || attrs[3] != "abc1234" {
		t.Errorf("LogAttrs() = %v", attrs)
	}
}
