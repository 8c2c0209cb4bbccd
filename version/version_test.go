package version

import (
	"runtime/debug"
	"testing"
)

func stub(t *testing.T, v, commit, date string, bi *debug.BuildInfo) {
	t.Helper()
	origV, origC, origD, origRead := Version, Commit, BuildDate, readBuildInfo
	t.Cleanup(func() {
		Version, Commit, BuildDate, readBuildInfo = origV, origC, origD, origRead
	})
	Version, Commit, BuildDate = v, commit, date
	readBuildInfo = func() (*debug.BuildInfo, bool) { return bi, bi != nil }
}

func TestGet_Ldflags(t *testing.T) {
	stub(t, "1.4.0", "abc1234", "2026-01-15T10:30:00Z", &debug.BuildInfo{
		GoVersion: "go1.25.0",
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "ffffffffffffffff"},
			{Key: "vcs.time", Value: "2020-01-01T00:00:00Z"},
		},
	})

	info := Get()
	if info.Commit != "abc1234" {
		t.Errorf("expected ldflags commit to win, got %q", info.Commit)
	}
	if info.BuildDate != "2026-01-15T10:30:00Z" {
		t.Errorf("expected ldflags build date to win, got %q", info.BuildDate)
	}
	if info.GoVersion != "go1.25.0" {
		t.Errorf("expected go1.25.0, got %q", info.GoVersion)
	}
	if !info.Release() {
		t.Error("expected 1.4.0 to be a release")
	}
}

func TestGet_VCSFallback(t *testing.T) {
	stub(t, "dev", "", "", &debug.BuildInfo{
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef"},
			{Key: "vcs.time", Value: "2026-02-01T00:00:00Z"},
			{Key: "vcs.modified", Value: "true"},
		},
	})

	info := Get()
	if info.Commit != "0123456" {
		t.Errorf("expected truncated revision, got %q", info.Commit)
	}
	if info.BuildDate != "2026-02-01T00:00:00Z" {
		t.Errorf("expected vcs time, got %q", info.BuildDate)
	}
	if !info.Dirty || info.Release() {
		t.Error("expected dirty dev build")
	}
	if got := Short(); got != "dev-0123456-dirty" {
		t.Errorf("expected dev-0123456-dirty, got %q", got)
	}
}

func TestShort_NoBuildInfo(t *testing.T) {
	stub(t, "2.0.0", "", "", nil)

	if got := Short(); got != "2.0.0" {
		t.Errorf("expected 2.0.0, got %q", got)
	}
}
