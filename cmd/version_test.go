package cmd

import (
	"runtime/debug"
	"testing"
)

func TestResolveBuild(t *testing.T) {
	stamped := &debug.BuildInfo{
		GoVersion: "go1.26.0",
		Main:      debug.Module{Path: "github.com/kozaktomas/photo-curator", Version: "v1.2.0"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "abc123"},
			{Key: "vcs.time", Value: "2026-10-01T12:00:00Z"},
		},
	}

	tests := []struct {
		name     string
		bi       *debug.BuildInfo
		expected buildInfo
	}{
		{"from build info", stamped, buildInfo{version: "v1.2.0", commit: "abc123", date: "2026-10-01T12:00:00Z", goVersion: "go1.26.0"}},
		{"devel module keeps dev", &debug.BuildInfo{GoVersion: "go1.26.0", Main: debug.Module{Version: "(devel)"}}, buildInfo{version: "dev", commit: "unknown", date: "unknown", goVersion: "go1.26.0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resolveBuild(tt.bi); got != tt.expected {
				t.Errorf("expected %+v, got %+v", tt.expected, got)
			}
		})
	}
}

func TestResolveBuild_LdflagsWin(t *testing.T) {
	oldVersion, oldCommit := Version, CommitSHA
	t.Cleanup(func() { Version, CommitSHA = oldVersion, oldCommit })
	Version, CommitSHA = "v2.0.0", "feedbeef"

	got := resolveBuild(&debug.BuildInfo{
		Main:     debug.Module{Version: "v1.0.0"},
		Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "abc123"}},
	})
	if got.version != "v2.0.0" || got.commit != "feedbeef" {
		t.Errorf("expected ldflags values, got %+v", got)
	}
}
