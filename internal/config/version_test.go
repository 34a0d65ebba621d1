package config

import (
	"strings"
	"testing"
)

func restoreVersion(t *testing.T) {
	v, b, c := Version, Build, GitCommit
	t.Cleanup(func() { Version, Build, GitCommit = v, b, c })
}

func TestVersionDefaults(t *testing.T) {
	if GetVersion() != "dev" || GetBuild() != "unknown" || GetGitCommit() != "unknown" {
		t.Errorf("unexpected defaults %s", GetFullVersion())
	}
	if want := "dev (build: unknown, commit: unknown)"; GetFullVersion() != want {
		t.Errorf("expected %q, got %q", want, GetFullVersion())
	}
}

func TestParseVersionFile(t *testing.T) {
	info := parseVersionFile(strings.NewReader(`
# written by the release script
version: 1.4.0
build: 2026-10-01T09:00:00Z
commit:  abc123
not a pair
`))
	if info["version"] != "1.4.0" || info["commit"] != "abc123" {
		t.Errorf("unexpected parse %v", info)
	}
	if info["build"] != "2026-10-01T09:00:00Z" {
		t.Errorf("value with colons should be kept whole, got %q", info["build"])
	}
	if len(info) != 3 {
		t.Errorf("expected 3 keys, got %v", info)
	}
}

func TestApplyVersionInfo_KeepsLinkerValues(t *testing.T) {
	restoreVersion(t)
	Version = "2.0.0"

	applyVersionInfo(map[string]string{"version": "1.4.0", "build": "b1", "commit": ""})

	if Version != "2.0.0" {
		t.Errorf("linker version overwritten: %s", Version)
	}
	if Build != "b1" {
		t.Errorf("expected build b1, got %s", Build)
	}
	if GitCommit != "unknown" {
		t.Errorf("empty commit should not apply, got %s", GitCommit)
	}
}
