package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
)

// Set with -ldflags "-X github.com/bobmcallan/events-portal/internal/config.Version=...".
var (
	Version   = "dev"
	Build     = "unknown"
	GitCommit = "unknown"
)

func GetVersion() string   { return Version }
func GetBuild() string     { return Build }
func GetGitCommit() string { return GitCommit }

// GetFullVersion is what the -version flags print.
func GetFullVersion() string {
	return fmt.Sprintf("%s (build: %s, commit: %s)", Version, Build, GitCommit)
}

// LoadVersionFromFile fills in whatever ldflags left at its default, first
// from a ".version" file next to the binary and then from the VCS stamp Go
// embeds in the build.
func LoadVersionFromFile() {
	if exe, err := os.Executable(); err == nil {
		if f, err := os.Open(filepath.Join(filepath.Dir(exe), ".version")); err == nil {
			applyVersionInfo(parseVersionFile(f))
			f.Close()
		}
	}
	if GitCommit == "unknown" {
		if info, ok := debug.ReadBuildInfo(); ok {
			for _, s := range info.Settings {
				if s.Key == "vcs.revision" && s.Value != "" {
					GitCommit = s.Value
				}
			}
		}
	}
}

// parseVersionFile reads "key: value" lines. Blank lines and # comments are
// skipped.
func parseVersionFile(r io.Reader) map[string]string {
	out := map[string]string{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if key, val, ok := strings.Cut(line, ":"); ok {
			out[strings.TrimSpace(key)] = strings.TrimSpace(val)
		}
	}
	return out
}

func applyVersionInfo(info map[string]string) {
	set := func(target *string, unset, key string) {
		if v := info[key]; v != "" && *target == unset {
			*target = v
		}
	}
	set(&Version, "dev", "version")
	set(&Build, "unknown", "build")
	set(&GitCommit, "unknown", "commit")
}
