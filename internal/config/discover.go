package config

import (
	"os"
	"path/filepath"
)

// FileName is the configuration file every binary looks for.
const FileName = "events-portal.toml"

// SearchPaths lists where Discover looks, in order: next to the executable,
// then relative to the working directory.
func SearchPaths() []string {
	var paths []string
	if exe, err := os.Executable(); err == nil {
		dir := filepath.Dir(exe)
		paths = append(paths, filepath.Join(dir, FileName), filepath.Join(dir, "config", FileName))
	}
	paths = append(paths, FileName, filepath.Join("config", FileName), filepath.Join("docker", FileName))

	seen := make(map[string]bool, len(paths))
	out := paths[:0]
	for _, p := range paths {
		key := p
		if abs, err := filepath.Abs(p); err == nil {
			key = abs
		}
		if !seen[key] {
			seen[key] = true
			out = append(out, p)
		}
	}
	return out
}

// Discover returns the first existing file from SearchPaths, or "".
func Discover() string {
	for _, p := range SearchPaths() {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}
