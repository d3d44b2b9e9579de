package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	configFilenames = []string{
		".funclen.yaml",
		".funclen.yml",
		".funclen.toml",
		".funclen.json",
	}
	xdgFilenames = []string{
		"config.yaml",
		"config.yml",
		"config.toml",
		"config.json",
	}
)

// Find locates the config file to use and reports where it came from
// ("explicit", "cwd-up", "xdg" or "home"). No file found is not an error.
func Find(rootDir, explicitPath, xdgHome, home string) (string, string, error) {
	if explicit := strings.TrimSpace(explicitPath); explicit != "" {
		candidate := explicit
		if !filepath.IsAbs(candidate) {
			cwd, err := os.Getwd()
			if err != nil {
				return "", "", err
			}
			candidate = filepath.Join(cwd, candidate)
		}
		info, err := os.Stat(candidate)
		if err != nil {
			return "", "", err
		}
		if info.IsDir() {
			return "", "", fmt.Errorf("FUNCLEN_CONFIG %q points to a directory", candidate)
		}
		return candidate, "explicit", nil
	}

	start := strings.TrimSpace(rootDir)
	if start == "" {
		start = "."
	}
	absStart, err := filepath.Abs(start)
	if err != nil {
		return "", "", err
	}
	if info, statErr := os.Stat(absStart); statErr == nil && !info.IsDir() {
		absStart = filepath.Dir(absStart)
	}
	for dir := absStart; ; {
		if candidate, ok := firstExisting(dir, configFilenames); ok {
			return candidate, "cwd-up", nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	homeDir := strings.TrimSpace(home)
	if homeDir == "" {
		if h, err := os.UserHomeDir(); err == nil {
			homeDir = h
		}
	}
	xdgRoot := strings.TrimSpace(xdgHome)
	if xdgRoot == "" && homeDir != "" {
		xdgRoot = filepath.Join(homeDir, ".config")
	}
	if xdgRoot != "" {
		if candidate, ok := firstExisting(filepath.Join(xdgRoot, "funclen"), xdgFilenames); ok {
			return candidate, "xdg", nil
		}
	}
	if homeDir != "" {
		if candidate, ok := firstExisting(homeDir, configFilenames); ok {
			return candidate, "home", nil
		}
	}
	return "", "", nil
}

// Candidates lists the config file names Find looks for in dir, whether they
// exist or not.
func Candidates(dir string) []string {
	out := make([]string, 0, len(configFilenames))
	for _, name := range configFilenames {
		out = append(out, filepath.Join(dir, name))
	}
	return out
}

func firstExisting(dir string, names []string) (string, bool) {
	for _, name := range names {
		candidate := filepath.Join(dir, name)
		if fileExists(candidate) {
			return candidate, true
		}
	}
	return "", false
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}
