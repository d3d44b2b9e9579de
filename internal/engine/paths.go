package engine

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/phyten/funclen/internal/policy"
)

// vcsDirs are never descended into.
var vcsDirs = map[string]struct{}{
	".git": {},
	".hg":  {},
	".svn": {},
	".bzr": {},
	".jj":  {},
}

// typicalExcludeDirs are skipped when Options.ExcludeTypical is set.
var typicalExcludeDirs = map[string]struct{}{
	"vendor":       {},
	"node_modules": {},
	"dist":         {},
	"build":        {},
	"target":       {},
	"out":          {},
	".dart_tool":   {},
	".gradle":      {},
	"__pycache__":  {},
	".venv":        {},
}

func skipDirName(name string, typical bool) bool {
	if _, ok := vcsDirs[name]; ok {
		return true
	}
	if !typical {
		return false
	}
	_, ok := typicalExcludeDirs[name]
	return ok
}

// SkipDir reports whether discovery would skip the directory at path.
func SkipDir(path string, typical bool) bool {
	return skipDirName(filepath.Base(path), typical)
}

// eligible reports whether discovery would list the file at path: it lies
// below root, no directory on the way is skipped or excluded, and the path
// filters accept it.
func eligible(root, path string, pol *policy.Policy, opts Options) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	if pol.Excluded(path) {
		return false
	}
	if dir := filepath.Dir(rel); dir != "." {
		for _, name := range strings.Split(filepath.ToSlash(dir), "/") {
			if skipDirName(name, opts.ExcludeTypical) {
				return false
			}
		}
	}
	return matchAny(opts.PathRegexCompiled, filepath.ToSlash(rel))
}

// CompilePathRegex compiles the path filters, dropping blank entries.
func CompilePathRegex(patterns []string) ([]*regexp.Regexp, error) {
	if len(patterns) == 0 {
		return nil, nil
	}
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, raw := range patterns {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			continue
		}
		rx, err := regexp.Compile(trimmed)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", trimmed, err)
		}
		compiled = append(compiled, rx)
	}
	return compiled, nil
}

// matchAny reports whether rel matches one of rx. No filters match everything.
func matchAny(rx []*regexp.Regexp, rel string) bool {
	if len(rx) == 0 {
		return true
	}
	for _, r := range rx {
		if r.MatchString(rel) {
			return true
		}
	}
	return false
}
