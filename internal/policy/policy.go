// Package policy decides which files are reported on and how long a function
// may be before it is flagged.
package policy

import (
	"path/filepath"
	"strings"

	"github.com/phyten/funclen/internal/model"
	"github.com/phyten/funclen/internal/scan"
)

const sep = string(filepath.Separator)

// Policy holds the resolved exclusion prefixes and threshold for a workspace.
type Policy struct {
	Root     string
	MaxLines int
	prefixes []string
}

// New resolves folders against root and returns a ready policy. A maxLines
// below 1 falls back to scan.DefaultMaxLines.
func New(root string, maxLines int, folders []string) *Policy {
	if maxLines < 1 {
		maxLines = scan.DefaultMaxLines
	}
	return &Policy{
		Root:     root,
		MaxLines: maxLines,
		prefixes: NormalizeFolders(root, folders),
	}
}

// NormalizeFolders turns the configured exclude list into absolute prefixes
// ending in a path separator. Empty entries are dropped.
func NormalizeFolders(root string, folders []string) []string {
	out := make([]string, 0, len(folders))
	seen := make(map[string]struct{}, len(folders))
	for _, raw := range folders {
		f := strings.TrimSpace(raw)
		if f == "" {
			continue
		}
		f = filepath.FromSlash(f)
		if !filepath.IsAbs(f) {
			f = filepath.Join(root, f)
		}
		f = filepath.Clean(f)
		if !strings.HasSuffix(f, sep) {
			f += sep
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

// Prefixes returns a copy of the normalized exclusion prefixes.
func (p *Policy) Prefixes() []string {
	if p == nil {
		return nil
	}
	out := make([]string, len(p.prefixes))
	copy(out, p.prefixes)
	return out
}

// Excluded reports whether path lies in (or is) one of the excluded folders.
// Relative paths are resolved against the workspace root first.
func (p *Policy) Excluded(path string) bool {
	if p == nil || len(p.prefixes) == 0 || path == "" {
		return false
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(p.Root, path)
	}
	path = filepath.Clean(path)
	for _, prefix := range p.prefixes {
		if path+sep == prefix || strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// Report keeps only the findings that should surface as warnings.
func (p *Policy) Report(findings []model.Finding) []model.Finding {
	return scan.Exceeding(findings)
}
