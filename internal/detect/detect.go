// Package detect maps files to the language identifiers used by the pattern
// registry.
package detect

import (
	"bytes"
	"path/filepath"
	"strings"
)

type Info struct {
	Name string
}

// FromPathAndContent detects a file's language from its name, falling back to
// the shebang line for extensionless scripts.
func FromPathAndContent(p string, data []byte) Info {
	if name := FromPath(p); name != "" {
		return Info{Name: name}
	}
	if shebang := detectByShebang(data); shebang != "" {
		return Info{Name: shebang}
	}
	return Info{}
}

// FromPath detects a file's language from its base name and extension only.
func FromPath(p string) string {
	base := strings.ToLower(filepath.Base(p))
	if lang, ok := basenameLanguages[base]; ok {
		return lang
	}
	ext := filepath.Ext(base)
	if ext == "" {
		return ""
	}
	if lang, ok := extensionLanguages[ext]; ok {
		return lang
	}
	// foo.gradle.kts, foo.g.dart
	stem := strings.TrimSuffix(base, ext)
	if lang, ok := extensionLanguages[filepath.Ext(stem)+ext]; ok {
		return lang
	}
	return ""
}

func detectByShebang(data []byte) string {
	if !bytes.HasPrefix(data, []byte("#!")) {
		return ""
	}
	end := bytes.IndexByte(data, '\n')
	if end == -1 {
		end = len(data)
	}
	fields := strings.Fields(strings.ToLower(string(data[2:end])))
	for _, field := range fields {
		interp := filepath.Base(field)
		if lang, ok := shebangLanguages[interp]; ok {
			return lang
		}
	}
	return ""
}

// NormalizeLangName lower-cases a user supplied language name and resolves
// common aliases (c++, py, kt, ...).
func NormalizeLangName(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return ""
	}
	if canon, ok := langAliases[n]; ok {
		return canon
	}
	return n
}

// MatchesLang reports whether info is allowed by the filter. An empty filter
// allows everything that was detected.
func MatchesLang(info Info, allow []string) bool {
	detected := NormalizeLangName(info.Name)
	if detected == "" {
		return false
	}
	if len(allow) == 0 {
		return true
	}
	for _, raw := range allow {
		if NormalizeLangName(raw) == detected {
			return true
		}
	}
	return false
}

// CanonicalLangs normalizes and de-duplicates a language filter, keeping the
// first occurrence order.
func CanonicalLangs(values []string) []string {
	if len(values) == 0 {
		return values
	}
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, raw := range values {
		norm := NormalizeLangName(raw)
		if norm == "" {
			continue
		}
		if _, ok := seen[norm]; ok {
			continue
		}
		seen[norm] = struct{}{}
		out = append(out, norm)
	}
	return out
}

var basenameLanguages = map[string]string{
	"sconstruct": "python",
	"sconscript": "python",
	"setup.py":   "python",
	"wscript":    "python",
}

var extensionLanguages = map[string]string{
	".c":          "c",
	".h":          "c",
	".cc":         "cpp",
	".cp":         "cpp",
	".cpp":        "cpp",
	".cxx":        "cpp",
	".c++":        "cpp",
	".hh":         "cpp",
	".hpp":        "cpp",
	".hxx":        "cpp",
	".ino":        "cpp",
	".ipp":        "cpp",
	".tpp":        "cpp",
	".dart":       "dart",
	".py":         "python",
	".pyw":        "python",
	".pyi":        "python",
	".java":       "java",
	".jav":        "java",
	".kt":         "kotlin",
	".kts":        "kotlin",
	".gradle.kts": "kotlin",
	".go":         "go",
	".rs":         "rust",
	".js":         "javascript",
	".ts":         "typescript",
	".swift":      "swift",
	".scala":      "scala",
	".cs":         "csharp",
	".rb":         "ruby",
	".m":          "objective-c",
	".mm":         "objective-cpp",
}

var langAliases = map[string]string{
	"c++":     "cpp",
	"cxx":     "cpp",
	"cc":      "cpp",
	"hpp":     "cpp",
	"h":       "c",
	"py":      "python",
	"python3": "python",
	"kt":      "kotlin",
	"kts":     "kotlin",
	"jav":     "java",
}

var shebangLanguages = map[string]string{
	"python":  "python",
	"python2": "python",
	"python3": "python",
	"pypy":    "python",
	"pypy3":   "python",
	"dart":    "dart",
	"kotlin":  "kotlin",
	"kotlinc": "kotlin",
	"java":    "java",
}
