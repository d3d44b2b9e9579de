package pattern

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Mode selects the matching strategy used for brace-bodied languages.
type Mode string

const (
	// ModeRegex applies each language's expression as is. Bodies are matched
	// up to the first closing brace, so nested blocks are under-captured.
	ModeRegex Mode = "regex"
	// ModeBalanced keeps the signature expression but counts braces to find
	// the end of the body.
	ModeBalanced Mode = "balanced"
)

const (
	ident = `[a-zA-Z_][a-zA-Z0-9_]*`
	// flatBody matches a single-level body: everything up to the first '}'.
	flatBody = `[^}]*\}`
	// params is a parameter list on one line. Go's '.' would also cross '\r'
	// and the Unicode line separators; these stop it like a line break does.
	params = `\([^\r\n\x{2028}\x{2029}]*\)`
)

// rule splits a language expression into the signature head (ending in the
// opening brace) and the body. Rules without a brace body only have full.
type rule struct {
	head string
	body string
	full string
}

func (r rule) expr() string {
	if r.full != "" {
		return r.full
	}
	return r.head + r.body
}

var rules = map[string]rule{
	"c": {
		head: ident + `\s+` + ident + `\s*` + params + `\s*\{`,
		body: flatBody,
	},
	"cpp": {
		head: ident + `\s+` + ident + `\s*` + params + `\s*\{`,
		body: flatBody,
	},
	"dart": {
		head: `\b` + ident + `\s+` + ident + `\s*\([\s\S]*?\)\s*\{`,
		body: `[\s\S]*?\}`,
	},
	"python": {
		full: `def\s+` + ident + `\s*` + params + `:\s*([^#]*)`,
	},
	"java": {
		head: `\b(?:public|protected|private|static|final|abstract|synchronized)?\s+\b(?:` + ident + `\s+)+` + ident + `\s*` + params + `\s*\{`,
		body: flatBody,
	},
	"kotlin": {
		head: `\b(?:fun|private|protected|internal|public)?\s+\b` + ident + `\s*` + params + `\s*:\s*` + ident + `\s*\{`,
		body: `\s*` + flatBody,
	},
}

var (
	regexRegistry    map[string]Pattern
	balancedRegistry map[string]Pattern
	languages        []string
)

func init() {
	regexRegistry = make(map[string]Pattern, len(rules))
	balancedRegistry = make(map[string]Pattern, len(rules))
	for lang, r := range rules {
		full := regexPattern{re: regexp.MustCompile(r.expr())}
		regexRegistry[lang] = full
		languages = append(languages, lang)
		if r.head == "" {
			balancedRegistry[lang] = full
			continue
		}
		balancedRegistry[lang] = balancedPattern{head: regexp.MustCompile(r.head)}
	}
	sort.Strings(languages)
}

// Lookup returns the default (regex) pattern for languageID. An unknown
// language is reported with ok=false and is not an error.
func Lookup(languageID string) (Pattern, bool) {
	return LookupMode(ModeRegex, languageID)
}

// LookupMode returns the pattern for languageID under the given strategy.
// Languages without a brace body use their expression in every mode.
func LookupMode(mode Mode, languageID string) (Pattern, bool) {
	var p Pattern
	var ok bool
	switch mode {
	case ModeBalanced:
		p, ok = balancedRegistry[languageID]
	default:
		p, ok = regexRegistry[languageID]
	}
	return p, ok
}

// Supported reports whether languageID has a registered pattern.
func Supported(languageID string) bool {
	_, ok := regexRegistry[languageID]
	return ok
}

// Languages returns the supported language identifiers in sorted order.
func Languages() []string {
	out := make([]string, len(languages))
	copy(out, languages)
	return out
}

// ParseMode validates a strategy name. The empty string selects ModeRegex.
func ParseMode(v string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(v))) {
	case "", ModeRegex:
		return ModeRegex, nil
	case ModeBalanced:
		return ModeBalanced, nil
	default:
		return ModeRegex, fmt.Errorf("unknown detect mode: %s", v)
	}
}
