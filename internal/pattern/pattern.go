// Package pattern holds the per-language rules that recognise function-like
// constructs in raw source text.
package pattern

import (
	"regexp"
	"strings"
)

// Pattern finds the next candidate function span in text at or after from.
// Offsets are byte offsets into text; end is exclusive.
type Pattern interface {
	Next(text string, from int) (start, end int, ok bool)
}

// regexPattern applies a single expression. Every registered rule ends on a
// non-word byte (a closing brace, or the byte before '#'), so slicing the text
// at the cursor never changes how \b evaluates at the cut.
type regexPattern struct {
	re *regexp.Regexp
}

func (p regexPattern) Next(text string, from int) (int, int, bool) {
	if from < 0 {
		from = 0
	}
	if from >= len(text) {
		return 0, 0, false
	}
	loc := p.re.FindStringIndex(text[from:])
	if loc == nil {
		return 0, 0, false
	}
	return from + loc[0], from + loc[1], true
}

func (p regexPattern) String() string { return p.re.String() }

// balancedPattern uses the rule's head expression to find a signature ending
// in '{' and then walks the body counting braces. Braces inside string,
// character literals and comments are ignored. An unterminated body runs to
// the end of the text.
type balancedPattern struct {
	head *regexp.Regexp
}

func (p balancedPattern) Next(text string, from int) (int, int, bool) {
	if from < 0 {
		from = 0
	}
	if from >= len(text) {
		return 0, 0, false
	}
	loc := p.head.FindStringIndex(text[from:])
	if loc == nil {
		return 0, 0, false
	}
	start := from + loc[0]
	open := from + loc[1] - 1
	return start, closingBrace(text, open), true
}

func (p balancedPattern) String() string { return p.head.String() + "<balanced>" }

// closingBrace returns the offset just past the brace that closes text[open].
func closingBrace(text string, open int) int {
	depth := 0
	for i := open; i < len(text); i++ {
		switch c := text[i]; c {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1
			}
		case '"', '\'':
			i = skipQuoted(text, i, c)
		case '/':
			if strings.HasPrefix(text[i:], "//") {
				if nl := strings.IndexByte(text[i:], '\n'); nl >= 0 {
					i += nl
				} else {
					return len(text)
				}
			} else if strings.HasPrefix(text[i:], "/*") {
				if end := strings.Index(text[i+2:], "*/"); end >= 0 {
					i += end + 3
				} else {
					return len(text)
				}
			}
		}
	}
	return len(text)
}

// skipQuoted returns the offset of the delimiter that closes the literal
// opened at text[start]. Literals do not span lines; an unterminated one ends
// at the line break so a stray apostrophe cannot swallow the rest of the file.
func skipQuoted(text string, start int, delim byte) int {
	for i := start + 1; i < len(text); i++ {
		switch text[i] {
		case '\\':
			i++
		case '\n':
			return i
		case delim:
			return i
		}
	}
	return len(text)
}
