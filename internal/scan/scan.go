// Package scan measures the function-like constructs a language pattern finds
// in a single document. It keeps no state between calls.
package scan

import (
	"fmt"
	"iter"
	"sort"
	"strings"

	"github.com/phyten/funclen/internal/model"
	"github.com/phyten/funclen/internal/pattern"
)

// DefaultMaxLines is the threshold used when the caller supplies no override.
const DefaultMaxLines = 40

// Scan returns one Finding per function the default pattern for languageID
// recognises in text, in document order. Unsupported languages yield nil.
// A maxLines value below 1 means "no override" and resolves to DefaultMaxLines.
func Scan(text, languageID string, maxLines int) []model.Finding {
	return ScanMode(pattern.ModeRegex, text, languageID, maxLines)
}

// ScanMode is Scan with an explicit matching strategy.
func ScanMode(mode pattern.Mode, text, languageID string, maxLines int) []model.Finding {
	p, ok := pattern.LookupMode(mode, languageID)
	if !ok || text == "" {
		return nil
	}
	return Measure(p, text, languageID, maxLines)
}

// Measure applies p to text and converts every match into a Finding.
func Measure(p pattern.Pattern, text, lang string, maxLines int) []model.Finding {
	if maxLines < 1 {
		maxLines = DefaultMaxLines
	}
	var (
		findings []model.Finding
		idx      lineIndex
	)
	for start, end := range Matches(p, text) {
		if idx == nil {
			idx = newLineIndex(text)
		}
		count := strings.Count(text[start:end], "\n") + 1
		findings = append(findings, model.Finding{
			Lang:      lang,
			Span:      idx.span(start, end),
			LineCount: count,
			MaxLines:  maxLines,
			Exceeded:  count > maxLines,
		})
	}
	return findings
}

// Matches yields the non-overlapping (start, end) byte ranges p finds in text,
// left to right. Each search resumes at the previous match's end. The sequence
// is computed lazily and starts over from the beginning on every range.
func Matches(p pattern.Pattern, text string) iter.Seq2[int, int] {
	return func(yield func(int, int) bool) {
		cursor := 0
		for cursor <= len(text) {
			start, end, ok := p.Next(text, cursor)
			if !ok {
				return
			}
			if !yield(start, end) {
				return
			}
			if end <= cursor {
				// an empty match must not pin the cursor
				end = cursor + 1
			}
			cursor = end
		}
	}
}

// Exceeding keeps the findings whose line count is above their threshold.
func Exceeding(findings []model.Finding) []model.Finding {
	var out []model.Finding
	for _, f := range findings {
		if f.Exceeded {
			out = append(out, f)
		}
	}
	return out
}

// Message renders the warning text shown for an exceeding function.
func Message(f model.Finding) string {
	return fmt.Sprintf("Function exceeds %d lines. Current line count: %d", f.MaxLines, f.LineCount)
}

// lineIndex holds the byte offset at which each line starts.
type lineIndex []int

func newLineIndex(text string) lineIndex {
	idx := make(lineIndex, 1, strings.Count(text, "\n")+1)
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			idx = append(idx, i+1)
		}
	}
	return idx
}

// position converts a byte offset into a 1-based line and column.
func (idx lineIndex) position(offset int) (line, col int) {
	n := sort.Search(len(idx), func(i int) bool { return idx[i] > offset })
	if n == 0 {
		return 1, offset + 1
	}
	return n, offset - idx[n-1] + 1
}

func (idx lineIndex) span(start, end int) model.Span {
	startLine, startCol := idx.position(start)
	endLine, endCol := idx.position(end)
	return model.Span{
		StartLine: startLine,
		StartCol:  startCol,
		EndLine:   endLine,
		EndCol:    endCol,
		ByteStart: start,
		ByteEnd:   end,
	}
}
