// Package textutil measures and fits strings to terminal cells.
package textutil

import (
	"regexp"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/rivo/uniseg"
)

// Ellipsis is appended by Fit when a value is cut.
const Ellipsis = "…"

var ansiRe = regexp.MustCompile(`\x1b\[[0-?]*[ -/]*[@-~]|\x1b\][^\x07\x1b]*(?:\x07|\x1b\\)`)

// StripANSI removes CSI and OSC escape sequences.
func StripANSI(s string) string {
	if !strings.ContainsRune(s, 0x1b) {
		return s
	}
	return ansiRe.ReplaceAllString(s, "")
}

// clusters calls fn for every grapheme cluster of s with its cell width and
// stops when fn returns false.
func clusters(s string, fn func(cluster string, width int) bool) {
	state := -1
	for s != "" {
		var cluster string
		cluster, s, _, state = uniseg.FirstGraphemeClusterInString(s, state)
		if !fn(cluster, runewidth.StringWidth(cluster)) {
			return
		}
	}
}

// Width returns the number of terminal cells s occupies, ignoring escapes.
func Width(s string) int {
	total := 0
	clusters(StripANSI(s), func(_ string, w int) bool {
		total += w
		return true
	})
	return total
}

// Fit cuts s to at most w cells, ending with Ellipsis when something was cut
// and the ellipsis fits. Escapes are dropped from cut values.
func Fit(s string, w int) string {
	if w <= 0 {
		return ""
	}
	if Width(s) <= w {
		return s
	}
	limit := w - runewidth.StringWidth(Ellipsis)
	suffix := Ellipsis
	if limit < 0 {
		limit, suffix = w, ""
	}
	var b strings.Builder
	used := 0
	clusters(StripANSI(s), func(c string, cw int) bool {
		if used+cw > limit {
			return false
		}
		b.WriteString(c)
		used += cw
		return true
	})
	return b.String() + suffix
}

// PadRight left-aligns s in a field of w cells.
func PadRight(s string, w int) string {
	if n := w - Width(s); n > 0 {
		return s + strings.Repeat(" ", n)
	}
	return s
}

// PadLeft right-aligns s in a field of w cells.
func PadLeft(s string, w int) string {
	if n := w - Width(s); n > 0 {
		return strings.Repeat(" ", n) + s
	}
	return s
}
