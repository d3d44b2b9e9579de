package termcolor

import (
	"fmt"
	"strings"

	"github.com/phyten/funclen/internal/colorutil"
)

type colorKind int

const (
	colorNone colorKind = iota
	colorBasic
	colorIndexed
	colorRGB
)

// Color is a foreground color in one of the three terminal profiles.
type Color struct {
	kind  colorKind
	value int
	rgb   colorutil.RGB
}

func Basic(n int) Color               { return Color{kind: colorBasic, value: n} }
func Indexed(n int) Color             { return Color{kind: colorIndexed, value: n} }
func TrueColor(c colorutil.RGB) Color { return Color{kind: colorRGB, rgb: c} }

type Style struct {
	Bold      bool
	Underline bool
	FG        Color
}

func (s Style) codes() []string {
	var codes []string
	if s.Bold {
		codes = append(codes, "1")
	}
	if s.Underline {
		codes = append(codes, "4")
	}
	switch s.FG.kind {
	case colorBasic:
		codes = append(codes, fmt.Sprintf("3%d", s.FG.value))
	case colorIndexed:
		codes = append(codes, fmt.Sprintf("38;5;%d", s.FG.value))
	case colorRGB:
		codes = append(codes, fmt.Sprintf("38;2;%d;%d;%d", s.FG.rgb.R, s.FG.rgb.G, s.FG.rgb.B))
	}
	return codes
}

// Render wraps text in SGR sequences when enabled.
func (s Style) Render(text string, enabled bool) string {
	if !enabled || text == "" {
		return text
	}
	codes := s.codes()
	if len(codes) == 0 {
		return text
	}
	return "\x1b[" + strings.Join(codes, ";") + "m" + text + "\x1b[0m"
}
