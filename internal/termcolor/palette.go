package termcolor

import (
	"github.com/phyten/funclen/internal/colorutil"
)

var (
	green  = colorutil.RGB{R: 0, G: 200, B: 0}
	yellow = colorutil.RGB{R: 230, G: 200, B: 0}
	red    = colorutil.RGB{R: 230, G: 0, B: 0}
)

// Palette picks styles for one output stream.
type Palette struct {
	Profile Profile
	Light   bool
}

func NewPalette(env Env) Palette {
	return Palette{Profile: DetectProfile(env), Light: LightBackground(env)}
}

func (Palette) Header() Style {
	return Style{Bold: true, Underline: true}
}

func (Palette) Status(exceeded bool) Style {
	if exceeded {
		return Style{Bold: true, FG: Basic(1)}
	}
	return Style{FG: Basic(2)}
}

// Lines colors a line count by how much of the limit it uses: green up to
// half, shading to yellow at the limit and red at twice the limit.
func (p Palette) Lines(count, max int) Style {
	ratio := 0.0
	if max > 0 {
		ratio = float64(count) / float64(max)
	}
	switch p.Profile {
	case ProfileTrueColor:
		return Style{FG: TrueColor(p.legible(gradient(ratio)))}
	case ProfileANSI256:
		return Style{FG: Indexed(ansi256(gradient(ratio)))}
	default:
		switch {
		case ratio > 1:
			return Style{FG: Basic(1)}
		case ratio > 0.5:
			return Style{FG: Basic(3)}
		default:
			return Style{FG: Basic(2)}
		}
	}
}

func (p Palette) legible(c colorutil.RGB) colorutil.RGB {
	bg := colorutil.Black
	if p.Light {
		bg = colorutil.White
	}
	return colorutil.Readable(c, bg, 3)
}

func gradient(ratio float64) colorutil.RGB {
	switch {
	case ratio <= 0.5:
		return green
	case ratio <= 1:
		return colorutil.Mix(green, yellow, (ratio-0.5)/0.5)
	default:
		return colorutil.Mix(yellow, red, ratio-1)
	}
}

// ansi256 maps c onto the 6x6x6 cube of the 256-color palette.
func ansi256(c colorutil.RGB) int {
	q := func(v uint8) int { return (int(v)*5 + 127) / 255 }
	return 16 + 36*q(c.R) + 6*q(c.G) + q(c.B)
}
