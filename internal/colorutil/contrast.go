// Package colorutil keeps severity colors legible on the terminal background.
package colorutil

import "math"

type RGB struct {
	R, G, B uint8
}

var (
	Black = RGB{0, 0, 0}
	White = RGB{255, 255, 255}
)

func channel(c uint8) float64 {
	v := float64(c) / 255
	if v <= 0.04045 {
		return v / 12.92
	}
	return math.Pow((v+0.055)/1.055, 2.4)
}

// Luminance is the WCAG relative luminance of c.
func Luminance(c RGB) float64 {
	return 0.2126*channel(c.R) + 0.7152*channel(c.G) + 0.0722*channel(c.B)
}

// Contrast is the WCAG contrast ratio between a and b, from 1 to 21.
func Contrast(a, b RGB) float64 {
	la, lb := Luminance(a), Luminance(b)
	if la < lb {
		la, lb = lb, la
	}
	return (la + 0.05) / (lb + 0.05)
}

// Mix blends a toward b by t in [0,1].
func Mix(a, b RGB, t float64) RGB {
	t = math.Max(0, math.Min(1, t))
	lerp := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x) + (float64(y)-float64(x))*t))
	}
	return RGB{lerp(a.R, b.R), lerp(a.G, b.G), lerp(a.B, b.B)}
}

// Readable moves fg toward black or white, whichever is farther from bg, in
// small steps until the contrast against bg reaches min.
func Readable(fg, bg RGB, min float64) RGB {
	if min <= 0 {
		min = 4.5
	}
	if Contrast(fg, bg) >= min {
		return fg
	}
	target := Black
	if Contrast(White, bg) > Contrast(Black, bg) {
		target = White
	}
	for step := 1; step <= 10; step++ {
		c := Mix(fg, target, float64(step)/10)
		if Contrast(c, bg) >= min {
			return c
		}
	}
	return target
}
