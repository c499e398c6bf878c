package render

import (
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/lixenwraith/ballz/vmath"
)

// Scene palette
var (
	ColorBG        = color.RGBA{39, 55, 77, 255}
	ColorSecondary = color.RGBA{82, 109, 130, 255}
	ColorPrimary   = color.RGBA{157, 178, 191, 255}
	ColorHighlight = color.RGBA{221, 230, 237, 255}
	ColorRecording = color.RGBA{230, 70, 70, 255}
)

// HSV converts hue in degrees, saturation and value in [0,1] to RGBA.
// Hue wraps, saturation and value are clamped.
func HSV(h, s, v float64) color.RGBA {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	s = vmath.Clamp(s, 0, 1)
	v = vmath.Clamp(v, 0, 1)
	r, g, b := colorful.Hsv(h, s, v).Clamped().RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

// WithAlpha returns c with straight alpha a in [0,1]
func WithAlpha(c color.RGBA, a float64) color.RGBA {
	c.A = uint8(math.Round(vmath.Clamp(a, 0, 1) * 255))
	return c
}

// premultiplied converts straight-alpha RGBA to the premultiplied form image/draw expects
func premultiplied(c color.RGBA) color.RGBA {
	if c.A == 255 {
		return c
	}
	a := uint32(c.A)
	return color.RGBA{
		R: uint8(uint32(c.R) * a / 255),
		G: uint8(uint32(c.G) * a / 255),
		B: uint8(uint32(c.B) * a / 255),
		A: c.A,
	}
}

// Blend mixes src over dst by alpha into an opaque color
func Blend(dst, src color.RGBA, alpha float64) color.RGBA {
	alpha = vmath.Clamp(alpha, 0, 1)
	mix := func(d, s uint8) uint8 {
		return uint8(math.Round(vmath.Lerp(float64(d), float64(s), alpha)))
	}
	return color.RGBA{R: mix(dst.R, src.R), G: mix(dst.G, src.G), B: mix(dst.B, src.B), A: 255}
}
