package render

import (
	"github.com/go-gl/mathgl/mgl64"
)

// Viewport maps the math plane onto a pixel grid. XDim×YDim math units
// centered on (XCenter, YCenter) fill Width×Height pixels, y grows upward.
type Viewport struct {
	XDim, YDim       float64
	XCenter, YCenter float64
	Width, Height    int
}

// DefaultViewport is a 3×3 window around the origin
func DefaultViewport(width, height int) Viewport {
	return Viewport{XDim: 3, YDim: 3, Width: width, Height: height}
}

func (v Viewport) MathToScreenX(x float64) float64 {
	return (x + v.XDim/2 - v.XCenter) / v.XDim * float64(v.Width)
}

func (v Viewport) MathToScreenY(y float64) float64 {
	return (-y + v.YDim/2 + v.YCenter) / v.YDim * float64(v.Height)
}

func (v Viewport) MathToScreen(p mgl64.Vec2) mgl64.Vec2 {
	return mgl64.Vec2{v.MathToScreenX(p[0]), v.MathToScreenY(p[1])}
}

func (v Viewport) ScreenToMathX(x float64) float64 {
	return x/float64(v.Width)*v.XDim - v.XDim/2 + v.XCenter
}

func (v Viewport) ScreenToMathY(y float64) float64 {
	return -(y/float64(v.Height)*v.YDim - v.YDim/2) + v.YCenter
}

func (v Viewport) ScreenToMath(p mgl64.Vec2) mgl64.Vec2 {
	return mgl64.Vec2{v.ScreenToMathX(p[0]), v.ScreenToMathY(p[1])}
}

// Resize keeps the math window and changes the pixel grid
func (v Viewport) Resize(width, height int) Viewport {
	v.Width, v.Height = width, height
	return v
}

// PixelScale is pixels per math unit along x
func (v Viewport) PixelScale() float64 {
	if v.XDim == 0 {
		return 0
	}
	return float64(v.Width) / v.XDim
}
