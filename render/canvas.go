package render

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
)

// Circle polygon resolution bounds
const (
	minCircleSegments = 12
	maxCircleSegments = 96
)

// Canvas is an anti-aliased RGBA drawing surface in pixel coordinates
type Canvas struct {
	img  *image.RGBA
	rast *vector.Rasterizer
	src  *image.Uniform

	// clip is the dirty rectangle of the shape being rasterized, path
	// coordinates are relative to its origin
	clip image.Rectangle
}

// NewCanvas allocates a width×height surface
func NewCanvas(width, height int) *Canvas {
	width, height = max(width, 1), max(height, 1)
	return &Canvas{
		img:  image.NewRGBA(image.Rect(0, 0, width, height)),
		rast: vector.NewRasterizer(width, height),
		src:  image.NewUniform(color.RGBA{}),
	}
}

// Image exposes the backing buffer, valid until the next Resize
func (c *Canvas) Image() *image.RGBA {
	return c.img
}

func (c *Canvas) Bounds() image.Rectangle {
	return c.img.Bounds()
}

// Resize reallocates when dimensions change
func (c *Canvas) Resize(width, height int) {
	width, height = max(width, 1), max(height, 1)
	b := c.img.Bounds()
	if b.Dx() == width && b.Dy() == height {
		return
	}
	c.img = image.NewRGBA(image.Rect(0, 0, width, height))
	c.rast = vector.NewRasterizer(width, height)
}

// Clear fills the surface with an opaque color
func (c *Canvas) Clear(col color.RGBA) {
	col.A = 255
	draw.Draw(c.img, c.img.Bounds(), image.NewUniform(col), image.Point{}, draw.Src)
}

// Line strokes p0→p1 as a quad of the given thickness
func (c *Canvas) Line(p0, p1 mgl64.Vec2, thickness float64, col color.RGBA) {
	d := p1.Sub(p0)
	l := d.Len()
	if l == 0 || !finite(p0) || !finite(p1) {
		return
	}
	half := math.Max(thickness, 0.5) / 2
	off := mgl64.Vec2{-d[1] / l * half, d[0] / l * half}

	pad := half + 1
	if !c.begin(
		math.Min(p0[0], p1[0])-pad, math.Min(p0[1], p1[1])-pad,
		math.Max(p0[0], p1[0])+pad, math.Max(p0[1], p1[1])+pad,
	) {
		return
	}
	c.moveTo(p0.Add(off))
	c.lineTo(p1.Add(off))
	c.lineTo(p1.Sub(off))
	c.lineTo(p0.Sub(off))
	c.rast.ClosePath()
	c.fill(col)
}

// Polyline strokes consecutive segments
func (c *Canvas) Polyline(pts []mgl64.Vec2, thickness float64, col color.RGBA) {
	for i := 1; i < len(pts); i++ {
		c.Line(pts[i-1], pts[i], thickness, col)
	}
}

// Circle fills a disc of radius r around center
func (c *Canvas) Circle(center mgl64.Vec2, r float64, col color.RGBA) {
	if r <= 0 || !finite(center) {
		return
	}
	if !c.begin(center[0]-r-1, center[1]-r-1, center[0]+r+1, center[1]+r+1) {
		return
	}

	n := int(math.Ceil(2 * math.Pi * r / 2))
	n = min(max(n, minCircleSegments), maxCircleSegments)

	c.moveTo(mgl64.Vec2{center[0] + r, center[1]})
	for i := 1; i < n; i++ {
		a := 2 * math.Pi * float64(i) / float64(n)
		c.lineTo(mgl64.Vec2{center[0] + r*math.Cos(a), center[1] + r*math.Sin(a)})
	}
	c.rast.ClosePath()
	c.fill(col)
}

// Text draws s with its baseline at (x, y) using a 7×13 bitmap face
func (c *Canvas) Text(x, y int, s string, col color.RGBA) {
	d := &font.Drawer{
		Dst:  c.img,
		Src:  image.NewUniform(premultiplied(col)),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

// TextWidth returns the pixel advance of s
func TextWidth(s string) int {
	return font.MeasureString(basicfont.Face7x13, s).Ceil()
}

// begin sizes the rasterizer to the shape's bounding box clipped to the
// surface, returns false when nothing would be visible
func (c *Canvas) begin(minX, minY, maxX, maxY float64) bool {
	r := image.Rect(
		int(math.Floor(math.Max(minX, -coordLimit))), int(math.Floor(math.Max(minY, -coordLimit))),
		int(math.Ceil(math.Min(maxX, coordLimit))), int(math.Ceil(math.Min(maxY, coordLimit))),
	).Intersect(c.img.Bounds())
	if r.Empty() {
		return false
	}
	c.clip = r
	c.rast.Reset(r.Dx(), r.Dy())
	c.rast.DrawOp = draw.Over
	return true
}

// coordLimit keeps steep off-screen segments within float32 precision
const coordLimit = 1 << 16

func (c *Canvas) moveTo(p mgl64.Vec2) {
	c.rast.MoveTo(clampCoord(p[0]-float64(c.clip.Min.X)), clampCoord(p[1]-float64(c.clip.Min.Y)))
}

func (c *Canvas) lineTo(p mgl64.Vec2) {
	c.rast.LineTo(clampCoord(p[0]-float64(c.clip.Min.X)), clampCoord(p[1]-float64(c.clip.Min.Y)))
}

func clampCoord(v float64) float32 {
	return float32(math.Max(-coordLimit, math.Min(coordLimit, v)))
}

func (c *Canvas) fill(col color.RGBA) {
	c.src.C = premultiplied(col)
	c.rast.Draw(c.img, c.clip, c.src, image.Point{})
}

func finite(p mgl64.Vec2) bool {
	for _, v := range p {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
