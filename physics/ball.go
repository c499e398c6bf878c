package physics

import (
	"image/color"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/lucasb-eyer/go-colorful"
)

// Ball is a point mass with unit mass
type Ball struct {
	Pos   mgl64.Vec2
	Vel   mgl64.Vec2
	Color color.RGBA

	// RefEnergy is ½|v|² + g·y at release, the ceiling enforced after bounces
	RefEnergy float64
	Bounces   int
}

// NewBall creates a ball at rest with its reference energy taken at p
func NewBall(p mgl64.Vec2, c color.RGBA, gravity float64) Ball {
	b := Ball{Pos: p, Color: c}
	b.RefEnergy = b.Energy(gravity)
	return b
}

// Energy returns specific mechanical energy (kinetic + potential)
func (b *Ball) Energy(gravity float64) float64 {
	return 0.5*b.Vel.Dot(b.Vel) + gravity*b.Pos[1]
}

// correctEnergy rescales speed so energy equals RefEnergy at the current height.
// Returns false when no kinetic energy is left and the ball was stopped.
func (b *Ball) correctEnergy(gravity float64) bool {
	kinetic := b.RefEnergy - gravity*b.Pos[1]
	speed := b.Vel.Len()
	if kinetic <= 0 {
		b.Vel = mgl64.Vec2{}
		return false
	}
	if speed == 0 {
		return true
	}
	b.Vel = b.Vel.Mul(math.Sqrt(2*kinetic) / speed)
	return true
}

// Palette names for SpawnRow
const (
	PaletteGradient = "gradient"
	PaletteHSV      = "hsv"
)

// SpawnRow places n balls at rest in a horizontal row starting at start
func SpawnRow(n int, start mgl64.Vec2, shift float64, palette string, gravity float64) []Ball {
	balls := make([]Ball, 0, max(n, 0))
	for i := 0; i < n; i++ {
		p := mgl64.Vec2{start[0] + shift*float64(i), start[1]}
		balls = append(balls, NewBall(p, RowColor(i, n, palette), gravity))
	}
	return balls
}

// RowColor returns the i-th color of an n-ball row
func RowColor(i, n int, palette string) color.RGBA {
	switch palette {
	case PaletteHSV:
		hue := 0.0
		if n > 1 {
			hue = 300 * float64(i) / float64(n-1)
		}
		r, g, b := colorful.Hsv(hue, 0.8, 1).Clamped().RGB255()
		return color.RGBA{R: r, G: g, B: b, A: 255}
	default:
		// red→green ramp, wraps like a byte counter past 100 balls
		return color.RGBA{R: uint8(255 - i), G: uint8(155 + i), B: 0, A: 255}
	}
}
