package curve

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/lixenwraith/ballz/vmath"
)

// Semicircle is half a circle: the lower arc (bowl) by default, the upper arc
// (dome) when Upper is set. Outside [cx-r, cx+r] there is no surface.
type Semicircle struct {
	Center mgl64.Vec2
	Radius float64
	Upper  bool
}

// NewSemicircle returns a bowl or dome centered at (cx, cy)
func NewSemicircle(cx, cy, r float64, upper bool) *Semicircle {
	return &Semicircle{Center: mgl64.Vec2{cx, cy}, Radius: r, Upper: upper}
}

func (s *Semicircle) halfChord(x float64) (float64, bool) {
	dx := x - s.Center[0]
	d := s.Radius*s.Radius - dx*dx
	if d < 0 || s.Radius <= 0 {
		return 0, false
	}
	return math.Sqrt(d), true
}

func (s *Semicircle) Eval(x float64) (float64, bool) {
	h, ok := s.halfChord(x)
	if !ok {
		return 0, false
	}
	if s.Upper {
		return s.Center[1] + h, true
	}
	return s.Center[1] - h, true
}

// Normal is radial so it stays finite at the rim where the slope diverges
func (s *Semicircle) Normal(x float64) mgl64.Vec2 {
	y, ok := s.Eval(x)
	if !ok {
		return mgl64.Vec2{0, 1}
	}
	radial := vmath.NormalizeOrZero(mgl64.Vec2{x, y}.Sub(s.Center))
	if s.Upper {
		return radial
	}
	return radial.Mul(-1)
}

func (s *Semicircle) Below(p mgl64.Vec2) bool {
	y, ok := s.Eval(p[0])
	if !ok {
		return false
	}
	return y > p[1]
}

func (s *Semicircle) String() string {
	kind := "bowl"
	if s.Upper {
		kind = "dome"
	}
	return fmt.Sprintf("%s (x-%g)^2 + (y-%g)^2 = %g^2", kind, s.Center[0], s.Center[1], s.Radius)
}
