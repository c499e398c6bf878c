// Package curve provides the analytic boundaries balls bounce off.
//
// A curve splits the plane into a free side, where balls move, and a solid
// side. Collision code only needs three answers from a curve: its height at x,
// whether a point is on the solid side, and the unit normal pointing to the
// free side.
package curve

import (
	"errors"

	"github.com/go-gl/mathgl/mgl64"
)

// ErrInvalidCurve is wrapped by every parse and validation failure
var ErrInvalidCurve = errors.New("invalid curve")

// Curve is a boundary defined as a function of x
type Curve interface {
	// Eval returns the curve height at x, ok is false outside the domain
	Eval(x float64) (y float64, ok bool)
	// Normal returns the unit normal at (x, Eval(x)) pointing to the free side
	Normal(x float64) mgl64.Vec2
	// Below reports whether p lies on the solid side
	Below(p mgl64.Vec2) bool
	String() string
}
