package vmath

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// MinTolerance bounds bisection so a zero or negative tolerance still terminates
const MinTolerance = 1e-12

// Vec2 is a shorthand constructor for mgl64.Vec2
func Vec2(x, y float64) mgl64.Vec2 {
	return mgl64.Vec2{x, y}
}

// Perp returns the counter-clockwise perpendicular (-y, x)
func Perp(v mgl64.Vec2) mgl64.Vec2 {
	return mgl64.Vec2{-v[1], v[0]}
}

// NormalizeOrZero returns unit vector, zero-safe
func NormalizeOrZero(v mgl64.Vec2) mgl64.Vec2 {
	l := v.Len()
	if l == 0 || math.IsNaN(l) || math.IsInf(l, 0) {
		return mgl64.Vec2{}
	}
	return v.Mul(1 / l)
}

// Reflect returns velocity reflected off surface with given unit normal
// vel' = vel - 2 * dot(vel, normal) * normal
func Reflect(v, n mgl64.Vec2) mgl64.Vec2 {
	return v.Sub(n.Mul(2 * v.Dot(n)))
}

// Bisect narrows [lo, hi] around the first point where inside flips to true.
// inside(hi) must hold; the returned value is the last sample known to be outside.
func Bisect(lo, hi, tol float64, inside func(t float64) bool) float64 {
	if tol < MinTolerance {
		tol = MinTolerance
	}
	for hi-lo > tol {
		mid := (lo + hi) / 2
		if inside(mid) {
			hi = mid
		} else {
			lo = mid
		}
	}
	return lo
}

// Lerp interpolates a→b by t
func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// Clamp limits v to [lo, hi]
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
