package curve

import (
	"fmt"
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/lixenwraith/ballz/vmath"
)

// Polynomial is y = sum(Coeffs[i] * x^i); the free side is above
type Polynomial struct {
	Coeffs []float64
}

// NewPolynomial copies coefficients, lowest order first
func NewPolynomial(coeffs ...float64) *Polynomial {
	c := make([]float64, len(coeffs))
	copy(c, coeffs)
	return &Polynomial{Coeffs: c}
}

// Eval uses Horner's scheme, defined everywhere
func (p *Polynomial) Eval(x float64) (float64, bool) {
	y := 0.0
	for i := len(p.Coeffs) - 1; i >= 0; i-- {
		y = y*x + p.Coeffs[i]
	}
	return y, true
}

// Derivative returns dy/dx at x
func (p *Polynomial) Derivative(x float64) float64 {
	d := 0.0
	for i := len(p.Coeffs) - 1; i >= 1; i-- {
		d = d*x + float64(i)*p.Coeffs[i]
	}
	return d
}

// Normal is the perpendicular of the unit tangent (1, f'(x))
func (p *Polynomial) Normal(x float64) mgl64.Vec2 {
	tan := vmath.NormalizeOrZero(mgl64.Vec2{1, p.Derivative(x)})
	return vmath.Perp(tan)
}

func (p *Polynomial) Below(pt mgl64.Vec2) bool {
	y, _ := p.Eval(pt[0])
	return y > pt[1]
}

func (p *Polynomial) String() string {
	var terms []string
	for i := len(p.Coeffs) - 1; i >= 0; i-- {
		c := p.Coeffs[i]
		if c == 0 {
			continue
		}
		sign := "+"
		if c < 0 {
			sign = "-"
		}
		mag := math.Abs(c)

		var term string
		switch {
		case i == 0:
			term = trimFloat(mag)
		case mag == 1:
			term = power(i)
		default:
			term = trimFloat(mag) + power(i)
		}

		if len(terms) == 0 {
			if sign == "-" {
				term = "-" + term
			}
			terms = append(terms, term)
			continue
		}
		terms = append(terms, sign, term)
	}
	if len(terms) == 0 {
		return "y = 0"
	}
	return "y = " + strings.Join(terms, " ")
}

func power(i int) string {
	if i == 1 {
		return "x"
	}
	return fmt.Sprintf("x^%d", i)
}

func trimFloat(f float64) string {
	return fmt.Sprintf("%g", f)
}
