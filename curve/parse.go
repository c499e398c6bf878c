package curve

import (
	"fmt"
	"strconv"
	"strings"
)

// Preset is a named curve for interactive cycling
type Preset struct {
	Name  string
	Curve Curve
}

// Presets returns the interactive curve cycle, parabola first
func Presets() []Preset {
	return []Preset{
		{Name: "parabola", Curve: NewPolynomial(-1, 0, 1)},
		{Name: "cubic", Curve: NewPolynomial(-0.5, -0.6, 0, 0.8)},
		{Name: "quartic", Curve: NewPolynomial(-1, 0, -0.8, 0, 1)},
		{Name: "bowl", Curve: NewSemicircle(0, 0.2, 1.2, false)},
		{Name: "dome", Curve: NewSemicircle(0, -1.2, 1, true)},
		{Name: "slope", Curve: NewPolynomial(-0.5, 0.3)},
	}
}

// Parse reads "poly:c0,c1,..." or "semicircle:cx,cy,r[,upper]".
// A bare preset name is also accepted.
func Parse(s string) (Curve, error) {
	s = strings.TrimSpace(s)
	kind, args, hasArgs := strings.Cut(s, ":")
	kind = strings.ToLower(strings.TrimSpace(kind))

	if !hasArgs {
		for _, p := range Presets() {
			if p.Name == kind {
				return p.Curve, nil
			}
		}
		return nil, fmt.Errorf("%w: unknown curve %q", ErrInvalidCurve, s)
	}

	switch kind {
	case "poly", "polynomial":
		coeffs, err := parseFloats(args)
		if err != nil {
			return nil, err
		}
		if len(coeffs) == 0 {
			return nil, fmt.Errorf("%w: polynomial needs at least one coefficient", ErrInvalidCurve)
		}
		return NewPolynomial(coeffs...), nil

	case "semicircle", "circle":
		fields := strings.Split(args, ",")
		upper := false
		if n := len(fields); n == 4 {
			switch strings.ToLower(strings.TrimSpace(fields[3])) {
			case "upper", "dome", "true":
				upper = true
			case "lower", "bowl", "false":
			default:
				return nil, fmt.Errorf("%w: semicircle side %q", ErrInvalidCurve, fields[3])
			}
			fields = fields[:3]
		}
		if len(fields) != 3 {
			return nil, fmt.Errorf("%w: semicircle needs cx,cy,r", ErrInvalidCurve)
		}
		v, err := parseFloats(strings.Join(fields, ","))
		if err != nil {
			return nil, err
		}
		if len(v) != 3 {
			return nil, fmt.Errorf("%w: semicircle needs cx,cy,r", ErrInvalidCurve)
		}
		c := NewSemicircle(v[0], v[1], v[2], upper)
		if err := Validate(c); err != nil {
			return nil, err
		}
		return c, nil

	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidCurve, kind)
	}
}

// Validate rejects degenerate curves
func Validate(c Curve) error {
	switch v := c.(type) {
	case *Semicircle:
		if v.Radius <= 0 {
			return fmt.Errorf("%w: radius must be positive, got %g", ErrInvalidCurve, v.Radius)
		}
	case *Polynomial:
		if len(v.Coeffs) == 0 {
			return fmt.Errorf("%w: empty polynomial", ErrInvalidCurve)
		}
	case nil:
		return fmt.Errorf("%w: nil curve", ErrInvalidCurve)
	}
	return nil
}

func parseFloats(s string) ([]float64, error) {
	var out []float64
	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad number %q", ErrInvalidCurve, f)
		}
		out = append(out, v)
	}
	return out, nil
}
