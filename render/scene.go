package render

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/lixenwraith/ballz/curve"
	"github.com/lixenwraith/ballz/physics"
	"github.com/lixenwraith/ballz/vmath"
)

// BallRadiusRatio sizes balls relative to frame height (5px at 1080)
const BallRadiusRatio = 5.0 / 1080.0

// HUD is the overlay state drawn on top of the scene
type HUD struct {
	FPS       float64
	Curve     string
	Balls     int
	Bounces   int
	Speed     float64
	Paused    bool
	Recording bool
	Frame     int
	Message   string
}

// Lines returns HUD rows top to bottom
func (h HUD) Lines() []string {
	lines := []string{fmt.Sprintf("FPS: %.0f", h.FPS)}
	if h.Curve != "" {
		lines = append(lines, h.Curve)
	}
	status := fmt.Sprintf("balls: %d  bounces: %d  speed: x%.2g", h.Balls, h.Bounces, h.Speed)
	if h.Paused {
		status += "  [paused]"
	}
	lines = append(lines, status)
	if h.Recording {
		lines = append(lines, fmt.Sprintf("REC frame %d", h.Frame))
	}
	if h.Message != "" {
		lines = append(lines, h.Message)
	}
	return lines
}

// Scene draws a world through a viewport
type Scene struct {
	View       Viewport
	Velocities bool // draw a short velocity whisker per ball
}

// Draw renders the full frame including HUD
func (s *Scene) Draw(c *Canvas, w *physics.World, hud HUD) {
	s.DrawWorld(c, w)
	s.DrawHUD(c, hud)
}

// DrawWorld renders background, axes, curve and balls
func (s *Scene) DrawWorld(c *Canvas, w *physics.World) {
	c.Clear(ColorBG)
	s.drawAxes(c)
	if w == nil {
		return
	}
	if w.Curve != nil {
		s.drawCurve(c, w.Curve)
	}
	s.drawBalls(c, w.Balls)
}

func (s *Scene) drawAxes(c *Canvas) {
	v := s.View
	yExtent := v.YDim + math.Abs(v.YCenter) + 1
	xExtent := v.XDim + math.Abs(v.XCenter) + 1
	c.Line(v.MathToScreen(mgl64.Vec2{0, -yExtent}), v.MathToScreen(mgl64.Vec2{0, yExtent}), 1, ColorSecondary)
	c.Line(v.MathToScreen(mgl64.Vec2{-xExtent, 0}), v.MathToScreen(mgl64.Vec2{xExtent, 0}), 1, ColorSecondary)
}

// drawCurve samples one point per pixel column, one polyline per domain segment
func (s *Scene) drawCurve(c *Canvas, cv curve.Curve) {
	v := s.View
	halo := WithAlpha(ColorPrimary, 0.5)

	segment := make([]mgl64.Vec2, 0, v.Width+3)
	flush := func() {
		c.Polyline(segment, 1, ColorPrimary)
		c.Polyline(segment, 2, halo)
		segment = segment[:0]
	}
	for i := -1; i <= v.Width+1; i++ {
		x := v.ScreenToMathX(float64(i))
		y, ok := cv.Eval(x)
		if !ok {
			flush()
			continue
		}
		segment = append(segment, v.MathToScreen(vmath.Vec2(x, y)))
	}
	flush()
}

func (s *Scene) drawBalls(c *Canvas, balls []physics.Ball) {
	v := s.View
	r := math.Max(1.5, BallRadiusRatio*float64(v.Height))
	for i := range balls {
		b := &balls[i]
		p := v.MathToScreen(b.Pos)
		c.Circle(p, r, b.Color)
		if s.Velocities {
			tip := v.MathToScreen(b.Pos.Add(vmath.NormalizeOrZero(b.Vel).Mul(0.1)))
			c.Line(p, tip, 1, b.Color)
		}
	}
}

// DrawHUD writes the overlay in the top-left corner
func (s *Scene) DrawHUD(c *Canvas, hud HUD) {
	const lineHeight = 16
	for i, line := range hud.Lines() {
		col := ColorPrimary
		if hud.Recording && len(line) >= 3 && line[:3] == "REC" {
			col = ColorRecording
		}
		c.Text(10, 20+i*lineHeight, line, col)
	}
}
