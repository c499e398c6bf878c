package physics

import (
	"image/color"
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/sync/errgroup"

	"github.com/lixenwraith/ballz/curve"
	"github.com/lixenwraith/ballz/vmath"
)

const (
	DefaultGravity   = 0.01
	DefaultSubsteps  = 1000
	DefaultTolerance = 0.001
	DefaultWorkers   = 1
)

// Config describes a world; zero fields fall back to defaults in NewWorld,
// so Substeps 0 means DefaultSubsteps. A World whose Substeps is later set
// to zero or less integrates one substep per Step.
type Config struct {
	Gravity          float64
	Substeps         int
	Tolerance        float64
	EnergyCorrection bool
	Workers          int
}

// StepStats summarizes collisions during one Step
type StepStats struct {
	Bounces   int
	MaxImpact float64 // largest normal speed at impact
}

// World integrates independent balls against one curve
type World struct {
	Curve            curve.Curve
	Gravity          float64
	Substeps         int
	Tolerance        float64
	EnergyCorrection bool
	Workers          int

	Balls   []Ball
	initial []Ball
}

// NewWorld creates an empty world over c
func NewWorld(c curve.Curve, cfg Config) *World {
	w := &World{
		Curve:            c,
		Gravity:          cfg.Gravity,
		Substeps:         cfg.Substeps,
		Tolerance:        cfg.Tolerance,
		EnergyCorrection: cfg.EnergyCorrection,
		Workers:          cfg.Workers,
	}
	if w.Gravity == 0 {
		w.Gravity = DefaultGravity
	}
	if w.Substeps <= 0 {
		w.Substeps = DefaultSubsteps
	}
	if w.Tolerance <= 0 {
		w.Tolerance = DefaultTolerance
	}
	w.Workers = max(DefaultWorkers, w.Workers)
	return w
}

// SetBalls replaces the balls and remembers them for Reset
func (w *World) SetBalls(balls []Ball) {
	w.initial = make([]Ball, len(balls))
	copy(w.initial, balls)
	w.Balls = balls
}

// Reset restores the balls given to the last SetBalls
func (w *World) Reset() {
	w.Balls = make([]Ball, len(w.initial))
	copy(w.Balls, w.initial)
}

// AddBall drops a ball at rest at p
func (w *World) AddBall(p mgl64.Vec2, c color.RGBA) {
	w.Balls = append(w.Balls, NewBall(p, c, w.Gravity))
}

// SetCurve swaps the boundary; balls left below it are lifted on the next step
func (w *World) SetCurve(c curve.Curve) {
	w.Curve = c
}

// Step advances all balls by dt split into Substeps
func (w *World) Step(dt float64) StepStats {
	if w.Curve == nil || len(w.Balls) == 0 {
		return StepStats{}
	}
	h := dt / float64(max(1, w.Substeps))

	workers := min(max(DefaultWorkers, w.Workers), len(w.Balls))
	if workers == 1 {
		var stats StepStats
		for i := range w.Balls {
			stats.merge(w.integrate(&w.Balls[i], h))
		}
		return stats
	}

	// Balls are independent, chunked across workers
	var (
		mu    sync.Mutex
		stats StepStats
		g     errgroup.Group
	)
	chunk := (len(w.Balls) + workers - 1) / workers
	for start := 0; start < len(w.Balls); start += chunk {
		end := min(start+chunk, len(w.Balls))
		g.Go(func() error {
			var local StepStats
			for i := start; i < end; i++ {
				local.merge(w.integrate(&w.Balls[i], h))
			}
			mu.Lock()
			stats.merge(local)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return stats
}

// integrate runs all substeps for one ball
func (w *World) integrate(b *Ball, h float64) StepStats {
	var stats StepStats
	for range max(1, w.Substeps) {
		if impact, hit := w.substep(b, h); hit {
			stats.Bounces++
			stats.MaxImpact = math.Max(stats.MaxImpact, impact)
		}
	}
	return stats
}

// substep advances one ball by h, resolving at most one curve crossing
func (w *World) substep(b *Ball, h float64) (impact float64, hit bool) {
	c := w.Curve

	if c.Below(b.Pos) {
		return w.lift(b)
	}

	b.Vel[1] -= w.Gravity * h

	next := b.Pos.Add(b.Vel.Mul(h))
	if !c.Below(next) {
		b.Pos = next
		return 0, false
	}

	// Time of impact as a fraction of the step
	origin, vel := b.Pos, b.Vel
	t := vmath.Bisect(0, 1, w.Tolerance, func(t float64) bool {
		return c.Below(origin.Add(vel.Mul(h * t)))
	})
	b.Pos = origin.Add(vel.Mul(h * t))

	n := c.Normal(b.Pos[0])
	impact = math.Abs(b.Vel.Dot(n))
	b.Vel = vmath.Reflect(b.Vel, n)
	b.Bounces++

	if w.EnergyCorrection {
		b.correctEnergy(w.Gravity)
	}
	return impact, true
}

// lift moves a ball that ended up under the curve back onto it.
// With energy correction the ball keeps its reference energy; a surface
// raised above that level leaves the ball at rest on it and becomes the
// new reference.
func (w *World) lift(b *Ball) (float64, bool) {
	y, ok := w.Curve.Eval(b.Pos[0])
	if !ok {
		return 0, false
	}
	b.Pos[1] = y
	n := w.Curve.Normal(b.Pos[0])
	vn := b.Vel.Dot(n)
	if vn < 0 {
		b.Vel = vmath.Reflect(b.Vel, n)
		b.Bounces++
	}

	if w.EnergyCorrection {
		b.RefEnergy = math.Max(b.RefEnergy, w.Gravity*y)
		b.correctEnergy(w.Gravity)
	}
	if vn >= 0 {
		return 0, false
	}
	return -vn, true
}

func (s *StepStats) merge(o StepStats) {
	s.Bounces += o.Bounces
	s.MaxImpact = math.Max(s.MaxImpact, o.MaxImpact)
}
