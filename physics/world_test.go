package physics

import (
	"image/color"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/lixenwraith/ballz/curve"
)

// fastWorld uses strong gravity so tests see bounces within a few steps
func fastWorld(c curve.Curve, energy bool, workers int) *World {
	return NewWorld(c, Config{
		Gravity:          10,
		Substeps:         200,
		Tolerance:        1e-6,
		EnergyCorrection: energy,
		Workers:          workers,
	})
}

func TestNewWorldDefaults(t *testing.T) {
	w := NewWorld(curve.NewPolynomial(0), Config{})
	if w.Gravity != DefaultGravity || w.Substeps != DefaultSubsteps ||
		w.Tolerance != DefaultTolerance || w.Workers != DefaultWorkers {
		t.Errorf("defaults not applied: %+v", w)
	}
}

// TestZeroSubstepsIntegratesOnce covers a live world whose Substeps was cleared
func TestZeroSubstepsIntegratesOnce(t *testing.T) {
	w := fastWorld(curve.NewPolynomial(-100), false, 1)
	w.Substeps = 0
	w.SetBalls([]Ball{NewBall(mgl64.Vec2{0, 0}, color.RGBA{}, w.Gravity)})

	w.Step(0.1)

	// One semi-implicit Euler step: v = -g dt, y = v dt
	b := w.Balls[0]
	if math.Abs(b.Vel[1]+1) > 1e-12 || math.Abs(b.Pos[1]+0.1) > 1e-12 {
		t.Errorf("after one step pos=%v vel=%v, want y=-0.1 vy=-1", b.Pos, b.Vel)
	}
}

func TestStepWithoutBallsOrCurve(t *testing.T) {
	w := NewWorld(nil, Config{})
	if s := w.Step(1); s.Bounces != 0 {
		t.Errorf("nil curve produced bounces: %+v", s)
	}
	w.SetCurve(curve.NewPolynomial(0))
	if s := w.Step(1); s.Bounces != 0 {
		t.Errorf("empty world produced bounces: %+v", s)
	}
}

func TestFreeFall(t *testing.T) {
	w := fastWorld(curve.NewPolynomial(-100), false, 1)
	w.SetBalls([]Ball{NewBall(mgl64.Vec2{0, 0}, color.RGBA{}, w.Gravity)})

	w.Step(0.1)

	b := w.Balls[0]
	// v = -g t exactly, y ≈ -½ g t² within integration error
	if math.Abs(b.Vel[1]+1) > 1e-9 {
		t.Errorf("velocity after 0.1s = %v, want -1", b.Vel[1])
	}
	if math.Abs(b.Pos[1]+0.05) > 0.01 {
		t.Errorf("position after 0.1s = %v, want ≈ -0.05", b.Pos[1])
	}
	if b.Bounces != 0 {
		t.Errorf("unexpected bounces: %d", b.Bounces)
	}
}

func TestBounceOnFlatFloor(t *testing.T) {
	w := fastWorld(curve.NewPolynomial(0), false, 1)
	w.SetBalls([]Ball{NewBall(mgl64.Vec2{0, 1}, color.RGBA{}, w.Gravity)})

	var total int
	for range 100 {
		s := w.Step(0.01)
		total += s.Bounces
		if w.Curve.Below(w.Balls[0].Pos) {
			t.Fatalf("ball below floor at %v", w.Balls[0].Pos)
		}
	}
	if total == 0 || w.Balls[0].Bounces != total {
		t.Errorf("bounces reported %d, counted on ball %d", total, w.Balls[0].Bounces)
	}
}

func TestNoTunnelingOnLargeStep(t *testing.T) {
	w := NewWorld(curve.NewPolynomial(-1, 0, 1), Config{Gravity: 10, Substeps: 1, Tolerance: 1e-6})
	b := NewBall(mgl64.Vec2{0.3, 0.5}, color.RGBA{}, w.Gravity)
	b.Vel = mgl64.Vec2{0, -50}
	w.SetBalls([]Ball{b})

	s := w.Step(0.1) // would move 5 units straight through the curve
	if s.Bounces != 1 {
		t.Fatalf("Bounces = %d, want 1", s.Bounces)
	}
	got := w.Balls[0]
	if w.Curve.Below(got.Pos) {
		t.Errorf("tunneled to %v", got.Pos)
	}
	y, _ := w.Curve.Eval(got.Pos[0])
	if got.Pos[1]-y > 1e-3 {
		t.Errorf("stopped %v above the curve, want contact", got.Pos[1]-y)
	}
	if got.Vel.Dot(w.Curve.Normal(got.Pos[0])) <= 0 {
		t.Errorf("velocity %v still points into the curve", got.Vel)
	}
	if s.MaxImpact <= 0 {
		t.Errorf("MaxImpact = %v", s.MaxImpact)
	}
}

func TestEnergyCorrectionBoundsEnergy(t *testing.T) {
	w := fastWorld(curve.NewPolynomial(-1, 0, 1), true, 1)
	w.SetBalls(SpawnRow(10, mgl64.Vec2{-0.8, 1}, 0.05, PaletteGradient, w.Gravity))

	for range 200 {
		w.Step(0.01)
		for i := range w.Balls {
			b := &w.Balls[i]
			if e := b.Energy(w.Gravity); e > b.RefEnergy+1e-9 {
				t.Fatalf("ball %d energy %v exceeds reference %v", i, e, b.RefEnergy)
			}
			if w.Curve.Below(b.Pos) {
				t.Fatalf("ball %d below curve at %v", i, b.Pos)
			}
		}
	}
}

func TestCorrectEnergyStopsExhaustedBall(t *testing.T) {
	b := Ball{Pos: mgl64.Vec2{0, 2}, Vel: mgl64.Vec2{1, 1}, RefEnergy: 10}
	if b.correctEnergy(10) {
		t.Error("correctEnergy reported energy left above reference height")
	}
	if b.Vel != (mgl64.Vec2{}) {
		t.Errorf("velocity not zeroed: %v", b.Vel)
	}

	b = Ball{Pos: mgl64.Vec2{0, 0}, Vel: mgl64.Vec2{3, 4}, RefEnergy: 2}
	if !b.correctEnergy(10) {
		t.Fatal("correctEnergy stopped a ball with energy left")
	}
	if math.Abs(b.Vel.Len()-2) > 1e-12 {
		t.Errorf("speed = %v, want 2", b.Vel.Len())
	}
	if math.Abs(b.Vel[0]/b.Vel[1]-0.75) > 1e-12 {
		t.Errorf("direction changed: %v", b.Vel)
	}
}

func TestWorkersMatchSequential(t *testing.T) {
	balls := SpawnRow(37, mgl64.Vec2{-0.8, 1}, 0.04, PaletteHSV, 10)

	seq := fastWorld(curve.NewPolynomial(-1, 0, 1), true, 1)
	seq.SetBalls(append([]Ball(nil), balls...))
	par := fastWorld(curve.NewPolynomial(-1, 0, 1), true, 4)
	par.SetBalls(append([]Ball(nil), balls...))

	for range 50 {
		a := seq.Step(0.01)
		b := par.Step(0.01)
		if a != b {
			t.Fatalf("stats differ: sequential %+v parallel %+v", a, b)
		}
	}
	for i := range seq.Balls {
		if seq.Balls[i] != par.Balls[i] {
			t.Fatalf("ball %d differs: %+v vs %+v", i, seq.Balls[i], par.Balls[i])
		}
	}
}

func TestLiftAfterCurveChange(t *testing.T) {
	w := fastWorld(curve.NewPolynomial(-1), false, 1)
	b := NewBall(mgl64.Vec2{0, 0}, color.RGBA{}, w.Gravity)
	b.Vel = mgl64.Vec2{0, -1}
	w.SetBalls([]Ball{b})

	// Raise the floor above the ball
	w.SetCurve(curve.NewPolynomial(0.5))
	w.Step(0.001)

	got := w.Balls[0]
	if w.Curve.Below(got.Pos) {
		t.Errorf("ball left under raised floor at %v", got.Pos)
	}
	if got.Vel[1] <= 0 {
		t.Errorf("inward velocity not reflected: %v", got.Vel)
	}
}

// TestLiftKeepsReferenceEnergy raises the floor under a falling ball with
// correction on; the lift must not add the height it gained as energy
func TestLiftKeepsReferenceEnergy(t *testing.T) {
	w := fastWorld(curve.NewPolynomial(-1, 0, 1), true, 1)
	b := NewBall(mgl64.Vec2{0, 1}, color.RGBA{}, w.Gravity)
	// Same energy, now low in the parabola and falling
	b.Pos = mgl64.Vec2{0, -0.9}
	b.Vel = mgl64.Vec2{0, -math.Sqrt(2 * w.Gravity * 1.9)}
	w.SetBalls([]Ball{b})
	ref := b.RefEnergy

	w.SetCurve(curve.NewPolynomial(0.9))
	s := w.Step(0.001)

	got := &w.Balls[0]
	if s.Bounces == 0 || got.Bounces == 0 {
		t.Fatalf("lift not counted as a bounce: %+v", s)
	}
	if got.RefEnergy != ref {
		t.Errorf("reference moved to %v, want %v", got.RefEnergy, ref)
	}
	for range 100 {
		if e := got.Energy(w.Gravity); e > ref+1e-9 {
			t.Fatalf("energy %v exceeds reference %v at %v", e, ref, got.Pos)
		}
		if got.Pos[1] > 1+1e-6 {
			t.Fatalf("ball rose to %v above its release height", got.Pos[1])
		}
		w.Step(0.01)
	}
}

// TestLiftAboveReleaseHeight lifts a resting ball above where it started
func TestLiftAboveReleaseHeight(t *testing.T) {
	w := fastWorld(curve.NewPolynomial(-1), true, 1)
	w.SetBalls([]Ball{NewBall(mgl64.Vec2{0, 0}, color.RGBA{}, w.Gravity)})

	w.SetCurve(curve.NewPolynomial(0.5))
	w.Step(0.01)

	got := w.Balls[0]
	if w.Curve.Below(got.Pos) {
		t.Fatalf("ball left under raised floor at %v", got.Pos)
	}
	if want := w.Gravity * 0.5; got.RefEnergy != want {
		t.Errorf("reference %v, want surface potential %v", got.RefEnergy, want)
	}
	if e := got.Energy(w.Gravity); e > got.RefEnergy+1e-9 {
		t.Errorf("energy %v exceeds reference %v", e, got.RefEnergy)
	}
}

func TestSemicircleRimExit(t *testing.T) {
	// Outside the bowl there is no surface, ball falls freely
	w := fastWorld(curve.NewSemicircle(0, 0, 1, false), false, 1)
	w.SetBalls([]Ball{NewBall(mgl64.Vec2{2, 0}, color.RGBA{}, w.Gravity)})
	s := w.Step(0.5)
	if s.Bounces != 0 {
		t.Errorf("bounced outside the bowl: %+v", s)
	}
	if w.Balls[0].Pos[1] >= 0 {
		t.Errorf("ball did not fall: %v", w.Balls[0].Pos)
	}
}

func TestResetAndAddBall(t *testing.T) {
	w := fastWorld(curve.NewPolynomial(-1, 0, 1), false, 1)
	w.SetBalls(SpawnRow(3, mgl64.Vec2{0, 1}, 0.1, PaletteGradient, w.Gravity))
	w.Step(0.1)
	w.AddBall(mgl64.Vec2{0.5, 0.5}, color.RGBA{R: 1})
	if len(w.Balls) != 4 {
		t.Fatalf("AddBall: %d balls", len(w.Balls))
	}

	w.Reset()
	if len(w.Balls) != 3 {
		t.Fatalf("Reset: %d balls, want 3", len(w.Balls))
	}
	if w.Balls[0].Pos != (mgl64.Vec2{0, 1}) || w.Balls[0].Vel != (mgl64.Vec2{}) {
		t.Errorf("Reset did not restore first ball: %+v", w.Balls[0])
	}
}

func TestSpawnRow(t *testing.T) {
	balls := SpawnRow(100, mgl64.Vec2{-0.8, 1}, 0.005, PaletteGradient, DefaultGravity)
	if len(balls) != 100 {
		t.Fatalf("len = %d", len(balls))
	}
	last := balls[99]
	if math.Abs(last.Pos[0]-(-0.8+0.495)) > 1e-12 || last.Pos[1] != 1 {
		t.Errorf("last ball at %v", last.Pos)
	}
	if c := balls[0].Color; c != (color.RGBA{255, 155, 0, 255}) {
		t.Errorf("first color %v", c)
	}
	if c := last.Color; c != (color.RGBA{156, 254, 0, 255}) {
		t.Errorf("last color %v", c)
	}
	if math.Abs(last.RefEnergy-DefaultGravity) > 1e-12 {
		t.Errorf("RefEnergy = %v, want g·1", last.RefEnergy)
	}
	if SpawnRow(-1, mgl64.Vec2{}, 0, "", 1) == nil {
		t.Error("negative count should yield an empty slice")
	}
}

func TestRowColorHSV(t *testing.T) {
	first := RowColor(0, 10, PaletteHSV)
	if first.R != 255 || first.A != 255 {
		t.Errorf("hue 0 should be red-dominant: %v", first)
	}
	if RowColor(0, 1, PaletteHSV) != first {
		t.Error("single-ball row should start at hue 0")
	}
}
