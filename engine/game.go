// Package engine drives the simulation: it steps the world, draws frames,
// forwards them to the terminal and the encoder, and reacts to input.
package engine

import (
	"errors"
	"fmt"
	"image"
	"math"
	"slices"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"github.com/lixenwraith/ballz/audio"
	"github.com/lixenwraith/ballz/config"
	"github.com/lixenwraith/ballz/curve"
	"github.com/lixenwraith/ballz/physics"
	"github.com/lixenwraith/ballz/render"
	"github.com/lixenwraith/ballz/video"
	"github.com/lixenwraith/ballz/vmath"
)

// Time scale limits for the +/- keys
const (
	minSpeed = 1.0 / 16
	maxSpeed = 16.0
)

// Game owns one simulation and everything that observes it.
// It is not safe for concurrent use; Run and Render serialize all access.
type Game struct {
	cfg *config.Config
	log *zap.Logger

	world    *physics.World
	timeStep float64
	speed    float64
	paused   bool

	presets   []curve.Preset
	presetIdx int // -1 while the configured curve is shown
	curveName string

	// Offscreen frame at the configured window size, fed to the encoder
	frame      *render.Canvas
	frameScene render.Scene

	encoder video.Encoder
	frames  int
	sound   *audio.SoundManager

	fps     float64
	bounces int
	message string
}

// New builds a game from cfg. The config is not retained by reference.
func New(cfg *config.Config, log *zap.Logger) (*Game, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c, err := cfg.Curve.BuildCurve()
	if err != nil {
		return nil, err
	}

	local := *cfg
	g := &Game{
		cfg:       &local,
		log:       log.Named("engine"),
		world:     physics.NewWorld(c, cfg.Physics.WorldConfig()),
		timeStep:  cfg.Physics.TimeStep,
		speed:     1,
		presets:   curve.Presets(),
		presetIdx: -1,
		curveName: c.String(),
		frame:     render.NewCanvas(cfg.Window.Width, cfg.Window.Height),
		fps:       float64(cfg.Window.FPS),
	}
	g.frameScene = render.Scene{
		View:       viewFor(cfg.View, cfg.Window.Width, cfg.Window.Height),
		Velocities: cfg.View.Velocities,
	}
	g.spawn()

	g.log.Info("game created",
		zap.String("curve", g.curveName),
		zap.Int("balls", len(g.world.Balls)),
		zap.Float64("gravity", g.world.Gravity),
		zap.Int("substeps", g.world.Substeps),
		zap.Int("workers", g.world.Workers))
	return g, nil
}

// SetEncoder starts recording into enc; the game closes it when the
// duration is reached or on Close
func (g *Game) SetEncoder(enc video.Encoder) {
	g.encoder = enc
	g.frames = 0
}

// SetSound attaches bounce feedback
func (g *Game) SetSound(sm *audio.SoundManager) {
	g.sound = sm
}

// World exposes the simulated world
func (g *Game) World() *physics.World {
	return g.world
}

// Recording reports whether frames are still being encoded
func (g *Game) Recording() bool {
	return g.encoder != nil
}

// Frame is the last offscreen frame drawn at window size
func (g *Game) Frame() *image.RGBA {
	return g.frame.Image()
}

// ApplyConfig swaps in a reloaded config. Balls are respawned only when
// the ball row or gravity changed, so reference energies stay consistent.
func (g *Game) ApplyConfig(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	c, err := cfg.Curve.BuildCurve()
	if err != nil {
		return err
	}

	local := *cfg
	respawn := local.Physics.Gravity != g.cfg.Physics.Gravity || !sameBalls(local.Balls, g.cfg.Balls)
	resize := local.Window != g.cfg.Window
	if resize && g.encoder != nil {
		// Encoder frame size is fixed for the whole recording
		resize = false
		local.Window = g.cfg.Window
		g.log.Warn("window change ignored while recording")
	}
	g.cfg = &local
	cfg = &local

	wc := cfg.Physics.WorldConfig()
	g.world.Gravity = wc.Gravity
	g.world.Substeps = wc.Substeps
	g.world.Tolerance = wc.Tolerance
	g.world.EnergyCorrection = wc.EnergyCorrection
	g.world.Workers = max(physics.DefaultWorkers, wc.Workers)
	g.world.SetCurve(c)
	g.timeStep = cfg.Physics.TimeStep
	g.presetIdx = -1
	g.curveName = c.String()

	if resize {
		g.frame.Resize(cfg.Window.Width, cfg.Window.Height)
	}
	g.frameScene.View = viewFor(cfg.View, cfg.Window.Width, cfg.Window.Height)
	g.frameScene.Velocities = cfg.View.Velocities

	if g.sound != nil {
		g.sound.SetVolume(cfg.Audio.Volume)
	}
	if respawn {
		g.spawn()
	}

	g.message = "config reloaded"
	g.log.Info("config applied", zap.String("curve", g.curveName), zap.Bool("respawn", respawn))
	return nil
}

// Close stops recording and flushes the encoder
func (g *Game) Close() error {
	return g.stopRecording()
}

func (g *Game) spawn() {
	b := g.cfg.Balls
	start := mgl64.Vec2{b.Start[0], b.Start[1]}
	g.world.SetBalls(physics.SpawnRow(b.Count, start, b.Shift, b.Palette, g.world.Gravity))
	g.bounces = 0
}

// step advances the simulation by one frame
func (g *Game) step() physics.StepStats {
	if g.paused {
		return physics.StepStats{}
	}
	stats := g.world.Step(g.timeStep * g.speed)
	g.bounces += stats.Bounces

	if stats.Bounces > 0 && g.sound != nil {
		g.sound.PlayBounce(g.impactIntensity(stats.MaxImpact))
	}
	return stats
}

// impactIntensity normalizes an impact speed by the speed gained falling
// the full view height
func (g *Game) impactIntensity(v float64) float64 {
	ref := math.Sqrt(2 * g.world.Gravity * g.cfg.View.YDim)
	if ref <= 0 {
		return 0
	}
	return math.Min(v/ref, 1)
}

func (g *Game) hud() render.HUD {
	return render.HUD{
		FPS:       g.fps,
		Curve:     g.curveName,
		Balls:     len(g.world.Balls),
		Bounces:   g.bounces,
		Speed:     g.speed,
		Paused:    g.paused,
		Recording: g.encoder != nil,
		Frame:     g.frames,
		Message:   g.message,
	}
}

// record draws the window-size frame and hands it to the encoder
func (g *Game) record() error {
	if g.encoder == nil {
		return nil
	}
	g.frameScene.Draw(g.frame, g.world, g.hud())
	more, err := g.encoder.WriteFrame(g.frame.Image())
	if err != nil {
		return errors.Join(fmt.Errorf("record frame %d: %w", g.frames, err), g.stopRecording())
	}
	g.frames++
	if !more {
		g.log.Info("recording duration reached", zap.Int("frames", g.frames))
		g.message = fmt.Sprintf("recorded %d frames", g.frames)
		return g.stopRecording()
	}
	return nil
}

func (g *Game) stopRecording() error {
	if g.encoder == nil {
		return nil
	}
	enc := g.encoder
	g.encoder = nil
	if err := enc.Close(); err != nil {
		g.log.Error("encoder close failed", zap.Error(err))
		return fmt.Errorf("close encoder: %w", err)
	}
	g.log.Info("recording finished", zap.Int("frames", g.frames))
	return nil
}

// nextCurve cycles through the presets
func (g *Game) nextCurve() {
	g.presetIdx = (g.presetIdx + 1) % len(g.presets)
	p := g.presets[g.presetIdx]
	g.world.SetCurve(p.Curve)
	g.curveName = p.Curve.String()
	g.message = "curve: " + p.Name
	g.log.Debug("curve preset", zap.String("name", p.Name))
}

func (g *Game) scaleSpeed(f float64) {
	g.speed = vmath.Clamp(g.speed*f, minSpeed, maxSpeed)
	g.message = fmt.Sprintf("speed x%.2g", g.speed)
}

func viewFor(v config.ViewConfig, width, height int) render.Viewport {
	return render.Viewport{
		XDim:    v.XDim,
		YDim:    v.YDim,
		XCenter: v.XCenter,
		YCenter: v.YCenter,
		Width:   width,
		Height:  height,
	}
}

func sameBalls(a, b config.BallsConfig) bool {
	return a.Count == b.Count && a.Shift == b.Shift && a.Palette == b.Palette && slices.Equal(a.Start, b.Start)
}
