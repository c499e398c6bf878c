package engine

import (
	"context"
	"errors"
	"image/color"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"github.com/lixenwraith/ballz/config"
	"github.com/lixenwraith/ballz/render"
	"github.com/lixenwraith/ballz/vmath"
)

// frameInterval is the interactive tick, ~60 FPS
const frameInterval = 16 * time.Millisecond

// fpsSmoothing weights the newest frame in the FPS moving average
const fpsSmoothing = 0.1

// terminal is the interactive view: the screen plus a canvas sized to it
type terminal struct {
	screen   tcell.Screen
	renderer *render.TerminalRenderer
	canvas   *render.Canvas
	scene    render.Scene

	mouseDown bool
}

func (g *Game) newTerminal(screen tcell.Screen) *terminal {
	t := &terminal{
		screen:   screen,
		renderer: render.NewTerminalRenderer(screen),
	}
	w, h := t.renderer.PixelSize()
	t.canvas = render.NewCanvas(max(w, 1), max(h, 1))
	t.scene = render.Scene{View: viewFor(g.cfg.View, w, h), Velocities: g.cfg.View.Velocities}
	return t
}

func (t *terminal) resize(g *Game) {
	t.renderer.Resize()
	w, h := t.renderer.PixelSize()
	t.canvas.Resize(max(w, 1), max(h, 1))
	t.scene.View = viewFor(g.cfg.View, w, h)
	t.screen.Sync()
}

// Run is the interactive loop. It returns when the user quits or ctx is
// cancelled; updates may be nil. The caller owns the screen.
func (g *Game) Run(ctx context.Context, screen tcell.Screen, updates <-chan *config.Config) error {
	screen.EnableMouse()
	defer screen.DisableMouse()

	term := g.newTerminal(screen)

	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	done := make(chan struct{})
	defer close(done)

	eventChan := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case eventChan <- ev:
			case <-done:
				return
			}
		}
	}()

	g.log.Info("interactive loop started")
	last := time.Now()
	var errs []error

	for {
		select {
		case <-ctx.Done():
			g.log.Info("context cancelled")
			return errors.Join(append(errs, g.stopRecording())...)

		case ev := <-eventChan:
			if !g.handleEvent(ev, term) {
				g.log.Info("quit requested")
				return errors.Join(append(errs, g.stopRecording())...)
			}

		case cfg, ok := <-updates:
			if !ok {
				updates = nil
				continue
			}
			if err := g.ApplyConfig(cfg); err != nil {
				g.log.Warn("config rejected", zap.Error(err))
				g.message = "config rejected"
				continue
			}
			term.scene.View = viewFor(g.cfg.View, term.scene.View.Width, term.scene.View.Height)
			term.scene.Velocities = g.cfg.View.Velocities

		case now := <-ticker.C:
			g.trackFPS(now.Sub(last))
			last = now

			g.step()
			if err := g.record(); err != nil {
				g.log.Error("recording stopped", zap.Error(err))
				g.message = "recording failed"
				errs = append(errs, err)
			}
			g.present(term)
		}
	}
}

func (g *Game) trackFPS(elapsed time.Duration) {
	if elapsed <= 0 {
		return
	}
	g.fps = vmath.Lerp(g.fps, 1/elapsed.Seconds(), fpsSmoothing)
}

func (g *Game) present(t *terminal) {
	t.scene.Velocities = g.frameScene.Velocities
	t.scene.DrawWorld(t.canvas, g.world)

	hud := g.hud()
	lines := hud.Lines()
	highlight := map[int]color.RGBA{}
	if hud.Recording {
		for i, line := range lines {
			if len(line) >= 3 && line[:3] == "REC" {
				highlight[i] = render.ColorRecording
			}
		}
	}
	t.renderer.RenderFrame(t.canvas.Image(), lines, highlight)
}

// handleEvent applies one input event, returns false to quit
func (g *Game) handleEvent(ev tcell.Event, t *terminal) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		return g.handleKey(ev)

	case *tcell.EventMouse:
		pressed := ev.Buttons()&tcell.Button1 != 0
		if pressed && !t.mouseDown {
			x, y := ev.Position()
			g.spawnAt(t.scene.View, x, y)
		}
		t.mouseDown = pressed

	case *tcell.EventResize:
		t.resize(g)
	}
	return true
}

func (g *Game) handleKey(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return false
	case tcell.KeyRune:
	default:
		return true
	}

	switch ev.Rune() {
	case 'q', 'Q':
		return false
	case ' ':
		g.paused = !g.paused
		g.message = ""
	case 'r', 'R':
		g.world.Reset()
		g.bounces = 0
		g.message = "reset"
	case 'c', 'C':
		g.nextCurve()
	case '+', '=':
		g.scaleSpeed(2)
	case '-', '_':
		g.scaleSpeed(0.5)
	case 'v', 'V':
		g.frameScene.Velocities = !g.frameScene.Velocities
		g.cfg.View.Velocities = g.frameScene.Velocities
	case 'm', 'M':
		if g.sound == nil {
			g.message = "audio unavailable"
		} else if g.sound.ToggleMute() {
			g.message = "sound on"
		} else {
			g.message = "muted"
		}
	}
	return true
}

// spawnAt drops a ball at the centre of terminal cell (col, row)
func (g *Game) spawnAt(view render.Viewport, col, row int) {
	px := mgl64.Vec2{float64(col) + 0.5, float64(row)*2 + 1}
	p := view.ScreenToMath(px)
	n := len(g.world.Balls)
	g.world.AddBall(p, render.HSV(float64(n*37%360), 0.8, 1))
	g.message = "ball added"
	g.log.Debug("ball added", zap.Float64("x", p[0]), zap.Float64("y", p[1]))
}
