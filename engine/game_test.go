package engine

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/lixenwraith/ballz/config"
	"github.com/lixenwraith/ballz/video"
)

// fakeEncoder accepts limit frames then reports the duration reached
type fakeEncoder struct {
	limit    int
	frames   int
	size     image.Point
	closed   int
	writeErr error
	closeErr error
}

func (f *fakeEncoder) WriteFrame(img *image.RGBA) (bool, error) {
	if f.closed > 0 {
		return false, video.ErrClosed
	}
	if f.writeErr != nil {
		return false, f.writeErr
	}
	f.frames++
	f.size = img.Bounds().Size()
	return f.limit <= 0 || f.frames < f.limit, nil
}

func (f *fakeEncoder) Close() error {
	f.closed++
	return f.closeErr
}

// testConfig is a small, fast scene
func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Window.Width, cfg.Window.Height = 64, 48
	cfg.Balls.Count = 10
	cfg.Physics.Substeps = 20
	cfg.Audio.Enabled = false
	return cfg
}

func newTestGame(t *testing.T) *Game {
	t.Helper()
	g, err := New(testConfig(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return g
}

func newSimScreen(t *testing.T) tcell.SimulationScreen {
	t.Helper()
	s := tcell.NewSimulationScreen("UTF-8")
	if err := s.Init(); err != nil {
		t.Fatalf("screen init: %v", err)
	}
	s.SetSize(40, 20)
	t.Cleanup(s.Fini)
	return s
}

func key(r rune) *tcell.EventKey {
	return tcell.NewEventKey(tcell.KeyRune, r, tcell.ModNone)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Physics.Substeps = 0
	if _, err := New(cfg, nil); !errors.Is(err, config.ErrInvalidConfig) {
		t.Errorf("New = %v, want ErrInvalidConfig", err)
	}
}

func TestNewSpawnsRow(t *testing.T) {
	g := newTestGame(t)
	if n := len(g.World().Balls); n != 10 {
		t.Fatalf("balls = %d", n)
	}
	if g.curveName != "y = x^2 - 1" {
		t.Errorf("curve name %q", g.curveName)
	}
	if g.Recording() {
		t.Error("recording without an encoder")
	}
}

// TestStepRespectsPause verifies the world only moves while unpaused
func TestStepRespectsPause(t *testing.T) {
	g := newTestGame(t)
	y0 := g.World().Balls[0].Pos[1]

	g.handleKey(key(' '))
	g.step()
	if g.World().Balls[0].Pos[1] != y0 {
		t.Fatal("paused game moved")
	}

	g.handleKey(key(' '))
	g.step()
	if g.World().Balls[0].Pos[1] >= y0 {
		t.Error("ball did not fall after unpausing")
	}
}

func TestKeys(t *testing.T) {
	g := newTestGame(t)

	for _, quit := range []*tcell.EventKey{
		key('q'),
		tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone),
		tcell.NewEventKey(tcell.KeyCtrlC, 0, tcell.ModNone),
	} {
		if g.handleKey(quit) {
			t.Errorf("key %v did not quit", quit.Name())
		}
	}

	g.handleKey(key('c'))
	if g.message != "curve: parabola" || g.World().Curve != g.presets[0].Curve {
		t.Errorf("first preset not applied, message %q", g.message)
	}
	if g.presetIdx != 0 {
		t.Errorf("preset index %d", g.presetIdx)
	}
	for range len(g.presets) {
		g.handleKey(key('c'))
	}
	if g.presetIdx != 0 {
		t.Errorf("preset cycle did not wrap, index %d", g.presetIdx)
	}

	for range 10 {
		g.handleKey(key('+'))
	}
	if g.speed != maxSpeed {
		t.Errorf("speed %v, want clamp at %v", g.speed, maxSpeed)
	}
	for range 20 {
		g.handleKey(key('-'))
	}
	if g.speed != minSpeed {
		t.Errorf("speed %v, want clamp at %v", g.speed, minSpeed)
	}

	g.handleKey(key('v'))
	if !g.frameScene.Velocities {
		t.Error("velocity whiskers not enabled")
	}

	g.handleKey(key('m'))
	if g.message != "audio unavailable" {
		t.Errorf("mute without audio message %q", g.message)
	}
}

func TestResetKeyRestoresRow(t *testing.T) {
	g := newTestGame(t)
	start := g.World().Balls[3].Pos
	for range 5 {
		g.step()
	}
	g.World().AddBall(start, g.World().Balls[0].Color)

	g.handleKey(key('r'))
	if n := len(g.World().Balls); n != 10 {
		t.Errorf("balls after reset = %d", n)
	}
	if g.World().Balls[3].Pos != start || g.bounces != 0 {
		t.Error("reset did not restore the initial row")
	}
}

// TestMouseClickSpawnsOnce verifies a held button adds a single ball
func TestMouseClickSpawnsOnce(t *testing.T) {
	g := newTestGame(t)
	term := g.newTerminal(newSimScreen(t))

	// Centre cell of a 40×20 terminal maps near the math origin
	down := tcell.NewEventMouse(20, 10, tcell.Button1, tcell.ModNone)
	g.handleEvent(down, term)
	g.handleEvent(down, term)
	g.handleEvent(tcell.NewEventMouse(20, 10, tcell.ButtonNone, tcell.ModNone), term)

	balls := g.World().Balls
	if len(balls) != 11 {
		t.Fatalf("balls = %d, want 11", len(balls))
	}
	p := balls[10].Pos
	if p[0] < 0 || p[0] > 0.1 || p[1] > 0 || p[1] < -0.2 {
		t.Errorf("spawned at %v, want just right of and below the origin", p)
	}
	if balls[10].Vel.Len() != 0 {
		t.Error("spawned ball is moving")
	}
}

func TestRenderWritesUntilDuration(t *testing.T) {
	g := newTestGame(t)
	enc := &fakeEncoder{limit: 5}
	g.SetEncoder(enc)

	if err := g.Render(context.Background()); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if enc.frames != 5 || g.frames != 5 {
		t.Errorf("frames encoder=%d game=%d, want 5", enc.frames, g.frames)
	}
	if enc.size != (image.Point{64, 48}) {
		t.Errorf("frame size %v", enc.size)
	}
	if enc.closed != 1 || g.Recording() {
		t.Errorf("encoder closed %d times, recording=%v", enc.closed, g.Recording())
	}
	if err := g.Close(); err != nil || enc.closed != 1 {
		t.Errorf("Close after finish = %v, closed %d", err, enc.closed)
	}
}

func TestRenderWithoutEncoder(t *testing.T) {
	if err := newTestGame(t).Render(context.Background()); !errors.Is(err, ErrNoEncoder) {
		t.Errorf("Render = %v, want ErrNoEncoder", err)
	}
}

func TestRenderCancelled(t *testing.T) {
	g := newTestGame(t)
	enc := &fakeEncoder{}
	g.SetEncoder(enc)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := g.Render(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Render = %v, want context.Canceled", err)
	}
	if enc.closed != 1 {
		t.Error("encoder not flushed on cancel")
	}
}

func TestRenderWriteFailure(t *testing.T) {
	g := newTestGame(t)
	boom := errors.New("disk full")
	enc := &fakeEncoder{writeErr: boom}
	g.SetEncoder(enc)

	if err := g.Render(context.Background()); !errors.Is(err, boom) {
		t.Errorf("Render = %v, want write error", err)
	}
	if enc.closed != 1 || g.Recording() {
		t.Error("encoder not released after failure")
	}
}

func TestApplyConfig(t *testing.T) {
	g := newTestGame(t)
	g.step()
	moved := g.World().Balls[0].Pos

	// Curve change alone keeps the balls in flight
	cfg := testConfig()
	cfg.Curve.Spec = "semicircle:0,0,1"
	if err := g.ApplyConfig(cfg); err != nil {
		t.Fatalf("ApplyConfig: %v", err)
	}
	if g.World().Balls[0].Pos != moved {
		t.Error("curve change respawned balls")
	}
	if g.curveName != g.World().Curve.String() {
		t.Errorf("curve name %q", g.curveName)
	}

	cfg = testConfig()
	cfg.Balls.Count = 4
	cfg.Physics.Substeps = 7
	if err := g.ApplyConfig(cfg); err != nil {
		t.Fatal(err)
	}
	if len(g.World().Balls) != 4 || g.World().Substeps != 7 {
		t.Errorf("balls=%d substeps=%d", len(g.World().Balls), g.World().Substeps)
	}

	bad := testConfig()
	bad.View.XDim = -1
	if err := g.ApplyConfig(bad); !errors.Is(err, config.ErrInvalidConfig) {
		t.Errorf("ApplyConfig(bad) = %v", err)
	}
	if g.cfg.View.XDim != 3 {
		t.Error("rejected config was applied")
	}
}

func TestApplyConfigKeepsFrameSizeWhileRecording(t *testing.T) {
	g := newTestGame(t)
	enc := &fakeEncoder{}
	g.SetEncoder(enc)

	cfg := testConfig()
	cfg.Window.Width = 128
	if err := g.ApplyConfig(cfg); err != nil {
		t.Fatal(err)
	}
	if err := g.record(); err != nil {
		t.Fatal(err)
	}
	if enc.size.X != 64 {
		t.Errorf("frame width %d changed mid-recording", enc.size.X)
	}
	if err := g.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestRunQuitsOnKey(t *testing.T) {
	g := newTestGame(t)
	screen := newSimScreen(t)

	updates := make(chan *config.Config, 1)
	reload := testConfig()
	reload.Curve.Spec = "dome"
	updates <- reload

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	go func() {
		time.Sleep(100 * time.Millisecond)
		screen.InjectKey(tcell.KeyRune, 'q', tcell.ModNone)
	}()

	if err := g.Run(ctx, screen, updates); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if ctx.Err() != nil {
		t.Fatal("Run only returned on timeout")
	}
	dome, err := reload.Curve.BuildCurve()
	if err != nil {
		t.Fatal(err)
	}
	if g.curveName != dome.String() {
		t.Errorf("reload not applied, curve %q", g.curveName)
	}

	// Half-block cells were drawn
	cells, w, _ := screen.GetContents()
	if w != 40 || len(cells) == 0 {
		t.Fatalf("screen contents %d cells width %d", len(cells), w)
	}
	found := false
	for _, c := range cells {
		if len(c.Runes) > 0 && c.Runes[0] == '▀' {
			found = true
			break
		}
	}
	if !found {
		t.Error("no half-block cells drawn")
	}
}

func TestRunStopsOnContext(t *testing.T) {
	g := newTestGame(t)
	enc := &fakeEncoder{}
	g.SetEncoder(enc)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := g.Run(ctx, newSimScreen(t), nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if enc.closed != 1 {
		t.Error("recording not flushed on exit")
	}
	if enc.frames == 0 {
		t.Error("no frames recorded while running")
	}
}

func TestTrackFPS(t *testing.T) {
	g := newTestGame(t)
	g.fps = 0
	for range 200 {
		g.trackFPS(20 * time.Millisecond)
	}
	if g.fps < 49 || g.fps > 51 {
		t.Errorf("fps = %v, want ~50", g.fps)
	}
	g.trackFPS(0)
}
