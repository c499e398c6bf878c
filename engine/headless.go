package engine

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ErrNoEncoder is returned by Render when no encoder was attached
var ErrNoEncoder = errors.New("render requires an encoder")

// Render runs the simulation offscreen as fast as the encoder accepts
// frames, one world step per frame. It stops when the encoder reports its
// duration reached, on a write error, or when ctx is cancelled, and always
// flushes the encoder before returning.
func (g *Game) Render(ctx context.Context) error {
	if g.encoder == nil {
		return ErrNoEncoder
	}

	fps := g.cfg.Window.FPS
	g.log.Info("headless render started",
		zap.Int("width", g.cfg.Window.Width),
		zap.Int("height", g.cfg.Window.Height),
		zap.Int("fps", fps))

	for g.encoder != nil {
		if err := ctx.Err(); err != nil {
			g.log.Info("render cancelled", zap.Int("frames", g.frames))
			return errors.Join(fmt.Errorf("render cancelled: %w", err), g.stopRecording())
		}

		g.step()
		if err := g.record(); err != nil {
			return err
		}
		if fps > 0 && g.frames%fps == 0 {
			g.log.Debug("render progress", zap.Int("frames", g.frames), zap.Int("bounces", g.bounces))
		}
	}
	return nil
}
