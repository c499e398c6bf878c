package video

import (
	"fmt"
	"image"
	"image/color/palette"
	"image/gif"
	"math"
	"os"
	"sync"

	"golang.org/x/image/draw"
)

// GIF timing is in centiseconds, higher rates are not honored by viewers
const (
	maxGIFFPS       = 30
	DefaultGIFScale = 0.5
)

// GIFEncoder buffers downscaled paletted frames and writes the animation on Close
type GIFEncoder struct {
	opts  Options
	clock frameClock
	scale float64
	step  int // keep every step-th source frame
	delay int // centiseconds per kept frame

	anim     gif.GIF
	closed   bool
	closeErr error
	mu       sync.Mutex
}

// NewGIFEncoder validates options; the output file is created on Close.
// Frames are scaled by DefaultGIFScale and decimated to at most 30 fps.
func NewGIFEncoder(opts Options) (*GIFEncoder, error) {
	if err := opts.normalize(); err != nil {
		return nil, err
	}
	step := max(1, int(math.Ceil(float64(opts.FPS)/maxGIFFPS)))
	delay := max(2, int(math.Round(100*float64(step)/float64(opts.FPS))))
	return &GIFEncoder{
		opts:  opts,
		clock: frameClock{fps: opts.FPS, limit: opts.Duration},
		scale: DefaultGIFScale,
		step:  step,
		delay: delay,
		anim:  gif.GIF{LoopCount: 0},
	}, nil
}

// SetScale changes the output scale before the first frame, (0, 1] only
func (e *GIFEncoder) SetScale(s float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if s > 0 && s <= 1 && len(e.anim.Image) == 0 {
		e.scale = s
	}
}

func (e *GIFEncoder) WriteFrame(img *image.RGBA) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return false, ErrClosed
	}
	if err := checkFrame(img, e.opts.Width, e.opts.Height); err != nil {
		return false, err
	}

	if e.clock.frameIdx%int64(e.step) == 0 {
		e.anim.Image = append(e.anim.Image, e.quantize(img))
		e.anim.Delay = append(e.anim.Delay, e.delay)
	}
	return e.clock.advance(), nil
}

// quantize scales then dithers onto the Plan 9 palette
func (e *GIFEncoder) quantize(img *image.RGBA) *image.Paletted {
	w := max(1, int(math.Round(float64(e.opts.Width)*e.scale)))
	h := max(1, int(math.Round(float64(e.opts.Height)*e.scale)))
	bounds := image.Rect(0, 0, w, h)

	var src image.Image = img
	if w != e.opts.Width || h != e.opts.Height {
		scaled := image.NewRGBA(bounds)
		draw.ApproxBiLinear.Scale(scaled, bounds, img, img.Bounds(), draw.Src, nil)
		src = scaled
	}

	dst := image.NewPaletted(bounds, palette.Plan9)
	draw.FloydSteinberg.Draw(dst, bounds, src, image.Point{})
	return dst
}

// Frames returns kept and total frame counts
func (e *GIFEncoder) Frames() (kept int, total int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.anim.Image), e.clock.frameIdx
}

// Close writes the animation; an encoder that saw no frames writes nothing.
// Later calls return the first result.
func (e *GIFEncoder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return e.closeErr
	}
	e.closed = true
	e.closeErr = e.writeFile()
	e.anim = gif.GIF{}
	return e.closeErr
}

func (e *GIFEncoder) writeFile() error {
	if len(e.anim.Image) == 0 {
		return nil
	}

	f, err := os.Create(e.opts.Path)
	if err != nil {
		return fmt.Errorf("create %s: %w", e.opts.Path, err)
	}
	if err := gif.EncodeAll(f, &e.anim); err != nil {
		f.Close()
		return fmt.Errorf("encode gif: %w", err)
	}
	return f.Close()
}
