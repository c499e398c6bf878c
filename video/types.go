package video

import (
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"strings"
	"time"
)

// Encoder consumes RGBA frames of a fixed size
type Encoder interface {
	// WriteFrame encodes one frame; more is false once the configured duration is reached
	WriteFrame(img *image.RGBA) (more bool, err error)
	// Close flushes buffered output and releases the encoder, safe to call twice
	Close() error
}

// Sentinel errors
var (
	ErrNoEncoder  = errors.New("no video encoder found")
	ErrClosed     = errors.New("encoder closed")
	ErrFrameSize  = errors.New("frame size mismatch")
	ErrBadOptions = errors.New("invalid encoder options")
)

// Defaults matching the 60 fps, libx264 yuv420p output
const (
	DefaultFPS         = 60
	DefaultCodec       = "libx264"
	DefaultPixelFormat = "yuv420p"
)

// Options configures an encoder
type Options struct {
	Path        string
	Width       int
	Height      int
	FPS         int
	Duration    time.Duration // zero means unbounded
	Codec       string        // ffmpeg only
	PixelFormat string        // ffmpeg only
	Quality     int           // ffmpeg crf, zero keeps codec default
}

func (o *Options) normalize() error {
	if o.Path == "" {
		return fmt.Errorf("%w: empty output path", ErrBadOptions)
	}
	if o.Width <= 0 || o.Height <= 0 {
		return fmt.Errorf("%w: frame size must be positive", ErrBadOptions)
	}
	if o.FPS <= 0 {
		o.FPS = DefaultFPS
	}
	if o.Codec == "" {
		o.Codec = DefaultCodec
	}
	if o.PixelFormat == "" {
		o.PixelFormat = DefaultPixelFormat
	}
	if o.Duration < 0 {
		o.Duration = 0
	}
	return nil
}

// frameClock tracks frame timestamps against the duration limit
type frameClock struct {
	fps      int
	limit    time.Duration
	frameIdx int64
}

// advance counts one frame and reports whether another one fits
func (c *frameClock) advance() bool {
	c.frameIdx++
	if c.limit <= 0 {
		return true
	}
	return c.timestamp() < c.limit
}

// timestamp of the next frame
func (c *frameClock) timestamp() time.Duration {
	return time.Duration(c.frameIdx) * time.Second / time.Duration(c.fps)
}

// New picks an encoder by file extension: .gif in-process, anything else through ffmpeg
func New(opts Options) (Encoder, error) {
	if err := opts.normalize(); err != nil {
		return nil, err
	}
	if IsGIF(opts.Path) {
		return NewGIFEncoder(opts)
	}
	backend, err := DetectFFmpeg()
	if err != nil {
		return nil, err
	}
	return NewFFmpegEncoder(backend, opts)
}

// IsGIF reports whether path is encoded in-process rather than by ffmpeg
func IsGIF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".gif")
}

// NeedsEvenSize reports whether pixelFormat halves chroma in both directions,
// which libx264 and friends only accept for even frame sizes.
// An empty format means DefaultPixelFormat.
func NeedsEvenSize(pixelFormat string) bool {
	if pixelFormat == "" {
		pixelFormat = DefaultPixelFormat
	}
	switch pixelFormat {
	case "nv12", "nv21":
		return true
	}
	return strings.Contains(pixelFormat, "420")
}

func checkFrame(img *image.RGBA, width, height int) error {
	if img == nil {
		return ErrFrameSize
	}
	b := img.Bounds()
	if b.Dx() != width || b.Dy() != height {
		return fmt.Errorf("%w: got %dx%d, want %dx%d", ErrFrameSize, b.Dx(), b.Dy(), width, height)
	}
	return nil
}
