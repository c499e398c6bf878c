package video

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// EnvFFmpeg overrides the ffmpeg binary location
const EnvFFmpeg = "BALLZ_FFMPEG"

// stderrTail bounds how much ffmpeg diagnostics are kept for error reports
const stderrTail = 4096

// Backend describes the external encoder process.
// Args are placed before the generated ffmpeg arguments.
type Backend struct {
	Name string
	Path string
	Args []string
}

// DetectFFmpeg searches for ffmpeg, honoring BALLZ_FFMPEG
func DetectFFmpeg() (*Backend, error) {
	if p := os.Getenv(EnvFFmpeg); p != "" {
		path, err := exec.LookPath(p)
		if err != nil {
			return nil, fmt.Errorf("%w: %s=%s: %v", ErrNoEncoder, EnvFFmpeg, p, err)
		}
		return &Backend{Name: "ffmpeg", Path: path}, nil
	}
	path, err := exec.LookPath("ffmpeg")
	if err != nil {
		return nil, fmt.Errorf("%w: ffmpeg not in PATH", ErrNoEncoder)
	}
	return &Backend{Name: "ffmpeg", Path: path}, nil
}

// FFmpegEncoder pipes raw RGBA frames into an ffmpeg process which converts
// pixel format, encodes and muxes by output file name
type FFmpegEncoder struct {
	opts    Options
	backend *Backend
	clock   frameClock

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr *tailBuffer

	closed   atomic.Bool
	closeErr error
	mu       sync.Mutex
}

// NewFFmpegEncoder starts the encoder process
func NewFFmpegEncoder(backend *Backend, opts Options) (*FFmpegEncoder, error) {
	if err := opts.normalize(); err != nil {
		return nil, err
	}
	if NeedsEvenSize(opts.PixelFormat) && (opts.Width%2 != 0 || opts.Height%2 != 0) {
		return nil, fmt.Errorf("%w: %s needs an even frame size, got %dx%d",
			ErrBadOptions, opts.PixelFormat, opts.Width, opts.Height)
	}
	if backend == nil || backend.Path == "" {
		return nil, ErrNoEncoder
	}

	args := append(append([]string(nil), backend.Args...), FFmpegArgs(opts)...)
	cmd := exec.Command(backend.Path, args...)
	stderr := &tailBuffer{limit: stderrTail}
	cmd.Stderr = stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("encoder stdin: %w", err)
	}
	if err := cmd.Start(); err != nil {
		stdin.Close()
		return nil, fmt.Errorf("start %s: %w", backend.Name, err)
	}

	return &FFmpegEncoder{
		opts:    opts,
		backend: backend,
		clock:   frameClock{fps: opts.FPS, limit: opts.Duration},
		cmd:     cmd,
		stdin:   stdin,
		stderr:  stderr,
	}, nil
}

// FFmpegArgs builds the argument list: rawvideo rgba on stdin, container from file name
func FFmpegArgs(opts Options) []string {
	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-y",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-s", fmt.Sprintf("%dx%d", opts.Width, opts.Height),
		"-r", strconv.Itoa(opts.FPS),
		"-i", "-",
		"-c:v", opts.Codec,
		"-pix_fmt", opts.PixelFormat,
	}
	if opts.Quality > 0 {
		args = append(args, "-crf", strconv.Itoa(opts.Quality))
	}
	return append(args, opts.Path)
}

func (e *FFmpegEncoder) WriteFrame(img *image.RGBA) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed.Load() {
		return false, ErrClosed
	}
	if err := checkFrame(img, e.opts.Width, e.opts.Height); err != nil {
		return false, err
	}

	rowBytes := e.opts.Width * 4
	if img.Stride == rowBytes {
		if _, err := e.stdin.Write(img.Pix[:rowBytes*e.opts.Height]); err != nil {
			return false, e.pipeError(err)
		}
	} else {
		for y := 0; y < e.opts.Height; y++ {
			off := y * img.Stride
			if _, err := e.stdin.Write(img.Pix[off : off+rowBytes]); err != nil {
				return false, e.pipeError(err)
			}
		}
	}

	return e.clock.advance(), nil
}

// Frames returns the number of frames written
func (e *FFmpegEncoder) Frames() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clock.frameIdx
}

// Close ends the input stream and waits for ffmpeg to finish muxing
func (e *FFmpegEncoder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.closed.CompareAndSwap(false, true) {
		return e.closeErr
	}

	e.stdin.Close()
	if err := e.cmd.Wait(); err != nil {
		e.closeErr = fmt.Errorf("%s exited: %w%s", e.backend.Name, err, e.stderr.suffix())
	}
	return e.closeErr
}

func (e *FFmpegEncoder) pipeError(err error) error {
	return fmt.Errorf("write frame to %s: %w%s", e.backend.Name, err, e.stderr.suffix())
}

// tailBuffer keeps the last limit bytes written
type tailBuffer struct {
	mu    sync.Mutex
	buf   bytes.Buffer
	limit int
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf.Write(p)
	if over := t.buf.Len() - t.limit; over > 0 {
		t.buf.Next(over)
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.TrimSpace(t.buf.String())
}

// suffix formats captured output for appending to an error message
func (t *tailBuffer) suffix() string {
	if s := t.String(); s != "" {
		return ": " + s
	}
	return ""
}
