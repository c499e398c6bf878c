// Package config loads the scene description: view window, curve, physics
// and recording settings. Values come from defaults, then a YAML file, then
// BALLZ_* environment variables, then command-line flags.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lixenwraith/ballz/curve"
	"github.com/lixenwraith/ballz/physics"
	"github.com/lixenwraith/ballz/video"
)

// ErrInvalidConfig wraps every validation failure
var ErrInvalidConfig = errors.New("invalid config")

// Config is the full scene description
type Config struct {
	Window  WindowConfig  `yaml:"window"`
	View    ViewConfig    `yaml:"view"`
	Curve   CurveConfig   `yaml:"curve"`
	Physics PhysicsConfig `yaml:"physics"`
	Balls   BallsConfig   `yaml:"balls"`
	Record  RecordConfig  `yaml:"record"`
	Audio   AudioConfig   `yaml:"audio"`
}

// WindowConfig is the offscreen frame size used for recording
type WindowConfig struct {
	Title  string `yaml:"title"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	FPS    int    `yaml:"fps"`
}

// ViewConfig is the visible math window
type ViewConfig struct {
	XDim       float64 `yaml:"x_dim"`
	YDim       float64 `yaml:"y_dim"`
	XCenter    float64 `yaml:"x_center"`
	YCenter    float64 `yaml:"y_center"`
	Velocities bool    `yaml:"velocities"`
}

// CurveConfig selects the boundary. A non-empty Spec string overrides Kind and its parameters.
type CurveConfig struct {
	Spec   string    `yaml:"spec,omitempty"`
	Kind   string    `yaml:"kind"`
	Coeffs []float64 `yaml:"coeffs,omitempty"`
	Center []float64 `yaml:"center,omitempty"`
	Radius float64   `yaml:"radius,omitempty"`
	Upper  bool      `yaml:"upper,omitempty"`
}

type PhysicsConfig struct {
	Gravity          float64 `yaml:"gravity"`
	Substeps         int     `yaml:"substeps"`
	Tolerance        float64 `yaml:"tolerance"`
	TimeStep         float64 `yaml:"time_step"`
	EnergyCorrection bool    `yaml:"energy_correction"`
	Workers          int     `yaml:"workers"`
}

type BallsConfig struct {
	Count   int       `yaml:"count"`
	Start   []float64 `yaml:"start"`
	Shift   float64   `yaml:"shift"`
	Palette string    `yaml:"palette"`
}

type RecordConfig struct {
	Path        string        `yaml:"path"`
	Duration    time.Duration `yaml:"duration"`
	Codec       string        `yaml:"codec"`
	PixelFormat string        `yaml:"pixel_format"`
	Quality     int           `yaml:"quality"`
}

type AudioConfig struct {
	Enabled bool    `yaml:"enabled"`
	Volume  float64 `yaml:"volume"`
}

// Default returns the parabola scene: 100 balls over y = x^2 - 1 in a 3×3 window
func Default() *Config {
	return &Config{
		Window: WindowConfig{Title: "Ballz", Width: 1080, Height: 1080, FPS: 60},
		View:   ViewConfig{XDim: 3, YDim: 3},
		Curve:  CurveConfig{Kind: "polynomial", Coeffs: []float64{-1, 0, 1}},
		Physics: PhysicsConfig{
			Gravity:          physics.DefaultGravity,
			Substeps:         physics.DefaultSubsteps,
			Tolerance:        physics.DefaultTolerance,
			TimeStep:         0.1,
			EnergyCorrection: true,
			Workers:          1,
		},
		Balls: BallsConfig{
			Count:   100,
			Start:   []float64{-0.8, 1.0},
			Shift:   0.005,
			Palette: physics.PaletteGradient,
		},
		Record: RecordConfig{Duration: 10 * time.Second},
		Audio:  AudioConfig{Enabled: true, Volume: 0.5},
	}
}

// Overlay adjusts a config after the file and environment layers and
// before validation. Command-line flags are applied this way.
type Overlay func(*Config)

// Load reads a YAML file over the defaults and applies environment overrides.
// An empty path yields defaults plus environment.
func Load(path string) (*Config, error) {
	return LoadWith(path, nil)
}

// LoadWith is Load with overlay applied last; overlay may be nil
func LoadWith(path string, overlay Overlay) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := Decode(data, cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	if overlay != nil {
		overlay(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Decode merges YAML onto cfg, unknown keys are rejected
func Decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Marshal renders cfg as YAML
func Marshal(cfg *Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}

// BuildCurve turns the curve section into a curve
func (c CurveConfig) BuildCurve() (curve.Curve, error) {
	if c.Spec != "" {
		return curve.Parse(c.Spec)
	}
	switch c.Kind {
	case "polynomial", "poly", "":
		p := curve.NewPolynomial(c.Coeffs...)
		return p, curve.Validate(p)
	case "semicircle":
		if len(c.Center) != 2 {
			return nil, fmt.Errorf("%w: semicircle center needs two values", curve.ErrInvalidCurve)
		}
		s := curve.NewSemicircle(c.Center[0], c.Center[1], c.Radius, c.Upper)
		return s, curve.Validate(s)
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", curve.ErrInvalidCurve, c.Kind)
	}
}

// WorldConfig maps the physics section onto the world settings
func (p PhysicsConfig) WorldConfig() physics.Config {
	return physics.Config{
		Gravity:          p.Gravity,
		Substeps:         p.Substeps,
		Tolerance:        p.Tolerance,
		EnergyCorrection: p.EnergyCorrection,
		Workers:          p.Workers,
	}
}

// Validate reports every problem at once
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		add("window size %dx%d", c.Window.Width, c.Window.Height)
	}
	if c.Window.FPS <= 0 {
		add("window fps %d", c.Window.FPS)
	}
	if c.View.XDim <= 0 || c.View.YDim <= 0 {
		add("view dimensions %gx%g", c.View.XDim, c.View.YDim)
	}
	if _, err := c.Curve.BuildCurve(); err != nil {
		errs = append(errs, fmt.Errorf("%w: %w", ErrInvalidConfig, err))
	}
	if c.Physics.Gravity <= 0 {
		add("gravity %g must be positive", c.Physics.Gravity)
	}
	if c.Physics.Substeps <= 0 {
		add("substeps %d", c.Physics.Substeps)
	}
	if c.Physics.Tolerance <= 0 || c.Physics.Tolerance >= 1 {
		add("tolerance %g outside (0,1)", c.Physics.Tolerance)
	}
	if c.Physics.TimeStep <= 0 {
		add("time step %g", c.Physics.TimeStep)
	}
	if c.Physics.Workers < 0 {
		add("workers %d", c.Physics.Workers)
	}
	if c.Balls.Count < 0 {
		add("ball count %d", c.Balls.Count)
	}
	if len(c.Balls.Start) != 2 {
		add("balls start needs two values, got %d", len(c.Balls.Start))
	}
	switch c.Balls.Palette {
	case physics.PaletteGradient, physics.PaletteHSV:
	default:
		add("palette %q", c.Balls.Palette)
	}
	if c.Record.Duration < 0 {
		add("record duration %v", c.Record.Duration)
	}
	if c.Record.Path != "" && !video.IsGIF(c.Record.Path) && video.NeedsEvenSize(c.Record.PixelFormat) &&
		(c.Window.Width%2 != 0 || c.Window.Height%2 != 0) {
		add("window size %dx%d must be even to record %s", c.Window.Width, c.Window.Height, c.Record.Path)
	}
	if c.Audio.Volume < 0 || c.Audio.Volume > 1 {
		add("audio volume %g outside [0,1]", c.Audio.Volume)
	}
	return errors.Join(errs...)
}
