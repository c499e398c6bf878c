package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Environment overrides
const (
	EnvGravity  = "BALLZ_GRAVITY"
	EnvSubsteps = "BALLZ_SUBSTEPS"
	EnvWorkers  = "BALLZ_WORKERS"
	EnvCurve    = "BALLZ_CURVE"
	EnvBalls    = "BALLZ_BALLS"
	EnvAudio    = "BALLZ_AUDIO_ENABLED"
	EnvVolume   = "BALLZ_MASTER_VOLUME"
	EnvDuration = "BALLZ_RECORD_DURATION"
)

// ApplyEnv overlays BALLZ_* variables; malformed values are reported together
func ApplyEnv(cfg *Config) error {
	var errs []error
	bad := func(name, val string, err error) {
		errs = append(errs, fmt.Errorf("%w: %s=%q: %v", ErrInvalidConfig, name, val, err))
	}

	if v := os.Getenv(EnvGravity); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Physics.Gravity = f
		} else {
			bad(EnvGravity, v, err)
		}
	}

	if v := os.Getenv(EnvSubsteps); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Physics.Substeps = n
		} else {
			bad(EnvSubsteps, v, err)
		}
	}

	if v := os.Getenv(EnvWorkers); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Physics.Workers = n
		} else {
			bad(EnvWorkers, v, err)
		}
	}

	if v := os.Getenv(EnvCurve); v != "" {
		cfg.Curve.Spec = v
	}

	if v := os.Getenv(EnvBalls); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Balls.Count = n
		} else {
			bad(EnvBalls, v, err)
		}
	}

	if v := os.Getenv(EnvAudio); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Audio.Enabled = b
		} else {
			bad(EnvAudio, v, err)
		}
	}

	// Master volume 0-100 converted to 0.0-1.0
	if v := os.Getenv(EnvVolume); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Audio.Volume = min(max(float64(n)/100, 0), 1)
		} else {
			bad(EnvVolume, v, err)
		}
	}

	if v := os.Getenv(EnvDuration); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Record.Duration = d
		} else {
			bad(EnvDuration, v, err)
		}
	}

	return errors.Join(errs...)
}
