package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lixenwraith/ballz/audio"
	"github.com/lixenwraith/ballz/config"
	"github.com/lixenwraith/ballz/engine"
	"github.com/lixenwraith/ballz/terminal"
	"github.com/lixenwraith/ballz/video"
)

// options holds command-line values; flags override the config file
type options struct {
	configPath string
	output     string
	duration   time.Duration
	curve      string
	balls      int
	workers    int
	palette    string
	width      int
	height     int
	debug      bool
	noAudio    bool
	noWatch    bool
}

func main() {
	// Panic Recovery: Ensure terminal is reset even if the game crashes
	defer func() {
		if r := recover(); r != nil {
			terminal.EmergencyReset(os.Stdout)
			fmt.Fprintf(os.Stderr, "\n\x1b[31mBALLZ CRASHED: %v\x1b[0m\n", r)
			fmt.Fprintf(os.Stderr, "Stack Trace:\n%s\n", debug.Stack())
			os.Exit(1)
		}
	}()

	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	o := &options{}
	root := &cobra.Command{
		Use:   "ballz",
		Short: "Balls bouncing off an analytic curve",
		Long: `ballz drops a row of balls onto a polynomial or semicircle and lets
them bounce under gravity, drawn in the terminal with half-block cells.

Keys: q/Esc quit, space pause, r reset, c next curve, +/- speed,
v velocity whiskers, m mute. Click to drop a ball.

Pass --output to record the session while playing.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInteractive(cmd, o)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&o.configPath, "config", "c", "", "YAML scene file")
	flags.StringVarP(&o.output, "output", "o", "", "record to file (.gif, or any ffmpeg container)")
	flags.DurationVarP(&o.duration, "duration", "d", 0, "recording length (default from config)")
	flags.StringVar(&o.curve, "curve", "", `curve: preset name, "poly:c0,c1,..." or "semicircle:cx,cy,r[,upper]"`)
	flags.IntVarP(&o.balls, "balls", "n", 0, "number of balls")
	flags.IntVarP(&o.workers, "workers", "w", 0, "goroutines integrating balls")
	flags.StringVar(&o.palette, "palette", "", "ball colors: gradient or hsv")
	flags.IntVar(&o.width, "width", 0, "recorded frame width")
	flags.IntVar(&o.height, "height", 0, "recorded frame height")
	flags.BoolVar(&o.debug, "debug", false, "write debug logs to logs/ballz.log")
	root.Flags().BoolVar(&o.noAudio, "no-audio", false, "disable bounce sounds")
	root.Flags().BoolVar(&o.noWatch, "no-watch", false, "do not reload the config file on change")

	root.AddCommand(newRenderCmd(o))
	return root
}

func newRenderCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "render",
		Short: "Render the simulation offscreen straight to a video file",
		Example: `  ballz render -o parabola.mp4 -d 10s
  ballz render --curve bowl -n 200 -o bowl.gif -d 5s`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, o)
		},
	}
}

// loadConfig layers defaults, file, environment and changed flags
func loadConfig(cmd *cobra.Command, o *options) (*config.Config, error) {
	return config.LoadWith(o.configPath, flagOverlay(cmd, o))
}

// flagOverlay applies the flags set on the command line. The watcher runs it
// again on every reload so edits to the file never undo them.
func flagOverlay(cmd *cobra.Command, o *options) config.Overlay {
	flags := cmd.Flags()
	return func(cfg *config.Config) {
		if flags.Changed("curve") {
			cfg.Curve.Spec = o.curve
		}
		if flags.Changed("balls") {
			cfg.Balls.Count = o.balls
		}
		if flags.Changed("workers") {
			cfg.Physics.Workers = o.workers
		}
		if flags.Changed("palette") {
			cfg.Balls.Palette = o.palette
		}
		if flags.Changed("width") {
			cfg.Window.Width = o.width
		}
		if flags.Changed("height") {
			cfg.Window.Height = o.height
		}
		if flags.Changed("output") {
			cfg.Record.Path = o.output
		}
		if flags.Changed("duration") {
			cfg.Record.Duration = o.duration
		}
	}
}

func openEncoder(cfg *config.Config) (video.Encoder, error) {
	return video.New(video.Options{
		Path:        cfg.Record.Path,
		Width:       cfg.Window.Width,
		Height:      cfg.Window.Height,
		FPS:         cfg.Window.FPS,
		Duration:    cfg.Record.Duration,
		Codec:       cfg.Record.Codec,
		PixelFormat: cfg.Record.PixelFormat,
		Quality:     cfg.Record.Quality,
	})
}

func runInteractive(cmd *cobra.Command, o *options) (err error) {
	logger, err := setupLogging(o.debug)
	if err != nil {
		return err
	}
	defer logger.Sync()

	cfg, err := loadConfig(cmd, o)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	game, err := engine.New(cfg, logger)
	if err != nil {
		return err
	}

	// Audio is optional, the game runs silently without a device
	if cfg.Audio.Enabled && !o.noAudio {
		sm := audio.NewSoundManager(cfg.Audio.Volume)
		if err := sm.Initialize(); err != nil {
			logger.Warn("audio unavailable", zap.Error(err))
		} else {
			defer sm.Cleanup()
			game.SetSound(sm)
		}
	}

	if cfg.Record.Path != "" {
		enc, err := openEncoder(cfg)
		if err != nil {
			return err
		}
		game.SetEncoder(enc)
		logger.Info("recording", zap.String("path", cfg.Record.Path), zap.Duration("duration", cfg.Record.Duration))
	}
	defer func() {
		err = errors.Join(err, game.Close())
	}()

	var updates <-chan *config.Config
	if o.configPath != "" && !o.noWatch {
		w, err := config.NewWatcher(o.configPath, logger)
		if err != nil {
			return err
		}
		w.SetOverlay(flagOverlay(cmd, o))
		if err := w.Start(ctx); err != nil {
			return err
		}
		defer w.Stop()
		updates = w.Updates()
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("create screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("init screen: %w", err)
	}
	defer screen.Fini()
	screen.SetStyle(tcell.StyleDefault)
	screen.HideCursor()
	screen.SetTitle(cfg.Window.Title)

	return game.Run(ctx, screen, updates)
}

func runRender(cmd *cobra.Command, o *options) error {
	logger, err := setupLogging(o.debug)
	if err != nil {
		return err
	}
	defer logger.Sync()

	cfg, err := loadConfig(cmd, o)
	if err != nil {
		return err
	}
	if cfg.Record.Path == "" {
		return errors.New("render needs an output file (--output or record.path)")
	}
	if cfg.Record.Duration <= 0 {
		return errors.New("render needs a positive duration (--duration or record.duration)")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	game, err := engine.New(cfg, logger)
	if err != nil {
		return err
	}
	enc, err := openEncoder(cfg)
	if err != nil {
		return err
	}
	game.SetEncoder(enc)

	start := time.Now()
	if err := game.Render(ctx); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%v of video in %v)\n",
		cfg.Record.Path, cfg.Record.Duration, time.Since(start).Round(time.Millisecond))
	return nil
}
