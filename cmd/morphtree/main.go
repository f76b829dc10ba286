// Command morphtree runs the particle tree morph in a window, a terminal
// or headless, optionally streaming frames over websocket.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"morphtree/internal/app"
	"morphtree/internal/audio"
	"morphtree/internal/config"
	"morphtree/internal/field"
	"morphtree/internal/logging"
	"morphtree/internal/render"
	"morphtree/internal/sim"
	"morphtree/internal/stream"
	"morphtree/internal/tui"
)

// GL and glfw calls must come from the main thread.
func init() { runtime.LockOSThread() }

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "morphtree: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := pflag.NewFlagSet("morphtree", pflag.ContinueOnError)
	configPath := fs.String("config", "", "config file (json, yaml or toml)")
	config.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if err := config.BindFlags(fs); err != nil {
		return err
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	log, closeLog, err := openLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	set, err := field.Generate(cfg.Count, seed)
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}
	st := set.Stats()
	log.Info().
		Uint64("seed", seed).
		Int("count", st.Count).
		Int("cubes", st.Cubes).
		Int("spheres", st.Spheres).
		Float64("baseRadius", st.BaseRadius).
		Float64("apexRadius", st.ApexRadius).
		Float64("scatterReach", st.ScatterReach).
		Msg("field generated")

	s, err := sim.New(set, sim.WithWorkers(cfg.Workers))
	if err != nil {
		return fmt.Errorf("simulator: %w", err)
	}

	// hub.Close must run after the server below has drained.
	var hub *stream.Hub
	if cfg.Stream.Enabled {
		hub = stream.NewHub(log)
		defer hub.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := []app.RunnerOption{
		app.WithLogger(log),
		app.WithFPS(cfg.FPS),
		app.WithAutoToggle(cfg.AutoToggle),
	}

	if hub != nil {
		served := hub.Start(ctx, cfg.Stream.Addr)
		defer func() {
			stop()
			<-served
		}()
		opts = append(opts, app.WithRemote(hub))
	}

	if cfg.Audio.Enabled {
		chimes, err := audio.NewChimes(cfg.Audio.Volume, log)
		if err != nil {
			// Non-fatal, the scene runs without sound.
			log.Warn().Err(err).Msg("audio init failed")
		} else {
			defer chimes.Wait()
			opts = append(opts, app.WithChimes(chimes))
		}
	}

	display, err := openDisplay(cfg)
	if err != nil {
		return err
	}
	defer display.Close()

	runner, err := app.NewRunner(s, display, opts...)
	if err != nil {
		return err
	}
	return runner.Run(ctx)
}

func openDisplay(cfg config.Config) (app.Display, error) {
	switch cfg.Display {
	case config.DisplayGL:
		d, err := render.New(cfg.Window.Width, cfg.Window.Height)
		if err != nil {
			return nil, fmt.Errorf("window: %w", err)
		}
		return d, nil
	case config.DisplayTUI:
		d, err := tui.New()
		if err != nil {
			return nil, fmt.Errorf("terminal: %w", err)
		}
		return d, nil
	}
	return app.Headless(), nil
}

// openLogger writes to the configured file, or stderr. The terminal display
// owns the tty, so without a file its logs are dropped.
func openLogger(cfg config.Config) (zerolog.Logger, func(), error) {
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("open log file: %w", err)
		}
		return logging.NewPlain(f, cfg.LogLevel), func() { f.Close() }, nil
	}
	if cfg.Display == config.DisplayTUI {
		return logging.NewPlain(io.Discard, cfg.LogLevel), func() {}, nil
	}
	return logging.New(os.Stderr, cfg.LogLevel), func() {}, nil
}
