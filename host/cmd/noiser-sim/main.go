// Command noiser-sim runs the noise toy on the host. Type a, b or ab and
// Enter to hold buttons, - to release them.
package main

import (
	"bufio"
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"noiser/config"
	"noiser/core"
	"noiser/sim"
)

var (
	configPath = "noiser.toml"
	verbose    = false
	seed       uint64
	speed      = 1.0
	fast       = false
	render     = false
)

func init() {
	pflag.StringVarP(&configPath, "config", "c", configPath, "configuration file")
	pflag.BoolVarP(&verbose, "verbose", "v", verbose, "verbose output")
	pflag.Uint64Var(&seed, "seed", seed, "entropy seed, 0 reads the host RNG (overrides sim.seed)")
	pflag.Float64Var(&speed, "speed", speed, "simulated time per wall time (overrides sim.speed)")
	pflag.BoolVar(&fast, "unthrottled", fast, "run as fast as possible (overrides sim.unthrottled)")
	pflag.BoolVar(&render, "render", render, "print every frame (overrides sim.render)")
}

func main() {
	pflag.Parse()

	logLevel := slog.LevelWarn
	if verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if pflag.CommandLine.Changed("seed") {
		cfg.Sim.Seed = seed
	}
	if pflag.CommandLine.Changed("speed") {
		cfg.Sim.Speed = speed
	}
	if pflag.CommandLine.Changed("unthrottled") {
		cfg.Sim.Unthrottled = fast
	}
	if pflag.CommandLine.Changed("render") {
		cfg.Sim.Render = render
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}

	core.SetDebugWriter(func(s string) { slog.Debug(s) })
	core.SetDebugEnabled(verbose)
	core.ApplyTiming(cfg.CoreTiming())

	m := sim.New(cfg.CoreTiming(), slog.Default())
	m.Boot(cfg.Sim.Seed, rand.Reader)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return m.Run(ctx, cfg.Sim.Step.Ticks(), cfg.Pace())
	})
	g.Go(func() error {
		defer cancel()
		return controls(ctx, m, os.Stdin, os.Stdout)
	})
	if cfg.Sim.Render {
		g.Go(func() error {
			return frames(ctx, m, os.Stdout)
		})
	}

	return g.Wait()
}

// controls applies stdin lines until EOF
func controls(ctx context.Context, m *sim.Machine, in io.Reader, out io.Writer) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			command(m, strings.TrimSpace(line), out)
		}
	}
}

func command(m *sim.Machine, line string, out io.Writer) {
	switch line {
	case "":
	case "status":
		s := core.CurrentStatus()
		freq, active := m.Wave.State()
		fmt.Fprintf(out, "t=%dus display_running=%v tone=%v@%dHz speaker=%v@%dHz notes=%v %v %dHz period=%dus\n",
			m.Now(), s.DisplayRunning, s.ToneEnabled, s.ToneFrequency, active, freq,
			s.Notes.Enabled, s.Notes.Mode, s.Notes.Frequency, s.Notes.Period)
	case "frame":
		fmt.Fprint(out, sim.Render(m.Matrix.Frame()))
	case "events":
		for _, evt := range core.Events() {
			fmt.Fprintf(out, "%10d %-12s %d %d\n", evt.Clock, core.EventName(evt.Type), evt.Value1, evt.Value2)
		}
	case "toggle":
		core.ToneToggle()
	case "period":
		core.FrequencyTogglePeriod()
	default:
		a, b, ok := sim.ParseButtons(line)
		if !ok {
			fmt.Fprintln(out, "commands: a, b, ab, -, status, frame, events, toggle, period")
			return
		}
		m.SetButtons(a, b)
		slog.Debug("buttons", "a", a, "b", b)
	}
}

// frames prints each latched frame
func frames(ctx context.Context, m *sim.Machine, out io.Writer) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case f := <-m.Matrix.Frames():
			freq, active := m.Wave.State()
			tone := "off"
			if active {
				tone = fmt.Sprintf("%d Hz", freq)
			}
			fmt.Fprintf(out, "%s----- %s\n", sim.Render(f), tone)
		}
	}
}
