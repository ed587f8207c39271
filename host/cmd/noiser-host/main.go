// Command noiser-host drives a noise toy over its control link.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"noiser/config"
	"noiser/core"
	"noiser/host/mcu"
	"noiser/host/serial"
)

var (
	configPath = "noiser.toml"
	device     = ""
	verbose    = false
)

func init() {
	pflag.StringVarP(&configPath, "config", "c", configPath, "configuration file")
	pflag.StringVarP(&device, "device", "d", device, "serial device, or auto (overrides link.device)")
	pflag.BoolVarP(&verbose, "verbose", "v", verbose, "verbose output")
}

func main() {
	pflag.Parse()

	logLevel := slog.LevelInfo
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
	if device != "" {
		cfg.Link.Device = device
	}

	toy := mcu.New(slog.Default())
	err = toy.Connect(&serial.Config{
		Device:      cfg.Link.Device,
		Baud:        cfg.Link.Baud,
		ReadTimeout: time.Duration(cfg.Link.ReadTimeout),
	})
	if err != nil {
		return err
	}
	defer toy.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := toy.Run(ctx)
		if ctx.Err() != nil {
			return nil
		}
		return err
	})
	g.Go(func() error {
		defer cancel()
		if err := toy.RetrieveDictionary(); err != nil {
			return errors.Wrap(err, "retrieve dictionary")
		}
		d := toy.Dictionary()
		slog.Info("connected", "version", d.Version, "commands", len(d.Commands))
		return repl(ctx, toy, os.Stdin, os.Stdout)
	})
	return g.Wait()
}

// repl runs stdin lines as toy commands until EOF or quit
func repl(ctx context.Context, toy *mcu.MCU, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return nil
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "quit" || fields[0] == "q" {
			return nil
		}
		if err := execute(toy, fields, out); err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
		}
	}
}

func execute(toy *mcu.MCU, fields []string, out io.Writer) error {
	args, err := parseArgs(fields[1:])
	if err != nil {
		return err
	}

	switch fields[0] {
	case "help", "?":
		printHelp(out)
	case "dict":
		printDictionary(toy.Dictionary(), out)
	case "raw":
		fmt.Fprintf(out, "%s\n", toy.RawDictionary())
	case "clock":
		clock, err := toy.Clock()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "clock=%d\n", clock)
	case "status":
		st, err := toy.Status()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "display_running=%v tone=%v@%dHz notes=%v %v %dHz period=%v\n",
			st.DisplayRunning, st.ToneEnabled, st.ToneFrequency,
			st.NotesEnabled, st.NotesMode, st.NotesFrequency, st.NotesPeriod)
	case "events":
		events, err := toy.Events()
		if err != nil {
			return err
		}
		for _, evt := range events {
			fmt.Fprintf(out, "%10d %-12s %d %d\n", evt.Clock, core.EventName(evt.Type), evt.Value1, evt.Value2)
		}
	case "fixed":
		return toy.Send("notes_mode", uint32(core.ModeFixed))
	case "random":
		return toy.Send("notes_mode", uint32(core.ModeRandomized))
	default:
		// anything else goes out as a raw dictionary command
		return toy.Send(fields[0], args...)
	}
	return nil
}

func parseArgs(fields []string) ([]uint32, error) {
	args := make([]uint32, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseUint(f, 0, 32)
		if err != nil {
			return nil, errors.Errorf("argument %q is not a number", f)
		}
		args[i] = uint32(v)
	}
	return args, nil
}

func printDictionary(d *mcu.Dictionary, out io.Writer) {
	if d == nil {
		return
	}
	fmt.Fprintf(out, "version %s (%s)\n", d.Version, d.BuildVersions)

	keys := make([]string, 0, len(d.Config))
	for k := range d.Config {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(out, "  %-14s %s\n", k, d.Config[k])
	}

	sigs := make([]string, 0, len(d.Commands))
	for sig := range d.Commands {
		sigs = append(sigs, sig)
	}
	sort.Strings(sigs)
	for _, sig := range sigs {
		fmt.Fprintf(out, "  %3d %s\n", d.Commands[sig], sig)
	}
}

func printHelp(out io.Writer) {
	fmt.Fprintln(out, `commands:
  status                  component state
  clock                   toy timer
  events                  recent events
  dict, raw               dictionary
  tone_start, tone_stop, tone_toggle
  tone_play <hz>
  notes_enable <0|1>
  fixed, random           notes mode
  notes_toggle_period
  notes_set_freq <hz>
  display_mode <0|1>
  reset
  quit`)
}
