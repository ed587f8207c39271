// Package config reads the TOML configuration shared by the host tools.
package config

import (
	"encoding"
	"io"
	"os"
	"time"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"

	"noiser/core"
)

// Config is the configuration for noiser-sim and noiser-host.
type Config struct {
	// Timing overrides the firmware constants. Only the simulator applies
	// it; the board always runs the built-in defaults.
	Timing TimingConfig `toml:"timing"`
	// Link is the serial connection to a board.
	Link LinkConfig `toml:"link"`
	// Sim tunes the simulator.
	Sim SimConfig `toml:"sim"`
}

// TimingConfig mirrors core.Timing with durations instead of timer ticks.
type TimingConfig struct {
	DefaultFrequency uint32   `toml:"default_frequency"`
	InitialFrequency uint32   `toml:"initial_frequency"`
	InitialPeriod    Duration `toml:"initial_period"`
	FrequencyMin     uint32   `toml:"frequency_min"`
	FrequencyMax     uint32   `toml:"frequency_max"`
	PeriodMin        Duration `toml:"period_min"`
	PeriodMax        Duration `toml:"period_max"`
	IdleFrame        Duration `toml:"idle_frame"`
	RunningFrame     Duration `toml:"running_frame"`
	TickPrescaler    uint32   `toml:"tick_prescaler"`
}

// LinkConfig is the serial port of the control link.
type LinkConfig struct {
	// Device is the port path, or "auto" to look for a micro:bit.
	Device string `toml:"device"`
	// Baud is ignored by USB CDC ports but kept for real UARTs.
	Baud int `toml:"baud"`
	// ReadTimeout bounds each port read so the reader can notice shutdown.
	ReadTimeout Duration `toml:"read_timeout"`
}

// SimConfig tunes the simulator.
type SimConfig struct {
	// Step is the simulated time advanced per pump iteration.
	Step Duration `toml:"step"`
	// Speed scales simulated time against wall time.
	Speed float64 `toml:"speed"`
	// Unthrottled runs as fast as the host allows, ignoring Speed.
	Unthrottled bool `toml:"unthrottled"`
	// Seed fixes the entropy seed; 0 seeds from the host RNG.
	Seed uint64 `toml:"seed"`
	// Render prints every latched frame.
	Render bool `toml:"render"`
}

// Duration is a time.Duration written as a string such as "140ms".
type Duration time.Duration

var (
	_ encoding.TextUnmarshaler = (*Duration)(nil)
	_ encoding.TextMarshaler   = (*Duration)(nil)
)

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Ticks converts to 1 MHz timer ticks.
func (d Duration) Ticks() uint32 {
	return uint32(time.Duration(d) / time.Microsecond)
}

func fromTicks(ticks uint32) Duration {
	return Duration(time.Duration(ticks) * time.Microsecond)
}

// Default returns the built-in configuration.
func Default() *Config {
	var c Config
	c.applyDefaults()
	return &c
}

// Parse reads a configuration, fills in defaults and validates it.
func Parse(r io.Reader) (*Config, error) {
	var c Config
	if err := toml.NewDecoder(r).Decode(&c); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Load parses the file at path. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "open config")
	}
	defer f.Close()

	c, err := Parse(f)
	return c, errors.Wrap(err, path)
}

// applyDefaults fills every zero field from core.DefaultTiming and the link
// and simulator defaults.
func (c *Config) applyDefaults() {
	d := core.DefaultTiming()
	t := &c.Timing

	setUint(&t.DefaultFrequency, d.DefaultFrequency)
	setUint(&t.InitialFrequency, d.InitialFrequency)
	setUint(&t.FrequencyMin, d.FrequencyRange[0])
	setUint(&t.FrequencyMax, d.FrequencyRange[1])
	setUint(&t.TickPrescaler, d.TickPrescaler)
	setDuration(&t.InitialPeriod, fromTicks(d.InitialPeriod))
	setDuration(&t.PeriodMin, fromTicks(d.PeriodRange[0]))
	setDuration(&t.PeriodMax, fromTicks(d.PeriodRange[1]))
	setDuration(&t.IdleFrame, fromTicks(d.IdlePeriod))
	setDuration(&t.RunningFrame, fromTicks(d.RunningPeriod))

	if c.Link.Device == "" {
		c.Link.Device = "auto"
	}
	if c.Link.Baud == 0 {
		c.Link.Baud = 115200
	}
	setDuration(&c.Link.ReadTimeout, Duration(100*time.Millisecond))

	setDuration(&c.Sim.Step, Duration(time.Millisecond))
	if c.Sim.Speed == 0 {
		c.Sim.Speed = 1
	}
}

func setUint(v *uint32, def uint32) {
	if *v == 0 {
		*v = def
	}
}

func setDuration(v *Duration, def Duration) {
	if *v == 0 {
		*v = def
	}
}

// Validate checks the ranges the core relies on.
func (c *Config) Validate() error {
	t := c.Timing
	if t.FrequencyMin >= t.FrequencyMax {
		return errors.Errorf("frequency range [%d, %d) is empty", t.FrequencyMin, t.FrequencyMax)
	}
	// compared in timer ticks: sub-microsecond differences vanish there
	if t.PeriodMin < 0 || t.PeriodMin.Ticks() == 0 || t.PeriodMin.Ticks() >= t.PeriodMax.Ticks() {
		return errors.Errorf("period range [%v, %v) is empty",
			time.Duration(t.PeriodMin), time.Duration(t.PeriodMax))
	}

	for name, d := range map[string]Duration{
		"initial_period": t.InitialPeriod,
		"idle_frame":     t.IdleFrame,
		"running_frame":  t.RunningFrame,
		"period_max":     t.PeriodMax,
	} {
		if d < 0 || time.Duration(d) > time.Duration(^uint32(0))*time.Microsecond {
			return errors.Errorf("timing.%s %v does not fit the 32 bit timer", name, time.Duration(d))
		}
		if d.Ticks() == 0 {
			return errors.Errorf("timing.%s must be at least 1us", name)
		}
	}

	if c.Sim.Speed <= 0 {
		return errors.New("sim.speed must be positive")
	}
	if c.Sim.Step.Ticks() == 0 {
		return errors.New("sim.step must be at least 1us")
	}
	return nil
}

// Pace is the simulator speed for sim.Machine.Run, 0 when unthrottled.
func (c *Config) Pace() float64 {
	if c.Sim.Unthrottled {
		return 0
	}
	return c.Sim.Speed
}

// CoreTiming converts the timing section for core.ApplyTiming.
func (c *Config) CoreTiming() core.Timing {
	t := c.Timing
	return core.Timing{
		DefaultFrequency: t.DefaultFrequency,
		InitialFrequency: t.InitialFrequency,
		InitialPeriod:    t.InitialPeriod.Ticks(),
		FrequencyRange:   [2]uint32{t.FrequencyMin, t.FrequencyMax},
		PeriodRange:      [2]uint32{t.PeriodMin.Ticks(), t.PeriodMax.Ticks()},
		IdlePeriod:       t.IdleFrame.Ticks(),
		RunningPeriod:    t.RunningFrame.Ticks(),
		TickPrescaler:    t.TickPrescaler,
	}
}
