package core

// FrequencyMode selects how the scheduler picks the next tone
type FrequencyMode uint8

const (
	// ModeRandomized redraws the frequency on every period
	ModeRandomized FrequencyMode = iota
	// ModeFixed holds the current frequency
	ModeFixed
)

// String returns the mode name
func (m FrequencyMode) String() string {
	switch m {
	case ModeRandomized:
		return "randomized"
	case ModeFixed:
		return "fixed"
	default:
		return "mode" + itoa(int(m))
	}
}

// FrequencyScheduler pushes a new tone frequency to the tone driver once per
// period, from its own self-rescheduling oneshot timer.
type FrequencyScheduler struct {
	timer   OneshotTimer
	mode    FrequencyMode
	freq    uint32
	period  uint32
	enabled bool
}

// FrequencyStatus is a snapshot of the scheduler
type FrequencyStatus struct {
	Mode      FrequencyMode
	Frequency uint32
	Period    uint32
	Enabled   bool
}

var scheduler *FrequencyScheduler

// InitFrequencyScheduler creates the scheduler disabled, in randomized mode.
// The timer line is unmasked but the timer is not started.
func InitFrequencyScheduler(timer OneshotTimer, ic InterruptController) {
	free(func() {
		ic.Unmask(IRQFrequency)
		scheduler = &FrequencyScheduler{
			timer:  timer,
			mode:   ModeRandomized,
			freq:   timing.InitialFrequency,
			period: timing.InitialPeriod,
		}
	})
}

// FrequencyEnable arms the timer for the current period
func FrequencyEnable() {
	free(func() {
		if scheduler == nil {
			return
		}
		scheduler.enabled = true
		scheduler.timer.EnableInterrupt()
		scheduler.timer.Start(scheduler.period)
	})
}

// FrequencyDisable masks the timer interrupt; the counter may keep running
func FrequencyDisable() {
	free(func() {
		if scheduler == nil {
			return
		}
		scheduler.enabled = false
		scheduler.timer.DisableInterrupt()
	})
}

// FrequencySetMode switches between fixed and randomized frequencies
func FrequencySetMode(mode FrequencyMode) {
	free(func() {
		if scheduler == nil {
			return
		}
		scheduler.mode = mode
		recordEvent(EvtModeChange, 1, uint32(mode))
	})
}

// FrequencyTogglePeriod redraws the period in randomized mode, giving a
// variable tempo. It does nothing in fixed mode.
func FrequencyTogglePeriod() {
	free(func() {
		if scheduler == nil || scheduler.mode != ModeRandomized || entropy == nil {
			return
		}
		scheduler.period = entropy.NextInRange(timing.PeriodRange[0], timing.PeriodRange[1])
	})
}

// FrequencySet stores hz as the current frequency. Zero is ignored.
func FrequencySet(hz uint32) {
	if hz == 0 {
		return
	}
	free(func() {
		if scheduler != nil {
			scheduler.freq = hz
		}
	})
}

// CurrentFrequency returns the last frequency, enabled or not
func CurrentFrequency() (freq uint32, ok bool) {
	free(func() {
		if scheduler == nil {
			return
		}
		freq, ok = scheduler.freq, true
	})
	return freq, ok
}

// FrequencyState returns a snapshot of the scheduler
func FrequencyState() (st FrequencyStatus, ok bool) {
	free(func() {
		if scheduler == nil {
			return
		}
		st = FrequencyStatus{
			Mode:      scheduler.mode,
			Frequency: scheduler.freq,
			Period:    scheduler.period,
			Enabled:   scheduler.enabled,
		}
		ok = true
	})
	return st, ok
}

// update runs the scheduled step: pick the next frequency and re-arm.
// ok is false when disabled. Caller holds the critical section.
func (s *FrequencyScheduler) update() (freq uint32, ok bool) {
	if !s.enabled {
		// Acknowledge a fire that raced with FrequencyDisable, but do not re-arm
		s.timer.ResetEvent()
		return 0, false
	}
	if s.mode == ModeRandomized && entropy != nil {
		s.freq = entropy.NextInRange(timing.FrequencyRange[0], timing.FrequencyRange[1])
	}
	s.timer.ResetEvent()
	s.timer.Start(s.period)
	return s.freq, true
}

// HandleFrequencyTimer is the scheduler timer interrupt handler. The tone
// driver is always played; a disabled scheduler hands it the default.
func HandleFrequencyTimer() {
	var (
		freq      uint32
		scheduled bool
		fallback  uint32
	)
	free(func() {
		fallback = timing.DefaultFrequency
		if scheduler != nil {
			freq, scheduled = scheduler.update()
		}
		if !scheduled {
			freq = fallback
		}
		recordEvent(EvtFrequencyFire, freq, boolToU32(scheduled))
	})

	TonePlay(freq)
}
