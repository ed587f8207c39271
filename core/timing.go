package core

// Timing holds the cadences and ranges the components are created with.
// Periods are in timer ticks, frequencies in Hz, ranges are [low, high).
type Timing struct {
	DefaultFrequency uint32

	InitialFrequency uint32
	InitialPeriod    uint32
	FrequencyRange   [2]uint32
	PeriodRange      [2]uint32

	IdlePeriod    uint32
	RunningPeriod uint32

	TickPrescaler uint32
}

// DefaultTiming returns the values the toy ships with
func DefaultTiming() Timing {
	return Timing{
		DefaultFrequency: 500,
		InitialFrequency: 500,
		InitialPeriod:    200000,
		FrequencyRange:   [2]uint32{300, 1400},
		PeriodRange:      [2]uint32{25000, 100000},
		IdlePeriod:       140000,
		RunningPeriod:    80000,
		TickPrescaler:    500,
	}
}

var timing = DefaultTiming()

// ApplyTiming replaces the timing used by subsequent Init calls.
// Components already initialized keep the values they were created with,
// except for the fallback frequency which is read on every scheduler fire.
func ApplyTiming(t Timing) {
	free(func() {
		timing = t
	})
}

// CurrentTiming returns the timing in effect
func CurrentTiming() Timing {
	var t Timing
	free(func() {
		t = timing
	})
	return t
}
