package core

// Tone drives the piezo speaker. The waveform output is active iff enabled.
type Tone struct {
	wave    WaveformGenerator
	freq    uint32
	enabled bool
}

var tone *Tone

// InitTone configures the waveform for the default frequency, starts the
// auxiliary tick and leaves the speaker enabled.
func InitTone(wave WaveformGenerator, counter TickCounter, ic InterruptController) {
	free(func() {
		freq := timing.DefaultFrequency
		wave.SetFrequency(freq)
		wave.Enable()

		initTickSource(counter, ic)

		tone = &Tone{
			wave:    wave,
			freq:    freq,
			enabled: true,
		}
	})
}

// start and stop assume the critical section is held
func (t *Tone) start() {
	t.wave.SetFrequency(t.freq)
	t.wave.Enable()
	t.enabled = true
	recordEvent(EvtToneStart, t.freq, 0)
}

func (t *Tone) stop() {
	t.wave.Stop()
	t.enabled = false
	recordEvent(EvtToneStop, t.freq, 0)
}

// ToneStart drives the speaker at the stored frequency
func ToneStart() {
	free(func() {
		if tone != nil {
			tone.start()
		}
	})
}

// ToneStop silences the speaker
func ToneStop() {
	free(func() {
		if tone != nil {
			tone.stop()
		}
	})
}

// ToneToggle flips between started and stopped
func ToneToggle() {
	free(func() {
		if tone == nil {
			return
		}
		if tone.enabled {
			tone.stop()
		} else {
			tone.start()
		}
	})
}

// TonePlay stores hz and retunes the waveform right away, whether or not
// the speaker is currently driven. A zero frequency is ignored.
func TonePlay(hz uint32) {
	if hz == 0 {
		return
	}
	free(func() {
		if tone == nil {
			return
		}
		tone.freq = hz
		tone.wave.SetFrequency(hz)
		recordEvent(EvtToneRetune, hz, boolToU32(tone.enabled))
	})
}

// ToneState returns the stored frequency and enabled flag.
// ok is false before InitTone.
func ToneState() (freq uint32, enabled bool, ok bool) {
	free(func() {
		if tone == nil {
			return
		}
		freq, enabled, ok = tone.freq, tone.enabled, true
	})
	return freq, enabled, ok
}

func boolToU32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
