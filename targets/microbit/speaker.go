//go:build microbit_v2

package main

import (
	"machine"

	"tinygo.org/x/drivers/tone"
)

// speaker is the piezo behind PWM0
type speaker struct {
	out    tone.Speaker
	period uint64
	on     bool
}

func newSpeaker() (*speaker, error) {
	out, err := tone.New(machine.PWM0, machine.SPEAKER_PIN)
	if err != nil {
		return nil, err
	}
	out.Stop()
	return &speaker{out: out}, nil
}

// SetFrequency only drives the pin if it already is
func (s *speaker) SetFrequency(hz uint32) {
	if hz == 0 {
		return
	}
	s.period = 1e9 / uint64(hz)
	if s.on {
		s.out.SetPeriod(s.period)
	}
}

func (s *speaker) Enable() {
	s.on = true
	if s.period != 0 {
		s.out.SetPeriod(s.period)
	}
}

func (s *speaker) Stop() {
	s.on = false
	s.out.Stop()
}
