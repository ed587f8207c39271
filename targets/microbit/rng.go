//go:build microbit_v2

package main

import "device/nrf"

// rng reads the hardware random number generator with bias correction on
type rng struct{}

func newRNG() rng {
	nrf.RNG.CONFIG.Set(nrf.RNG_CONFIG_DERCEN_Enabled)
	nrf.RNG.TASKS_START.Set(1)
	return rng{}
}

func (rng) Read(p []byte) (int, error) {
	for i := range p {
		for nrf.RNG.EVENTS_VALRDY.Get() == 0 {
		}
		p[i] = byte(nrf.RNG.VALUE.Get())
		nrf.RNG.EVENTS_VALRDY.Set(0)
	}
	return len(p), nil
}
