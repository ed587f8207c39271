//go:build !tinygo

package core

import "sync"

// State is a placeholder for interrupt state on regular Go
type State uintptr

// critical stands in for the interrupt mask on the host: the simulator's
// interrupt pump and its foreground loop are separate goroutines.
var critical sync.Mutex

// disableInterrupts enters the host critical section
func disableInterrupts() State {
	critical.Lock()
	return 0
}

// restoreInterrupts leaves the host critical section
func restoreInterrupts(state State) {
	critical.Unlock()
}
