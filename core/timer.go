package core

import "sync/atomic"

// TimerFreq is the tick rate of the oneshot timers (nRF TIMERn at prescaler 4)
const TimerFreq = 1000000

var systemTicks uint32 // atomic

// GetTime returns the current system time in timer ticks
func GetTime() uint32 {
	return atomic.LoadUint32(&systemTicks)
}

// SetTime sets the current system time (for testing/hardware integration)
func SetTime(ticks uint32) {
	atomic.StoreUint32(&systemTicks, ticks)
}

// AdvanceTime moves the system time forward and returns the new value
func AdvanceTime(ticks uint32) uint32 {
	return atomic.AddUint32(&systemTicks, ticks)
}

// TimerFromUS converts microseconds to timer ticks
func TimerFromUS(us uint32) uint32 {
	return uint32(uint64(us) * TimerFreq / 1000000)
}

// TimerToUS converts timer ticks to microseconds
func TimerToUS(ticks uint32) uint32 {
	return uint32(uint64(ticks) * 1000000 / TimerFreq)
}
