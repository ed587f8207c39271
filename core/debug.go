package core

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

// Event captures something an interrupt handler did, for post-mortem dumps
type Event struct {
	Type   uint8  // Event type code
	Clock  uint32 // System clock at event
	Value1 uint32 // Context-dependent value
	Value2 uint32 // Context-dependent value
}

// Event type codes
const (
	EvtFrameAdvance  = 1 // head position (y*5+x), display mode
	EvtFrequencyFire = 2 // frequency handed to the tone driver, 1 if freshly scheduled
	EvtToneRetune    = 3 // new frequency, enabled flag
	EvtToneStart     = 4 // frequency
	EvtToneStop      = 5 // frequency
	EvtToneTick      = 6 // tick count
	EvtModeChange    = 7 // component (0 display, 1 frequency), new mode
	EvtDisplayError  = 8 // frame advance count
)

const (
	EventRingSize = 32 // Keep last 32 events
)

var (
	// debugPrintln is the global debug print function (can be set by platform code)
	debugPrintln DebugWriter = func(s string) {}

	// debugEnabled gates DebugPrintln
	debugEnabled bool = false

	// eventRing is only touched inside the critical section
	eventRing     [EventRingSize]Event
	eventRingHead uint8
)

// SetDebugWriter sets the platform-specific debug output function
func SetDebugWriter(writer DebugWriter) {
	debugPrintln = writer
}

// SetDebugEnabled enables or disables debug output
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// IsDebugEnabled returns whether debug output is enabled
func IsDebugEnabled() bool {
	return debugEnabled
}

// DebugPrintln writes a debug message using the platform-specific writer.
// Never call it from inside a critical section.
func DebugPrintln(msg string) {
	if debugEnabled && debugPrintln != nil {
		debugPrintln(msg)
	}
}

// recordEvent appends to the event ring. Caller holds the critical section.
func recordEvent(eventType uint8, value1, value2 uint32) {
	idx := eventRingHead
	eventRing[idx] = Event{
		Type:   eventType,
		Clock:  GetTime(),
		Value1: value1,
		Value2: value2,
	}
	eventRingHead = (idx + 1) % EventRingSize
}

// Events returns the recorded events, oldest first
func Events() []Event {
	var events []Event
	free(func() {
		start := eventRingHead
		for i := uint8(0); i < EventRingSize; i++ {
			evt := eventRing[(start+i)%EventRingSize]
			if evt.Type == 0 {
				continue // Empty slot
			}
			events = append(events, evt)
		}
	})
	return events
}

// EventName returns the dump label for an event type
func EventName(eventType uint8) string {
	switch eventType {
	case EvtFrameAdvance:
		return "FRAME"
	case EvtFrequencyFire:
		return "FREQ_FIRE"
	case EvtToneRetune:
		return "TONE_PLAY"
	case EvtToneStart:
		return "TONE_START"
	case EvtToneStop:
		return "TONE_STOP"
	case EvtToneTick:
		return "TONE_TICK"
	case EvtModeChange:
		return "MODE"
	case EvtDisplayError:
		return "DISPLAY_ERR!"
	default:
		return "UNKNOWN"
	}
}

// DumpEventRing writes the event ring through the debug writer
func DumpEventRing() {
	if debugPrintln == nil {
		return
	}

	debugPrintln("[EVENTS] === Event Ring Dump ===")
	for _, evt := range Events() {
		debugPrintln("[EVENTS] " + EventName(evt.Type) +
			" clock=" + utoa(evt.Clock) +
			" v1=" + utoa(evt.Value1) +
			" v2=" + utoa(evt.Value2))
	}
	debugPrintln("[EVENTS] === End Dump ===")
}

// ClearEventRing clears the event buffer
func ClearEventRing() {
	free(func() {
		for i := range eventRing {
			eventRing[i] = Event{}
		}
		eventRingHead = 0
	})
}
