package core

import (
	"errors"
	"sync/atomic"

	"noiser/protocol"
)

// InitCommands registers the control link commands and the dictionary
// constants. identify_response and identify must keep ids 0 and 1, the
// host bootstraps with those before it has a dictionary.
func InitCommands() {
	RegisterResponse("identify_response", "offset=%u data=%*s")
	RegisterCommand("identify", "offset=%u count=%c", handleIdentify)

	RegisterCommand("get_clock", "", handleGetClock)
	RegisterCommand("get_status", "", handleGetStatus)
	RegisterCommand("display_mode", "running=%c", handleDisplayMode)
	RegisterCommand("tone_start", "", handleToneStart)
	RegisterCommand("tone_stop", "", handleToneStop)
	RegisterCommand("tone_toggle", "", handleToneToggle)
	RegisterCommand("tone_play", "freq=%u", handleTonePlay)
	RegisterCommand("notes_enable", "enable=%c", handleNotesEnable)
	RegisterCommand("notes_mode", "mode=%c", handleNotesMode)
	RegisterCommand("notes_toggle_period", "", handleNotesTogglePeriod)
	RegisterCommand("notes_set_freq", "freq=%u", handleNotesSetFreq)
	RegisterCommand("dump_events", "", handleDumpEvents)
	RegisterCommand("reset", "", handleReset)

	RegisterResponse("clock", "clock=%u")
	RegisterResponse("status", "display_running=%c tone_enabled=%c tone_freq=%u"+
		" notes_enabled=%c notes_mode=%c notes_freq=%u notes_period=%u")
	RegisterResponse("event", "type=%c clock=%u value1=%u value2=%u")

	t := CurrentTiming()
	RegisterConstant("CLOCK_FREQ", uint32(TimerFreq))
	RegisterConstant("GRID_SIZE", GridSize)
	RegisterConstant("TRAIL_LENGTH", TrailLength)
	RegisterConstant("FREQ_MIN", t.FrequencyRange[0])
	RegisterConstant("FREQ_MAX", t.FrequencyRange[1])
	RegisterConstant("PERIOD_MIN", t.PeriodRange[0])
	RegisterConstant("PERIOD_MAX", t.PeriodRange[1])
	RegisterConstant("DEFAULT_FREQ", t.DefaultFrequency)
}

var errUnknownMode = errors.New("unknown notes mode")

// Status is the snapshot returned by get_status
type Status struct {
	DisplayRunning bool
	ToneEnabled    bool
	ToneFrequency  uint32
	Notes          FrequencyStatus
}

// CurrentStatus collects the state of every component
func CurrentStatus() Status {
	var s Status
	_, mode, _ := DisplayState()
	s.DisplayRunning = mode == DisplayModeRunning
	s.ToneFrequency, s.ToneEnabled, _ = ToneState()
	s.Notes, _ = FrequencyState()
	return s
}

func handleIdentify(data *[]byte) error {
	offset, err := protocol.DecodeUint(data)
	if err != nil {
		return err
	}
	count, err := protocol.DecodeUint(data)
	if err != nil {
		return err
	}

	chunk := GetGlobalDictionary().GetChunk(offset, uint8(count))
	SendResponse("identify_response", func(output protocol.OutputBuffer) {
		protocol.EncodeUint(output, offset)
		protocol.EncodeBytes(output, chunk)
	})
	return nil
}

func handleGetClock(data *[]byte) error {
	clock := GetTime()
	SendResponse("clock", func(output protocol.OutputBuffer) {
		protocol.EncodeUint(output, clock)
	})
	return nil
}

func handleGetStatus(data *[]byte) error {
	s := CurrentStatus()
	SendResponse("status", func(output protocol.OutputBuffer) {
		protocol.EncodeBool(output, s.DisplayRunning)
		protocol.EncodeBool(output, s.ToneEnabled)
		protocol.EncodeUint(output, s.ToneFrequency)
		protocol.EncodeBool(output, s.Notes.Enabled)
		protocol.EncodeUint(output, uint32(s.Notes.Mode))
		protocol.EncodeUint(output, s.Notes.Frequency)
		protocol.EncodeUint(output, s.Notes.Period)
	})
	return nil
}

func handleDisplayMode(data *[]byte) error {
	running, err := protocol.DecodeBool(data)
	if err != nil {
		return err
	}
	if running {
		DisplayRunning()
	} else {
		DisplayIdle()
	}
	return nil
}

func handleToneStart(data *[]byte) error {
	ToneStart()
	return nil
}

func handleToneStop(data *[]byte) error {
	ToneStop()
	return nil
}

func handleToneToggle(data *[]byte) error {
	ToneToggle()
	return nil
}

func handleTonePlay(data *[]byte) error {
	freq, err := protocol.DecodeUint(data)
	if err != nil {
		return err
	}
	TonePlay(freq)
	return nil
}

func handleNotesEnable(data *[]byte) error {
	enable, err := protocol.DecodeBool(data)
	if err != nil {
		return err
	}
	if enable {
		FrequencyEnable()
	} else {
		FrequencyDisable()
	}
	return nil
}

func handleNotesMode(data *[]byte) error {
	mode, err := protocol.DecodeUint(data)
	if err != nil {
		return err
	}
	if FrequencyMode(mode) > ModeFixed {
		return errUnknownMode
	}
	FrequencySetMode(FrequencyMode(mode))
	return nil
}

func handleNotesTogglePeriod(data *[]byte) error {
	FrequencyTogglePeriod()
	return nil
}

func handleNotesSetFreq(data *[]byte) error {
	freq, err := protocol.DecodeUint(data)
	if err != nil {
		return err
	}
	FrequencySet(freq)
	return nil
}

// handleDumpEvents streams the event ring, oldest first, and mirrors it to
// the debug writer
func handleDumpEvents(data *[]byte) error {
	for _, evt := range Events() {
		SendResponse("event", func(output protocol.OutputBuffer) {
			protocol.EncodeUint(output, uint32(evt.Type))
			protocol.EncodeUint(output, evt.Clock)
			protocol.EncodeUint(output, evt.Value1)
			protocol.EncodeUint(output, evt.Value2)
		})
	}
	DumpEventRing()
	return nil
}

// The reset itself is deferred to the main loop so the ack goes out first
func handleReset(_ *[]byte) error {
	atomic.StoreUint32(&resetPending, 1)
	return nil
}

// SendResponse sends a registered response over the global transport
func SendResponse(responseName string, args func(output protocol.OutputBuffer)) {
	if globalTransport == nil {
		return
	}
	cmd, ok := globalRegistry.GetCommandByName(responseName)
	if !ok {
		panic("response not registered: " + responseName)
	}
	globalTransport.SendCommand(cmd.ID, args)
}

var globalTransport *protocol.Transport

// SetGlobalTransport sets where responses are sent (set by main)
func SetGlobalTransport(transport *protocol.Transport) {
	globalTransport = transport
}

var (
	globalResetHandler func()
	resetPending       uint32 // atomic bool
)

// SetResetHandler sets the platform reset, normally a CPU reset
func SetResetHandler(handler func()) {
	globalResetHandler = handler
}

// CheckPendingReset runs the reset handler if the host asked for one. Call it
// from the main loop after output has been flushed.
func CheckPendingReset() {
	if atomic.CompareAndSwapUint32(&resetPending, 1, 0) && globalResetHandler != nil {
		globalResetHandler()
	}
}
