package core

// Buttons is the foreground button state machine. The main loop reads the
// two buttons and calls Poll with their pressed state.
type Buttons struct {
	pressed bool
}

// Pressed reports whether a press is latched
func (b *Buttons) Pressed() bool {
	return b.pressed
}

// Poll applies one reading of buttons A and B
func (b *Buttons) Poll(a, bDown bool) {
	switch {
	case !a && !bDown && !b.pressed:
		return
	case !a && !bDown:
		DisplayIdle()
		FrequencyDisable()
		ToneStop()
		b.pressed = false
		return
	}

	if !b.pressed {
		DisplayRunning()
		ToneStart()
		FrequencyEnable()
		b.pressed = true
		if a {
			FrequencySetMode(ModeRandomized)
		} else {
			FrequencySetMode(ModeFixed)
		}
	}

	if a && bDown {
		FrequencyTogglePeriod()
	}
}
