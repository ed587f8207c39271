//go:build microbit_v2

// Firmware for the micro:bit v2 noise toy. Hold A for random notes, B for a
// steady tone, both to change the tempo.
package main

import (
	"device/arm"
	"device/nrf"
	"machine"
	"time"

	"tinygo.org/x/drivers"

	"noiser/core"
	"noiser/protocol"
)

var (
	link         drivers.UART
	inputBuffer  *protocol.FifoBuffer
	outputBuffer *protocol.ScratchOutput
	transport    *protocol.Transport

	linkErrors uint32
)

func main() {
	initLink()

	timing := core.CurrentTiming()
	ic := newNVIC()
	clk := newClock(nrf.TIMER4)

	core.InitEntropy(newRNG())

	refresh := newOneshotTimer(nrf.TIMER3)
	mx := newMatrix(refresh)
	core.InitDisplay(mx, newOneshotTimer(nrf.TIMER2), ic)
	mx.start()

	core.InitFrequencyScheduler(newOneshotTimer(nrf.TIMER1), ic)

	spk, err := newSpeaker()
	if err != nil {
		panic("speaker: " + err.Error())
	}
	core.InitTone(spk, newTicker(nrf.RTC0, timing.TickPrescaler), ic)
	core.ToneStop()

	core.InitCommands()
	core.RegisterConstant("MCU", "nrf52833")
	core.GetGlobalDictionary().BuildDictionary()

	inputBuffer = protocol.NewFifoBuffer(256)
	outputBuffer = protocol.NewScratchOutput()
	transport = protocol.NewTransport(outputBuffer, core.DispatchCommand)
	transport.SetResetCallback(func() {
		inputBuffer.Reset()
		outputBuffer.Reset()
	})
	transport.SetFlushCallback(writeLink)
	core.SetGlobalTransport(transport)
	core.SetResetHandler(arm.SystemReset)

	machine.BUTTONA.Configure(machine.PinConfig{Mode: machine.PinInput})
	machine.BUTTONB.Configure(machine.PinConfig{Mode: machine.PinInput})

	var buttons core.Buttons
	for {
		core.SetTime(clk.now())

		// buttons are active low
		buttons.Poll(!machine.BUTTONA.Get(), !machine.BUTTONB.Get())

		readLink()
		if inputBuffer.Available() > 0 {
			transport.Receive(inputBuffer)
		}
		writeLink()

		// after the ack has gone out
		core.CheckPendingReset()

		time.Sleep(time.Millisecond)
	}
}

func initLink() {
	uart := machine.UART0
	uart.Configure(machine.UARTConfig{
		BaudRate: 115200,
		TX:       machine.UART_TX_PIN,
		RX:       machine.UART_RX_PIN,
	})
	link = uart
}

// readLink moves whatever the UART has buffered into the input FIFO
func readLink() {
	var buf [64]byte
	for link.Buffered() > 0 {
		n, err := link.Read(buf[:])
		if err != nil || n == 0 {
			linkErrors++
			return
		}
		if inputBuffer.Write(buf[:n]) < n {
			// overrun; the decoder resyncs on the next sync byte
			linkErrors++
			return
		}
	}
}

func writeLink() {
	result := outputBuffer.Result()
	written := 0
	for written < len(result) {
		n, err := link.Write(result[written:])
		if err != nil || n == 0 {
			linkErrors++
			break
		}
		written += n
	}
	outputBuffer.Reset()
}
