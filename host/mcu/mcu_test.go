package mcu

import (
	"context"
	"net"
	"testing"
	"time"

	"noiser/core"
	"noiser/protocol"
)

const testDictionary = `{"version":"noiser-test","build_versions":"go","config":{"CLOCK_FREQ":"1000000","FREQ_MIN":"300"},` +
	`"commands":{"identify offset=%u count=%c":1,"get_clock":2,"get_status":3,"tone_play freq=%u":4,"dump_events":5},` +
	`"responses":{"identify_response offset=%u data=%*s":0,"clock clock=%u":6,` +
	`"status display_running=%c tone_enabled=%c tone_freq=%u notes_enabled=%c notes_mode=%c notes_freq=%u notes_period=%u":7,` +
	`"event type=%c clock=%u value1=%u value2=%u":8}}`

// fakeToy answers the test dictionary's commands behind a pipe
type fakeToy struct {
	played []uint32
}

func (f *fakeToy) serve(t *testing.T, conn net.Conn) {
	t.Helper()
	dict := []byte(testDictionary)
	out := protocol.NewScratchOutput()
	var tr *protocol.Transport
	tr = protocol.NewTransport(out, func(id uint16, data *[]byte) error {
		switch id {
		case 1:
			offset, _ := protocol.DecodeUint(data)
			count, _ := protocol.DecodeUint(data)
			var chunk []byte
			if int(offset) < len(dict) {
				chunk = dict[offset:min(int(offset+count), len(dict))]
			}
			tr.SendCommand(0, func(o protocol.OutputBuffer) {
				protocol.EncodeUint(o, offset)
				protocol.EncodeBytes(o, chunk)
			})
		case 2:
			tr.SendCommand(6, func(o protocol.OutputBuffer) { protocol.EncodeUint(o, 123456) })
		case 3:
			tr.SendCommand(7, func(o protocol.OutputBuffer) {
				for _, v := range []uint32{1, 1, 523, 1, 0, 523, 150000} {
					protocol.EncodeUint(o, v)
				}
			})
		case 4:
			hz, err := protocol.DecodeUint(data)
			if err != nil {
				return err
			}
			f.played = append(f.played, hz)
		case 5:
			for i := uint32(1); i <= 2; i++ {
				tr.SendCommand(8, func(o protocol.OutputBuffer) {
					protocol.EncodeUint(o, uint32(core.EvtToneStop))
					protocol.EncodeUint(o, 1000*i)
					protocol.EncodeUint(o, i)
					protocol.EncodeUint(o, 0)
				})
			}
		}
		return nil
	})
	fifo := protocol.NewFifoBuffer(256)

	go func() {
		buf := make([]byte, 64)
		for {
			n, err := conn.Read(buf)
			if err != nil {
				return
			}
			fifo.Write(buf[:n])
			tr.Receive(fifo)
			if _, err := conn.Write(out.Result()); err != nil {
				return
			}
			out.Reset()
		}
	}()
}

func newTestMCU(t *testing.T) (*MCU, *fakeToy) {
	t.Helper()
	hostConn, toyConn := net.Pipe()
	toy := &fakeToy{}
	toy.serve(t, toyConn)

	m := New(nil)
	m.Attach(hostConn)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		m.Close()
		toyConn.Close()
		<-done
	})

	if err := m.RetrieveDictionary(); err != nil {
		t.Fatalf("RetrieveDictionary: %v", err)
	}
	return m, toy
}

func TestRetrieveDictionary(t *testing.T) {
	m, _ := newTestMCU(t)

	if string(m.RawDictionary()) != testDictionary {
		t.Errorf("raw dictionary differs:\n%s", m.RawDictionary())
	}
	d := m.Dictionary()
	if d.Version != "noiser-test" {
		t.Errorf("version %q", d.Version)
	}
	if d.Config["FREQ_MIN"] != "300" {
		t.Errorf("FREQ_MIN %q", d.Config["FREQ_MIN"])
	}
	if d.Commands["tone_play freq=%u"] != 4 {
		t.Errorf("tone_play id %d", d.Commands["tone_play freq=%u"])
	}
}

func TestSend(t *testing.T) {
	m, toy := newTestMCU(t)

	if err := m.Send("tone_play", 440); err != nil {
		t.Fatal(err)
	}
	if err := m.Send("tone_play", 880); err != nil {
		t.Fatal(err)
	}
	if len(toy.played) != 2 || toy.played[0] != 440 || toy.played[1] != 880 {
		t.Errorf("played %v", toy.played)
	}

	if err := m.Send("tone_play"); err == nil {
		t.Error("missing argument accepted")
	}
	if err := m.Send("warp_drive"); err == nil {
		t.Error("unknown command accepted")
	}
}

func TestClockAndStatus(t *testing.T) {
	m, _ := newTestMCU(t)

	clock, err := m.Clock()
	if err != nil {
		t.Fatal(err)
	}
	if clock != 123456 {
		t.Errorf("clock %d", clock)
	}

	st, err := m.Status()
	if err != nil {
		t.Fatal(err)
	}
	want := Status{
		DisplayRunning: true,
		ToneEnabled:    true,
		ToneFrequency:  523,
		NotesEnabled:   true,
		NotesMode:      core.ModeRandomized,
		NotesFrequency: 523,
		NotesPeriod:    150 * time.Millisecond,
	}
	if st != want {
		t.Errorf("status %+v, want %+v", st, want)
	}
}

func TestEvents(t *testing.T) {
	m, _ := newTestMCU(t)

	events, err := m.Events()
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 {
		t.Fatalf("%d events, want 2", len(events))
	}
	for i, evt := range events {
		if evt.Type != core.EvtToneStop || evt.Clock != uint32(1000*(i+1)) || evt.Value1 != uint32(i+1) {
			t.Errorf("event %d: %+v", i, evt)
		}
	}
}

func TestSendBeforeDictionary(t *testing.T) {
	m := New(nil)
	if err := m.Send("get_clock"); err == nil {
		t.Error("send without a dictionary accepted")
	}
	if err := m.RetrieveDictionary(); err == nil {
		t.Error("retrieve without a connection accepted")
	}
}
