// Package mcu talks to a noise toy over its control link.
package mcu

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/pkg/errors"

	"noiser/core"
	"noiser/host/serial"
	"noiser/protocol"
)

// Bootstrap ids, fixed before the dictionary is known
const (
	identifyResponseID = 0
	identifyID         = 1

	chunkSize       = 40
	maxChunks       = 1000
	responseTimeout = time.Second
)

// MCU is a connection to a noise toy
type MCU struct {
	transport *protocol.HostTransport
	log       *slog.Logger

	dictionary *Dictionary
	raw        []byte
	commands   map[string]entry
	responses  map[string]entry
}

// Dictionary is the parsed identify data
type Dictionary struct {
	Version       string            `json:"version"`
	BuildVersions string            `json:"build_versions"`
	Config        map[string]string `json:"config"`
	Commands      map[string]int    `json:"commands"`
	Responses     map[string]int    `json:"responses"`
}

// entry is a dictionary message by name
type entry struct {
	id     uint16
	params []string
}

// Status is the decoded get_status response
type Status struct {
	DisplayRunning bool
	ToneEnabled    bool
	ToneFrequency  uint32
	NotesEnabled   bool
	NotesMode      core.FrequencyMode
	NotesFrequency uint32
	NotesPeriod    time.Duration
}

// New returns an unconnected MCU
func New(log *slog.Logger) *MCU {
	if log == nil {
		log = slog.Default()
	}
	return &MCU{log: log}
}

// Connect opens the serial port described by cfg
func (m *MCU) Connect(cfg *serial.Config) error {
	port, err := serial.Open(cfg)
	if err != nil {
		return errors.Wrap(err, "connect")
	}
	if err := port.Flush(); err != nil {
		m.log.Warn("flush failed", "err", err)
	}
	m.Attach(port)
	return nil
}

// Attach uses an already open link
func (m *MCU) Attach(port io.ReadWriteCloser) {
	m.transport = protocol.NewHostTransport(port)
	m.transport.SetResponseHandler(m.handleResponse)
}

// Run reads the link until ctx is done or the connection fails
func (m *MCU) Run(ctx context.Context) error {
	if m.transport == nil {
		return errors.New("not connected")
	}
	return m.transport.Run(ctx)
}

func (m *MCU) Close() error {
	if m.transport == nil {
		return nil
	}
	return m.transport.Close()
}

func (m *MCU) handleResponse(cmdID uint16, data *[]byte) error {
	m.log.Debug("response", "id", cmdID, "bytes", len(*data))
	return nil
}

// RetrieveDictionary downloads and parses the dictionary
func (m *MCU) RetrieveDictionary() error {
	if m.transport == nil {
		return errors.New("not connected")
	}

	var raw []byte
	for i := 0; i < maxChunks; i++ {
		chunk, err := m.identify(uint32(len(raw)), chunkSize)
		if err != nil {
			return errors.Wrapf(err, "dictionary chunk at %d", len(raw))
		}
		raw = append(raw, chunk...)
		if len(chunk) < chunkSize {
			break
		}
	}
	m.log.Debug("dictionary retrieved", "bytes", len(raw))

	dict := &Dictionary{}
	if err := json.Unmarshal(raw, dict); err != nil {
		return errors.Wrap(err, "parse dictionary")
	}
	m.raw = raw
	m.dictionary = dict
	m.commands = index(dict.Commands)
	m.responses = index(dict.Responses)
	return nil
}

func (m *MCU) identify(offset uint32, count uint8) ([]byte, error) {
	err := m.transport.SendCommand(identifyID, func(output protocol.OutputBuffer) {
		protocol.EncodeUint(output, offset)
		protocol.EncodeUint(output, uint32(count))
	})
	if err != nil {
		return nil, err
	}

	data, err := m.transport.AwaitResponse(identifyResponseID, responseTimeout)
	if err != nil {
		return nil, err
	}
	got, err := protocol.DecodeUint(&data)
	if err != nil {
		return nil, err
	}
	if got != offset {
		return nil, errors.Errorf("identify answered offset %d, asked %d", got, offset)
	}
	chunk, err := protocol.DecodeBytes(&data)
	return append([]byte(nil), chunk...), err
}

// index maps message names to ids and parameter names
func index(sigs map[string]int) map[string]entry {
	out := make(map[string]entry, len(sigs))
	for sig, id := range sigs {
		fields := strings.Fields(sig)
		if len(fields) == 0 {
			continue
		}
		e := entry{id: uint16(id)}
		for _, f := range fields[1:] {
			name, _, _ := strings.Cut(f, "=")
			e.params = append(e.params, name)
		}
		out[fields[0]] = e
	}
	return out
}

// Dictionary returns the parsed dictionary, nil before RetrieveDictionary
func (m *MCU) Dictionary() *Dictionary { return m.dictionary }

// RawDictionary returns the dictionary JSON as downloaded
func (m *MCU) RawDictionary() []byte { return m.raw }

// Send sends a command by name with integer arguments
func (m *MCU) Send(name string, args ...uint32) error {
	if m.dictionary == nil {
		return errors.New("dictionary not loaded")
	}
	e, ok := m.commands[name]
	if !ok {
		return errors.Errorf("unknown command %q", name)
	}
	if len(args) != len(e.params) {
		return errors.Errorf("%s takes %d arguments (%s), got %d",
			name, len(e.params), strings.Join(e.params, " "), len(args))
	}
	return m.transport.SendCommand(e.id, func(output protocol.OutputBuffer) {
		for _, a := range args {
			protocol.EncodeUint(output, a)
		}
	})
}

// Query sends a command and decodes the integer fields of the named response
func (m *MCU) Query(response, name string, args ...uint32) ([]uint32, error) {
	if err := m.Send(name, args...); err != nil {
		return nil, err
	}
	e, ok := m.responses[response]
	if !ok {
		return nil, errors.Errorf("unknown response %q", response)
	}
	data, err := m.transport.AwaitResponse(e.id, responseTimeout)
	if err != nil {
		return nil, err
	}
	vals := make([]uint32, len(e.params))
	for i := range vals {
		if vals[i], err = protocol.DecodeUint(&data); err != nil {
			return nil, errors.Wrapf(err, "%s.%s", response, e.params[i])
		}
	}
	return vals, nil
}

// Clock reads the toy's timer
func (m *MCU) Clock() (uint32, error) {
	vals, err := m.Query("clock", "get_clock")
	if err != nil {
		return 0, err
	}
	return vals[0], nil
}

// Status reads the state of every component
func (m *MCU) Status() (Status, error) {
	v, err := m.Query("status", "get_status")
	if err != nil {
		return Status{}, err
	}
	if len(v) != 7 {
		return Status{}, errors.Errorf("status has %d fields", len(v))
	}
	return Status{
		DisplayRunning: v[0] != 0,
		ToneEnabled:    v[1] != 0,
		ToneFrequency:  v[2],
		NotesEnabled:   v[3] != 0,
		NotesMode:      core.FrequencyMode(v[4]),
		NotesFrequency: v[5],
		NotesPeriod:    time.Duration(core.TimerToUS(v[6])) * time.Microsecond,
	}, nil
}

// Events fetches the toy's event ring. The events are queued before the
// command is acknowledged.
func (m *MCU) Events() ([]core.Event, error) {
	if err := m.Send("dump_events"); err != nil {
		return nil, err
	}
	e, ok := m.responses["event"]
	if !ok {
		return nil, errors.New("toy has no event response")
	}

	var events []core.Event
	for {
		data, err := m.transport.AwaitResponse(e.id, 50*time.Millisecond)
		if err != nil {
			return events, nil
		}
		var v [4]uint32
		for i := range v {
			if v[i], err = protocol.DecodeUint(&data); err != nil {
				return events, errors.Wrap(err, "decode event")
			}
		}
		events = append(events, core.Event{Type: uint8(v[0]), Clock: v[1], Value1: v[2], Value2: v[3]})
	}
}
