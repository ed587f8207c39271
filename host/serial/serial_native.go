//go:build !wasm

package serial

import (
	"github.com/pkg/errors"
	"github.com/tarm/serial"
)

// NativePort wraps the tarm/serial implementation
type NativePort struct {
	port *serial.Port
	cfg  *Config
}

// Open opens a native serial port, resolving AutoDevice first
func Open(cfg *Config) (Port, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	device := cfg.Device
	if device == "" || device == AutoDevice {
		found, err := Detect()
		if err != nil {
			return nil, err
		}
		device = found
	}

	port, err := serial.OpenPort(&serial.Config{
		Name:        device,
		Baud:        cfg.Baud,
		ReadTimeout: cfg.ReadTimeout,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "open serial port %s", device)
	}

	resolved := *cfg
	resolved.Device = device
	return &NativePort{port: port, cfg: &resolved}, nil
}

// Device returns the opened device path
func (p *NativePort) Device() string { return p.cfg.Device }

func (p *NativePort) Read(b []byte) (int, error) {
	return p.port.Read(b)
}

func (p *NativePort) Write(b []byte) (int, error) {
	return p.port.Write(b)
}

func (p *NativePort) Close() error {
	if p.port != nil {
		return p.port.Close()
	}
	return nil
}

// Flush discards unread input so a new session starts clean
func (p *NativePort) Flush() error {
	return p.port.Flush()
}
