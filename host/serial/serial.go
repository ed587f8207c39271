// Package serial opens the control link port of a noise toy.
package serial

import (
	"io"
	"time"
)

// Port is an open serial link
type Port interface {
	io.ReadWriteCloser

	// Flush flushes any buffered data
	Flush() error
}

// Config holds serial port configuration
type Config struct {
	// Device path (e.g., "/dev/ttyACM0", "COM3"), or "auto"
	Device string

	// Baud rate; the micro:bit USB bridge runs the UART at 115200
	Baud int

	// ReadTimeout bounds each read (0 blocks)
	ReadTimeout time.Duration
}

// AutoDevice asks Open to look for a connected micro:bit
const AutoDevice = "auto"

// DefaultConfig returns the configuration for a micro:bit on device
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        115200,
		ReadTimeout: 100 * time.Millisecond,
	}
}
