//go:build !wasm

package serial

import (
	"strings"

	"github.com/pkg/errors"
	"go.bug.st/serial/enumerator"
)

// USB identity of the micro:bit interface chip (Arm DAPLink)
const (
	MicrobitVID = "0d28"
	MicrobitPID = "0204"
)

// ErrNotFound is returned by Detect when no micro:bit is attached
var ErrNotFound = errors.New("no micro:bit serial port found")

// Detect returns the first serial port belonging to a micro:bit
func Detect() (string, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return "", errors.Wrap(err, "enumerate serial ports")
	}
	return pickMicrobit(ports)
}

func pickMicrobit(ports []*enumerator.PortDetails) (string, error) {
	for _, p := range ports {
		if p.IsUSB && strings.EqualFold(p.VID, MicrobitVID) && strings.EqualFold(p.PID, MicrobitPID) {
			return p.Name, nil
		}
	}
	return "", ErrNotFound
}
