package serial

import (
	"testing"

	"go.bug.st/serial/enumerator"
)

func TestPickMicrobit(t *testing.T) {
	ports := []*enumerator.PortDetails{
		{Name: "/dev/ttyS0"},
		{Name: "/dev/ttyUSB0", IsUSB: true, VID: "0403", PID: "6001"},
		{Name: "/dev/ttyACM0", IsUSB: true, VID: "0D28", PID: "0204"},
		{Name: "/dev/ttyACM1", IsUSB: true, VID: "0d28", PID: "0204"},
	}
	name, err := pickMicrobit(ports)
	if err != nil || name != "/dev/ttyACM0" {
		t.Errorf("picked %q, %v", name, err)
	}

	if _, err := pickMicrobit(ports[:2]); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
