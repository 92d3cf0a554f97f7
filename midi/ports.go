package midi

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register MIDI driver
)

// ErrPortNotFound is returned when no port matches the configured name
var ErrPortNotFound = errors.New("midi port not found")

// ErrPortsTimeout is returned when the driver does not answer
var ErrPortsTimeout = errors.New("timed out listing midi ports (try: sudo killall coreaudiod midiserver)")

// portTimeout bounds port enumeration; CoreMIDI can hang
const portTimeout = 3 * time.Second

// Ports returns the current input and output ports
func Ports() ([]drivers.In, []drivers.Out, error) {
	type portsResult struct {
		ins  []drivers.In
		outs []drivers.Out
	}
	ch := make(chan portsResult, 1)
	go func() {
		ch <- portsResult{ins: gomidi.GetInPorts(), outs: gomidi.GetOutPorts()}
	}()

	select {
	case r := <-ch:
		return r.ins, r.outs, nil
	case <-time.After(portTimeout):
		return nil, nil, ErrPortsTimeout
	}
}

// OutPortNames lists output port names
func OutPortNames() ([]string, error) {
	_, outs, err := Ports()
	if err != nil {
		return nil, err
	}
	names := make([]string, len(outs))
	for i, p := range outs {
		names[i] = p.String()
	}
	return names, nil
}

// InPortNames lists input port names
func InPortNames() ([]string, error) {
	ins, _, err := Ports()
	if err != nil {
		return nil, err
	}
	names := make([]string, len(ins))
	for i, p := range ins {
		names[i] = p.String()
	}
	return names, nil
}

// FindOutPort returns the output port whose name matches name. An empty
// name picks the first port.
func FindOutPort(name string) (drivers.Out, error) {
	_, outs, err := Ports()
	if err != nil {
		return nil, err
	}
	names := make([]string, len(outs))
	for i, p := range outs {
		names[i] = p.String()
	}
	i := matchPort(names, name)
	if i < 0 {
		return nil, errors.Wrapf(ErrPortNotFound, "output %q", name)
	}
	return outs[i], nil
}

// FindInPort returns the input port whose name matches name
func FindInPort(name string) (drivers.In, error) {
	ins, _, err := Ports()
	if err != nil {
		return nil, err
	}
	names := make([]string, len(ins))
	for i, p := range ins {
		names[i] = p.String()
	}
	i := matchPort(names, name)
	if i < 0 {
		return nil, errors.Wrapf(ErrPortNotFound, "input %q", name)
	}
	return ins[i], nil
}

// matchPort prefers an exact name, then a case-insensitive substring
func matchPort(names []string, want string) int {
	if len(names) == 0 {
		return -1
	}
	if want == "" {
		return 0
	}
	for i, n := range names {
		if n == want {
			return i
		}
	}
	want = strings.ToLower(want)
	for i, n := range names {
		if strings.Contains(strings.ToLower(n), want) {
			return i
		}
	}
	return -1
}
