package midi

import (
	"math"
	"sync"

	"github.com/pkg/errors"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"go-rhythm/debug"
)

// Output plays triggers on an external drum machine
type Output struct {
	port    drivers.Out
	send    func(gomidi.Message) error
	channel uint8 // 0-based
	kit     DrumKit
	mu      sync.Mutex // serializes note pairs
}

// NewOutput opens port and sends on channel (1-16) using the named note map
func NewOutput(port drivers.Out, channel int, kit string) (*Output, error) {
	send, err := gomidi.SendTo(port)
	if err != nil {
		return nil, errors.Wrapf(err, "open output %s", port.String())
	}
	o := newOutput(send, channel, kit)
	o.port = port
	debug.Log("midi", "output %s ch %d kit %s", port.String(), channel, o.kit.Name)
	return o, nil
}

func newOutput(send func(gomidi.Message) error, channel int, kit string) *Output {
	if channel < 1 || channel > 16 {
		channel = 10
	}
	return &Output{
		send:    send,
		channel: uint8(channel - 1),
		kit:     GetKit(kit),
	}
}

func (o *Output) Trigger(instrument string, volumeDb float64) error {
	note, err := o.kit.Note(instrument)
	if err != nil {
		return err
	}
	return o.hit(note, Velocity(volumeDb))
}

func (o *Output) Click(volumeDb float64) error {
	return o.hit(ClickNote, Velocity(volumeDb))
}

// hit sends a NoteOn immediately followed by its NoteOff; drum voices
// ignore note length
func (o *Output) hit(note, velocity uint8) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.send(gomidi.NoteOn(o.channel, note, velocity)); err != nil {
		return errors.Wrapf(err, "note on %d", note)
	}
	if err := o.send(gomidi.NoteOff(o.channel, note)); err != nil {
		return errors.Wrapf(err, "note off %d", note)
	}
	return nil
}

// Close releases the port
func (o *Output) Close() error {
	if o.port == nil {
		return nil
	}
	return o.port.Close()
}

// Velocity converts a trigger volume in dB (0 = full) to a MIDI velocity
func Velocity(db float64) uint8 {
	v := math.Round(127 * math.Pow(10, db/20))
	if v < 1 {
		return 1
	}
	if v > 127 {
		return 127
	}
	return uint8(v)
}
