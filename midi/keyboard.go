package midi

import (
	"github.com/pkg/errors"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// NoteEvent is a pad or key hit from an input device
type NoteEvent struct {
	Instrument string // empty when the note is not on the kit
	Note       uint8
	Velocity   uint8
	Channel    uint8
}

// Keyboard listens to a MIDI input and reports hits for auditioning
type Keyboard struct {
	kit      DrumKit
	stopFunc func()
	noteChan chan NoteEvent
}

// NewKeyboard starts listening on inPort, mapping notes through the named kit
func NewKeyboard(inPort drivers.In, kit string) (*Keyboard, error) {
	kb := newKeyboard(kit)
	stop, err := gomidi.ListenTo(inPort, func(msg gomidi.Message, timestampms int32) {
		kb.handle(msg)
	})
	if err != nil {
		return nil, errors.Wrapf(err, "open input %s", inPort.String())
	}
	kb.stopFunc = stop
	return kb, nil
}

func newKeyboard(kit string) *Keyboard {
	return &Keyboard{
		kit:      GetKit(kit),
		noteChan: make(chan NoteEvent, 32),
	}
}

func (kb *Keyboard) handle(msg gomidi.Message) {
	var channel, note, velocity uint8
	if !msg.GetNoteOn(&channel, &note, &velocity) || velocity == 0 {
		return
	}
	id, _ := kb.kit.Instrument(note)
	select {
	case kb.noteChan <- NoteEvent{Instrument: id, Note: note, Velocity: velocity, Channel: channel}:
	default:
	}
}

func (kb *Keyboard) NoteEvents() <-chan NoteEvent {
	return kb.noteChan
}

// Close stops listening and closes the event channel
func (kb *Keyboard) Close() error {
	if kb.stopFunc != nil {
		kb.stopFunc()
	}
	close(kb.noteChan)
	return nil
}
