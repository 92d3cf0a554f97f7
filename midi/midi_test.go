package midi

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	gomidi "gitlab.com/gomidi/midi/v2"
)

func TestVelocity(t *testing.T) {
	tests := []struct {
		db   float64
		want uint8
	}{
		{0, 127},
		{6, 127},
		{-6, 64},
		{-20, 13},
		{-60, 1},
	}
	for _, tc := range tests {
		if got := Velocity(tc.db); got != tc.want {
			t.Errorf("Velocity(%v) = %d, want %d", tc.db, got, tc.want)
		}
	}
}

func TestKitNotes(t *testing.T) {
	tests := []struct {
		kit, instrument string
		want            uint8
	}{
		{"gm", "bass", 36},
		{"gm", "snare", 38},
		{"rd8", "snare", 40},
		{"rd8", "tom1", 50},
		{"tr8s", "ride", 51},
		{"er1", "tom2", 40},
		{"unknown", "hihat-open", 46},
	}
	for _, tc := range tests {
		got, err := GetKit(tc.kit).Note(tc.instrument)
		if err != nil || got != tc.want {
			t.Errorf("%s/%s = %d, %v; want %d", tc.kit, tc.instrument, got, err, tc.want)
		}
	}
	if _, err := GetKit("gm").Note("cowbell"); errors.Cause(err) != ErrNoNote {
		t.Errorf("cowbell: err = %v, want ErrNoNote", err)
	}
}

func TestKitInstrument(t *testing.T) {
	for _, name := range KitNames() {
		kit := GetKit(name)
		for id := range instrumentSlots {
			note, _ := kit.Note(id)
			if got, ok := kit.Instrument(note); !ok || got != id {
				t.Errorf("%s: note %d maps back to %q, want %q", name, note, got, id)
			}
		}
	}
}

func TestMatchPort(t *testing.T) {
	names := []string{"IAC Driver Bus 1", "RD-8 MIDI", "TR-8S"}
	tests := []struct {
		want string
		idx  int
	}{
		{"", 0},
		{"TR-8S", 2},
		{"rd-8", 1},
		{"bus", 0},
		{"volca", -1},
	}
	for _, tc := range tests {
		if got := matchPort(names, tc.want); got != tc.idx {
			t.Errorf("matchPort(%q) = %d, want %d", tc.want, got, tc.idx)
		}
	}
	if got := matchPort(nil, ""); got != -1 {
		t.Errorf("matchPort(nil) = %d, want -1", got)
	}
}

func TestOutput_Trigger(t *testing.T) {
	var sent []gomidi.Message
	o := newOutput(func(m gomidi.Message) error {
		sent = append(sent, m)
		return nil
	}, 10, "gm")

	if err := o.Trigger("snare", -6); err != nil {
		t.Fatal(err)
	}
	if err := o.Click(0); err != nil {
		t.Fatal(err)
	}
	if len(sent) != 4 {
		t.Fatalf("sent %d messages, want 4", len(sent))
	}

	var ch, key, vel uint8
	if !sent[0].GetNoteOn(&ch, &key, &vel) || ch != 9 || key != 38 || vel != 64 {
		t.Errorf("first message = %v, want note on ch 9 key 38 vel 64", sent[0])
	}
	if !sent[1].GetNoteOff(&ch, &key, &vel) || key != 38 {
		t.Errorf("second message = %v, want note off 38", sent[1])
	}
	if !sent[2].GetNoteOn(&ch, &key, &vel) || key != ClickNote || vel != 127 {
		t.Errorf("click = %v, want note on %d vel 127", sent[2], ClickNote)
	}

	if err := o.Trigger("cowbell", 0); errors.Cause(err) != ErrNoNote {
		t.Errorf("cowbell: err = %v, want ErrNoNote", err)
	}
	if len(sent) != 4 {
		t.Error("unknown instrument sent a message")
	}
}

func TestOutput_SendError(t *testing.T) {
	o := newOutput(func(gomidi.Message) error { return errors.New("port gone") }, 10, "gm")
	if err := o.Trigger("bass", 0); err == nil {
		t.Error("send error swallowed")
	}
}

func TestKeyboard_Handle(t *testing.T) {
	kb := newKeyboard("gm")
	kb.handle(gomidi.NoteOn(9, 38, 100))
	kb.handle(gomidi.NoteOn(9, 42, 0)) // note off in disguise
	kb.handle(gomidi.NoteOff(9, 38))
	kb.handle(gomidi.NoteOn(0, 60, 90))

	var got []NoteEvent
	for len(kb.noteChan) > 0 {
		got = append(got, <-kb.noteChan)
	}
	want := []NoteEvent{
		{Instrument: "snare", Note: 38, Velocity: 100, Channel: 9},
		{Instrument: "", Note: 60, Velocity: 90, Channel: 0},
	}
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %+v, want %+v", i, got[i], want[i])
		}
	}
	kb.Close()
}

func TestDeviceManager_HotPlug(t *testing.T) {
	dm := newDeviceManager("pads")
	ports := []string{"IAC Bus"}
	var opened []*Keyboard
	dm.list = func() ([]string, error) { return ports, nil }
	dm.open = func(string) (*Keyboard, error) {
		kb := newKeyboard("gm")
		opened = append(opened, kb)
		return kb, nil
	}

	dm.scan()
	if got := dm.Port(); got != "" {
		t.Fatalf("Port() = %q before the device appears", got)
	}

	ports = append(ports, "Drum Pads MIDI")
	dm.scan()
	if got := dm.Port(); got != "Drum Pads MIDI" {
		t.Fatalf("Port() = %q, want Drum Pads MIDI", got)
	}
	if ev := <-dm.Events(); ev.Type != DeviceConnected {
		t.Errorf("event = %v, want connected", ev.Type)
	}

	opened[0].handle(gomidi.NoteOn(9, 38, 100))
	select {
	case n := <-dm.NoteEvents():
		if n.Instrument != "snare" {
			t.Errorf("instrument = %q, want snare", n.Instrument)
		}
	case <-time.After(time.Second):
		t.Fatal("note not forwarded")
	}

	dm.scan()
	if len(opened) != 1 {
		t.Errorf("opened %d keyboards, want 1", len(opened))
	}

	ports = ports[:1]
	dm.scan()
	if got := dm.Port(); got != "" {
		t.Errorf("Port() = %q after unplug", got)
	}
	if ev := <-dm.Events(); ev.Type != DeviceDisconnected || ev.Port != "Drum Pads MIDI" {
		t.Errorf("event = %+v, want disconnect of Drum Pads MIDI", ev)
	}
}
