package midi

import (
	"context"
	"sync"
	"time"

	"go-rhythm/debug"
)

// DeviceEvent is emitted when the watched input connects or disconnects
type DeviceEvent struct {
	Type DeviceEventType
	Port string
}

type DeviceEventType int

const (
	DeviceConnected DeviceEventType = iota
	DeviceDisconnected
)

func (t DeviceEventType) String() string {
	if t == DeviceConnected {
		return "connected"
	}
	return "disconnected"
}

// DeviceManager handles hot-plug of the preview keyboard. It polls the
// input ports and keeps a Keyboard open on the one matching the wanted
// name, forwarding its hits to a single channel that survives reconnects.
type DeviceManager struct {
	want     string
	mu       sync.Mutex
	port     string
	kb       *Keyboard
	notes    chan NoteEvent
	events   chan DeviceEvent
	pollRate time.Duration

	list func() ([]string, error)
	open func(port string) (*Keyboard, error)
}

// NewDeviceManager watches for an input port matching port, mapping notes
// through the named kit
func NewDeviceManager(port, kit string) *DeviceManager {
	dm := newDeviceManager(port)
	dm.list = InPortNames
	dm.open = func(name string) (*Keyboard, error) {
		in, err := FindInPort(name)
		if err != nil {
			return nil, err
		}
		return NewKeyboard(in, kit)
	}
	return dm
}

func newDeviceManager(port string) *DeviceManager {
	return &DeviceManager{
		want:     port,
		notes:    make(chan NoteEvent, 32),
		events:   make(chan DeviceEvent, 16),
		pollRate: time.Second,
	}
}

// Events returns a channel of connect/disconnect events
func (dm *DeviceManager) Events() <-chan DeviceEvent {
	return dm.events
}

// NoteEvents returns hits from whichever keyboard is connected
func (dm *DeviceManager) NoteEvents() <-chan NoteEvent {
	return dm.notes
}

// Port returns the connected port name, empty when none
func (dm *DeviceManager) Port() string {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	return dm.port
}

// Run starts the polling loop (blocking - run in goroutine)
func (dm *DeviceManager) Run(ctx context.Context) {
	ticker := time.NewTicker(dm.pollRate)
	defer ticker.Stop()

	// Initial scan
	dm.scan()

	for {
		select {
		case <-ctx.Done():
			dm.closeAll()
			close(dm.events)
			return
		case <-ticker.C:
			dm.scan()
		}
	}
}

func (dm *DeviceManager) scan() {
	names, err := dm.list()
	if err != nil {
		// CoreMIDI is hung - skip this scan
		debug.LogEvery(30, "midi", "scan: %v", err)
		return
	}
	i := matchPort(names, dm.want)

	dm.mu.Lock()
	defer dm.mu.Unlock()

	if dm.kb != nil {
		if i >= 0 && names[i] == dm.port {
			return
		}
		dm.disconnect()
	}
	if i < 0 {
		return
	}

	kb, err := dm.open(names[i])
	if err != nil {
		debug.Warn("midi", "open input %s: %v", names[i], err)
		return
	}
	dm.kb, dm.port = kb, names[i]
	go dm.forward(kb)
	dm.emit(DeviceEvent{Type: DeviceConnected, Port: dm.port})
	debug.Log("midi", "keyboard connected: %s", dm.port)
}

// forward copies one keyboard's hits until it is closed
func (dm *DeviceManager) forward(kb *Keyboard) {
	for ev := range kb.NoteEvents() {
		select {
		case dm.notes <- ev:
		default:
		}
	}
}

// disconnect must be called with mu held
func (dm *DeviceManager) disconnect() {
	dm.kb.Close()
	dm.emit(DeviceEvent{Type: DeviceDisconnected, Port: dm.port})
	debug.Log("midi", "keyboard disconnected: %s", dm.port)
	dm.kb, dm.port = nil, ""
}

func (dm *DeviceManager) emit(ev DeviceEvent) {
	select {
	case dm.events <- ev:
	default:
	}
}

func (dm *DeviceManager) closeAll() {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	if dm.kb != nil {
		dm.disconnect()
	}
}
