package sequencer

import (
	"sync/atomic"

	"go-rhythm/debug"
)

// ClickVolume is the fixed level of the count-in click, in dB
const ClickVolume = -6.0

// Backend produces sound. Implementations must return quickly: they are
// called from the tick path.
type Backend interface {
	// Trigger sounds an instrument at volumeDb (0 = full level)
	Trigger(instrument string, volumeDb float64) error
	// Click sounds the count-in click
	Click(volumeDb float64) error
}

// Dispatcher turns fired cells into backend calls and owns the live
// accent attenuation.
type Dispatcher struct {
	backend   atomic.Pointer[backendRef]
	reduction atomic.Int32 // dB subtracted from non-accented hits
}

type backendRef struct{ Backend }

// NewDispatcher creates a dispatcher with the given attenuation in dB
func NewDispatcher(b Backend, accentReduction int) *Dispatcher {
	d := &Dispatcher{}
	d.SetBackend(b)
	d.reduction.Store(int32(accentReduction))
	return d
}

// SetBackend swaps the backend; the next trigger uses the new one
func (d *Dispatcher) SetBackend(b Backend) {
	d.backend.Store(&backendRef{b})
}

// SetAccentReduction sets the attenuation of non-accented hits in dB
func (d *Dispatcher) SetAccentReduction(db int) {
	d.reduction.Store(int32(db))
}

func (d *Dispatcher) AccentReduction() int {
	return int(d.reduction.Load())
}

// Volume is 0 dB for accented hits and -reduction dB otherwise
func (d *Dispatcher) Volume(accent bool) float64 {
	if accent {
		return 0
	}
	return -float64(d.reduction.Load())
}

// Trigger sends one hit to the backend. Failures and panics are logged
// and dropped.
func (d *Dispatcher) Trigger(instrument string, accent bool) {
	ref := d.backend.Load()
	if ref == nil || ref.Backend == nil {
		return
	}
	vol := d.Volume(accent)
	defer func() {
		if r := recover(); r != nil {
			debug.Warn("dispatch", "trigger %s panicked: %v", instrument, r)
		}
	}()
	if err := ref.Trigger(instrument, vol); err != nil {
		debug.Warn("dispatch", "trigger %s at %.1fdB: %v", instrument, vol, err)
	}
}

// Preview auditions an instrument outside the transport
func (d *Dispatcher) Preview(instrument string) {
	d.Trigger(instrument, false)
}

// Click sends the count-in click
func (d *Dispatcher) Click() {
	ref := d.backend.Load()
	if ref == nil || ref.Backend == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			debug.Warn("dispatch", "count-in click panicked: %v", r)
		}
	}()
	if err := ref.Click(ClickVolume); err != nil {
		debug.Warn("dispatch", "count-in click: %v", err)
	}
}
