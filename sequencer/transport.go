package sequencer

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"go-rhythm/debug"
	"go-rhythm/pattern"
)

// DefaultSettle is the pause between tearing down and rebuilding the
// schedule on a structural change
const DefaultSettle = 10 * time.Millisecond

// ErrRebuildBusy is returned when a structural change is refused because
// another one is in flight
var ErrRebuildBusy = errors.New("meter change in flight")

// TransportConfig wires a Transport to its collaborators
type TransportConfig struct {
	Clock      Clock
	Dispatcher *Dispatcher
	Roster     []string // instrument ids, in firing order
	Settle     time.Duration
	OnPosition func(PositionEvent)
	OnPhase    func(Phase)
}

// Transport advances the step counter in real time and fires pattern cells.
//
// Every value the tick reads is an atomic so edits made from other
// goroutines are seen on the next tick without locking the tick path.
// Control operations (start, stop, pause, structural changes) serialize on
// ctrl, which the tick never takes.
type Transport struct {
	clock      Clock
	dispatch   *Dispatcher
	roster     []string
	settle     time.Duration
	onPosition func(PositionEvent)
	onPhase    func(Phase)

	tempo       atomic.Int32
	beats       atomic.Int32 // meter the schedule runs at
	subdivision atomic.Int32
	wantBeats   atomic.Int32 // latest requested meter
	wantSub     atomic.Int32
	measures    atomic.Int32
	countIn     atomic.Bool
	fillEnabled atomic.Bool
	main        atomic.Pointer[pattern.Pattern]
	fill        atomic.Pointer[pattern.Pattern]

	step    atomic.Int32 // next step to play, 0-based
	measure atomic.Int32 // 0 = count-in, then 1..measures
	phase   atomic.Int32

	ctrl       sync.Mutex
	sched      Schedule
	rebuilding atomic.Bool
}

// NewTransport creates a stopped transport with empty patterns
func NewTransport(cfg TransportConfig, s Settings) *Transport {
	if cfg.Clock == nil {
		cfg.Clock = WallClock{}
	}
	if cfg.Dispatcher == nil {
		cfg.Dispatcher = NewDispatcher(nil, 0)
	}
	t := &Transport{
		clock:      cfg.Clock,
		dispatch:   cfg.Dispatcher,
		roster:     append([]string(nil), cfg.Roster...),
		settle:     cfg.Settle,
		onPosition: cfg.OnPosition,
		onPhase:    cfg.OnPhase,
	}
	t.tempo.Store(int32(s.Tempo))
	t.beats.Store(int32(s.BeatsPerMeasure))
	t.subdivision.Store(int32(s.Subdivision))
	t.wantBeats.Store(int32(s.BeatsPerMeasure))
	t.wantSub.Store(int32(s.Subdivision))
	t.measures.Store(int32(s.Measures))
	t.countIn.Store(s.CountIn)
	t.fillEnabled.Store(s.FillEnabled)

	empty := pattern.Empty(t.roster, s.Meter())
	t.main.Store(&empty)
	t.fill.Store(&empty)

	t.measure.Store(1)
	return t
}

// Phase returns the current transport state
func (t *Transport) Phase() Phase {
	return Phase(t.phase.Load())
}

func (t *Transport) setPhase(p Phase) {
	if Phase(t.phase.Swap(int32(p))) == p {
		return
	}
	debug.Log("transport", "phase -> %s", p)
	if t.onPhase != nil {
		t.onPhase(p)
	}
}

// Counters returns the next step to play and the current measure
func (t *Transport) Counters() (step, measure int) {
	return int(t.step.Load()), int(t.measure.Load())
}

// Start begins playback, with a count-in measure when count-in is enabled.
// Calling Start while running only makes sure the schedule is armed.
// From Paused it resumes at the frozen position.
func (t *Transport) Start() {
	t.start(t.countIn.Load())
}

// StartWithoutCountIn begins playback directly, ignoring the count-in setting
func (t *Transport) StartWithoutCountIn() {
	t.start(false)
}

func (t *Transport) start(countIn bool) {
	t.ctrl.Lock()
	defer t.ctrl.Unlock()

	switch t.Phase() {
	case Playing, CountingIn:
		t.arm()
		return
	case Paused:
		if t.measure.Load() != 0 {
			t.setPhase(Playing)
		} else if countIn {
			t.setPhase(CountingIn)
		} else {
			// skip the rest of the count-in
			t.step.Store(0)
			t.measure.Store(1)
			t.setPhase(Playing)
		}
	default:
		t.step.Store(0)
		if countIn {
			t.measure.Store(0)
			t.setPhase(CountingIn)
		} else {
			t.measure.Store(1)
			t.setPhase(Playing)
		}
	}
	t.arm()
}

// Pause halts the timer and freezes the counters
func (t *Transport) Pause() {
	t.ctrl.Lock()
	defer t.ctrl.Unlock()

	if p := t.Phase(); p != Playing && p != CountingIn {
		return
	}
	t.halt()
	t.setPhase(Paused)
}

// Stop halts the timer and rewinds to the top of measure 1. No tick
// side effect happens after Stop returns.
func (t *Transport) Stop() {
	t.ctrl.Lock()
	defer t.ctrl.Unlock()

	if t.Phase() == Stopped {
		return
	}
	t.halt()
	t.step.Store(0)
	t.measure.Store(1)
	t.emit(resetPosition)
	t.setPhase(Stopped)
}

// arm starts the schedule if none is running. Caller holds ctrl.
func (t *Transport) arm() {
	if t.sched != nil {
		return
	}
	sub := int(t.subdivision.Load())
	t.sched = t.clock.Every(func() time.Duration {
		return stepInterval(int(t.tempo.Load()), sub)
	}, t.tick)
	debug.Log("transport", "armed: %d bpm, subdivision %d", t.tempo.Load(), sub)
}

// halt stops the schedule and waits out any tick in flight. Caller holds ctrl.
func (t *Transport) halt() {
	if t.sched == nil {
		return
	}
	t.sched.Stop()
	t.sched = nil
}

func (t *Transport) emit(e PositionEvent) {
	if t.onPosition != nil {
		t.onPosition(e)
	}
}

// tick plays one step. It is the only place counters advance.
func (t *Transport) tick() {
	beats := int(t.beats.Load())
	sub := int(t.subdivision.Load())
	step := int(t.step.Load())
	loaded := t.measure.Load()
	measure := int(loaded)
	measures := int(t.measures.Load())
	if measure > measures {
		measure = 1
	}
	pos := pattern.StepToPosition(step, sub)

	if measure == 0 {
		t.fire(func() {
			if pos.SubBeat == 1 {
				t.dispatch.Click()
			}
			t.emit(PositionEvent{Beat: pos.Beat, Measure: 0, SubBeat: pos.SubBeat})
		})

		if step >= pattern.TotalSteps(beats, sub)-1 {
			t.step.Store(0)
			t.measure.Store(1)
			t.setPhase(Playing)
			return
		}
	} else {
		t.fire(func() {
			active := t.main.Load()
			if measure == measures && t.fillEnabled.Load() {
				active = t.fill.Load()
			}
			key := pos.Key()
			for _, id := range t.roster {
				if c := active.Cell(id, key); c.Enabled {
					t.dispatch.Trigger(id, c.Accent)
				}
			}
			t.emit(PositionEvent{Beat: pos.Beat, Measure: measure, SubBeat: pos.SubBeat})
		})
	}

	step++
	if step >= pattern.TotalSteps(beats, sub) {
		step = 0
		measure++
	}
	// SetMeasures may have shortened the loop during dispatch
	if measure > int(t.measures.Load()) {
		measure = 1
	}
	t.step.Store(int32(step))
	if !t.measure.CompareAndSwap(loaded, int32(measure)) {
		// a concurrent clamp already moved the measure
		measure = int(t.measure.Load())
	}
	debug.LogEvery(64, "tick", "step=%d measure=%d", step, measure)
}

// fire runs the side effects of one step. A panic is logged and the step
// still counts as played.
func (t *Transport) fire(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			debug.Warn("tick", "recovered: %v", r)
		}
	}()
	fn()
}

// SetTempo takes effect on the next tick
func (t *Transport) SetTempo(bpm int) {
	t.tempo.Store(int32(bpm))
}

// SetMeasures changes the loop length. A current measure beyond the new
// length wraps back to 1.
func (t *Transport) SetMeasures(n int) {
	t.measures.Store(int32(n))
	if cur := t.measure.Load(); cur > int32(n) {
		t.measure.CompareAndSwap(cur, 1)
	}
}

// SetCountIn decides whether the next Start from Stopped counts in
func (t *Transport) SetCountIn(on bool) {
	t.countIn.Store(on)
}

// SetFillEnabled switches the last measure to the fill pattern
func (t *Transport) SetFillEnabled(on bool) {
	t.fillEnabled.Store(on)
}

// Pattern returns the current snapshot of a pattern
func (t *Transport) Pattern(v pattern.Variant) pattern.Pattern {
	return *t.slot(v).Load()
}

// SetPattern replaces a pattern wholesale
func (t *Transport) SetPattern(v pattern.Variant, p pattern.Pattern) {
	t.slot(v).Store(&p)
}

// UpdatePattern applies fn to the current snapshot and publishes the result
func (t *Transport) UpdatePattern(v pattern.Variant, fn func(pattern.Pattern) pattern.Pattern) pattern.Pattern {
	slot := t.slot(v)
	for {
		old := slot.Load()
		next := fn(*old)
		if slot.CompareAndSwap(old, &next) {
			return next
		}
	}
}

func (t *Transport) slot(v pattern.Variant) *atomic.Pointer[pattern.Pattern] {
	if v == pattern.Fill {
		return &t.fill
	}
	return &t.main
}

// Meter returns the meter the transport is running at
func (t *Transport) Meter() pattern.Meter {
	return pattern.Meter{
		BeatsPerMeasure: int(t.beats.Load()),
		Subdivision:     int(t.subdivision.Load()),
	}
}

// Settings returns the live musical parameters
func (t *Transport) Settings() Settings {
	return Settings{
		Tempo:           int(t.tempo.Load()),
		BeatsPerMeasure: int(t.beats.Load()),
		Subdivision:     int(t.subdivision.Load()),
		Measures:        int(t.measures.Load()),
		CountIn:         t.countIn.Load(),
		FillEnabled:     t.fillEnabled.Load(),
	}
}

// SetMeter changes beats per measure and/or subdivision. A running
// schedule is torn down, the position carried over to the new grid, both
// patterns reflowed to it and the schedule rebuilt at the new step length.
//
// Only one rebuild runs at a time. A request arriving while one is in
// flight is recorded but not rebuilt separately; SetMeter then returns
// false and leaves the patterns alone. The in-flight rebuild reads the
// latest request after its settle delay, so it usually lands on the
// newest meter.
func (t *Transport) SetMeter(m pattern.Meter) bool {
	return t.rebuild(m, nil)
}

// Load swaps in both patterns together with their meter. It reports false,
// changing nothing, when another rebuild is in flight.
func (t *Transport) Load(m pattern.Meter, main, fill pattern.Pattern) bool {
	return t.rebuild(m, func() {
		t.main.Store(&main)
		t.fill.Store(&fill)
	})
}

func (t *Transport) rebuild(m pattern.Meter, swap func()) bool {
	if !t.rebuilding.CompareAndSwap(false, true) {
		t.wantBeats.Store(int32(m.BeatsPerMeasure))
		t.wantSub.Store(int32(m.Subdivision))
		debug.Log("rebuild", "dropped %s: rebuild in flight", m)
		return false
	}
	defer t.rebuilding.Store(false)
	t.wantBeats.Store(int32(m.BeatsPerMeasure))
	t.wantSub.Store(int32(m.Subdivision))

	t.ctrl.Lock()
	defer t.ctrl.Unlock()

	if swap != nil {
		swap()
	}
	if m == t.Meter() {
		return true
	}

	running := t.sched != nil
	if running {
		t.halt()
		if t.settle > 0 {
			time.Sleep(t.settle)
		}
	}
	t.applyMeter()
	if running {
		t.arm()
	}
	return true
}

// applyMeter moves the requested meter into the live one and reflows the
// patterns to it. Caller holds ctrl and the schedule is halted.
func (t *Transport) applyMeter() {
	oldSub := int(t.subdivision.Load())
	m := pattern.Meter{
		BeatsPerMeasure: int(t.wantBeats.Load()),
		Subdivision:     int(t.wantSub.Load()),
	}

	if t.Phase() != Stopped {
		from := pattern.StepToPosition(int(t.step.Load()), oldSub)
		step := remapStep(from, oldSub, m.BeatsPerMeasure, m.Subdivision)
		t.step.Store(int32(step))
		debug.Log("rebuild", "%s -> step %d of %s", from, step, m)
	}
	for _, v := range []pattern.Variant{pattern.Main, pattern.Fill} {
		t.UpdatePattern(v, func(p pattern.Pattern) pattern.Pattern {
			return p.Resize(m)
		})
	}
	t.beats.Store(int32(m.BeatsPerMeasure))
	t.subdivision.Store(int32(m.Subdivision))
}

// remapStep carries a position onto a new grid. The beat is kept; when the
// subdivision changes the 1-based sub-beat is clamped into [0, sub-1] and
// used as the new 0-based offset. A beat beyond a shorter measure restarts
// the measure.
func remapStep(from pattern.Position, oldSub, beats, sub int) int {
	if from.Beat > beats {
		return 0
	}
	if sub == oldSub {
		return pattern.PositionToStep(from, sub)
	}
	return (from.Beat-1)*sub + min(from.SubBeat, sub-1)
}
