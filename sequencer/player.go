package sequencer

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"go-rhythm/catalog"
	"go-rhythm/debug"
	"go-rhythm/pattern"
)

// KitLoader is implemented by backends whose sounds depend on the kit
type KitLoader interface {
	LoadKit(k catalog.Kit) error
}

type options struct {
	clock           Clock
	settle          time.Duration
	tempo           int
	measures        int
	countIn         bool
	fillEnabled     bool
	accentReduction int
	preset          string
	kit             string
}

// Option configures a Player
type Option func(*options)

// WithClock replaces the wall clock, mainly for tests
func WithClock(c Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithSettleDelay sets the pause between teardown and rebuild on a meter change
func WithSettleDelay(d time.Duration) Option {
	return func(o *options) { o.settle = d }
}

// WithTempo sets the starting tempo in BPM
func WithTempo(bpm int) Option {
	return func(o *options) { o.tempo = bpm }
}

// WithMeasures overrides the loop length of the initial preset
func WithMeasures(n int) Option {
	return func(o *options) { o.measures = n }
}

// WithCountIn enables the count-in measure before playback
func WithCountIn(on bool) Option {
	return func(o *options) { o.countIn = on }
}

// WithFill plays the fill pattern in the last measure
func WithFill(on bool) Option {
	return func(o *options) { o.fillEnabled = on }
}

// WithAccentReduction sets the attenuation of non-accented hits in dB
func WithAccentReduction(db int) Option {
	return func(o *options) { o.accentReduction = db }
}

// WithPreset picks the initial preset by id
func WithPreset(id string) Option {
	return func(o *options) { o.preset = id }
}

// WithKit picks the initial kit by id
func WithKit(id string) Option {
	return func(o *options) { o.kit = id }
}

// Player is the playback facade: transport control, live parameters and
// pattern editing for one session.
type Player struct {
	cat       *catalog.Catalog
	roster    []string
	dispatch  *Dispatcher
	transport *Transport

	mu     sync.RWMutex // preset and kit names
	preset string
	kit    string

	last atomic.Pointer[PositionEvent]
	hook atomic.Pointer[func(PositionEvent)]

	// Notify UI of updates
	UpdateChan chan struct{}
}

// NewPlayer creates a stopped player with the initial preset and kit loaded.
// An unknown preset or kit id is returned as an error.
func NewPlayer(cat *catalog.Catalog, b Backend, opts ...Option) (*Player, error) {
	o := options{
		clock:           WallClock{},
		settle:          DefaultSettle,
		tempo:           120,
		countIn:         true,
		accentReduction: 6,
		preset:          catalog.DefaultPreset,
		kit:             catalog.DefaultKit,
	}
	for _, opt := range opts {
		opt(&o)
	}

	pr, err := cat.Preset(o.preset)
	if err != nil {
		return nil, err
	}
	measures := pr.Measures
	if o.measures > 0 {
		measures = o.measures
	}

	p := &Player{
		cat:        cat,
		roster:     cat.InstrumentIDs(),
		dispatch:   NewDispatcher(b, o.accentReduction),
		UpdateChan: make(chan struct{}, 1),
	}
	p.transport = NewTransport(TransportConfig{
		Clock:      o.clock,
		Dispatcher: p.dispatch,
		Roster:     p.roster,
		Settle:     o.settle,
		OnPosition: p.onPosition,
		OnPhase:    func(Phase) { p.notify() },
	}, Settings{
		Tempo:           o.tempo,
		BeatsPerMeasure: pr.BeatsPerMeasure,
		Subdivision:     pr.Subdivision,
		Measures:        measures,
		CountIn:         o.countIn,
		FillEnabled:     o.fillEnabled,
	})
	p.transport.SetPattern(pattern.Main, pr.Build(p.roster, pattern.Main))
	p.transport.SetPattern(pattern.Fill, pr.Build(p.roster, pattern.Fill))
	p.preset = pr.ID
	p.last.Store(&resetPosition)

	if err := p.SetKit(o.kit); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Player) onPosition(e PositionEvent) {
	p.last.Store(&e)
	if fn := p.hook.Load(); fn != nil {
		(*fn)(e)
	}
	p.notify()
}

func (p *Player) notify() {
	select {
	case p.UpdateChan <- struct{}{}:
	default:
	}
}

// OnPosition registers fn to run on every position event. fn runs on the
// tick path and must return quickly. nil removes the hook.
func (p *Player) OnPosition(fn func(PositionEvent)) {
	if fn == nil {
		p.hook.Store(nil)
		return
	}
	p.hook.Store(&fn)
}

// Catalog returns the static configuration the player was built from
func (p *Player) Catalog() *catalog.Catalog { return p.cat }

// Instruments returns the roster in grid order
func (p *Player) Instruments() []string {
	return append([]string(nil), p.roster...)
}

// Transport control

func (p *Player) Start() { p.transport.Start() }

// StartWithoutCountIn goes straight to playing regardless of the count-in setting
func (p *Player) StartWithoutCountIn() { p.transport.StartWithoutCountIn() }

func (p *Player) Pause() { p.transport.Pause() }

func (p *Player) Stop() { p.transport.Stop() }

// TogglePlay pauses a running transport and starts any other
func (p *Player) TogglePlay() {
	switch p.transport.Phase() {
	case Playing, CountingIn:
		p.Pause()
	default:
		p.Start()
	}
}

// Preview auditions an instrument without touching the transport
func (p *Player) Preview(instrument string) error {
	if _, err := p.cat.Instrument(instrument); err != nil {
		return err
	}
	p.dispatch.Preview(instrument)
	return nil
}

func (p *Player) Phase() Phase { return p.transport.Phase() }

func (p *Player) IsPlaying() bool { return p.transport.Phase() == Playing }

func (p *Player) IsCountingIn() bool { return p.transport.Phase() == CountingIn }

// Position returns the last emitted position
func (p *Player) Position() PositionEvent { return *p.last.Load() }

// Live parameters. Callers validate ranges first (see config.Validate*).

// SetTempo takes effect on the next step
func (p *Player) SetTempo(bpm int) {
	p.transport.SetTempo(bpm)
	p.notify()
}

// SetMeasures changes the loop length
func (p *Player) SetMeasures(n int) {
	p.transport.SetMeasures(n)
	p.notify()
}

// SetCountIn applies from the next Start
func (p *Player) SetCountIn(on bool) {
	p.transport.SetCountIn(on)
	p.notify()
}

// SetFillEnabled switches the last measure to the fill pattern
func (p *Player) SetFillEnabled(on bool) {
	p.transport.SetFillEnabled(on)
	p.notify()
}

// SetAccentReduction sets the attenuation of non-accented hits in dB
func (p *Player) SetAccentReduction(db int) {
	p.dispatch.SetAccentReduction(db)
	p.notify()
}

// SetBackend swaps the sound output; the next trigger uses it
func (p *Player) SetBackend(b Backend) {
	p.dispatch.SetBackend(b)
}

// SetSubdivision changes the sub-beats per beat, reflowing both patterns.
// It reports false, changing nothing, when another rebuild is in flight.
func (p *Player) SetSubdivision(n int) bool {
	m := p.transport.Meter()
	m.Subdivision = n
	return p.SetMeter(m)
}

// SetBeatsPerMeasure changes the measure length, reflowing both patterns
func (p *Player) SetBeatsPerMeasure(n int) bool {
	m := p.transport.Meter()
	m.BeatsPerMeasure = n
	return p.SetMeter(m)
}

// SetMeter applies a structural change. Cells still on the new grid are
// kept, the rest dropped.
func (p *Player) SetMeter(m pattern.Meter) bool {
	ok := p.transport.SetMeter(m)
	p.notify()
	return ok
}

// LoadPreset replaces both patterns, the meter and the loop length with
// the preset's. Tempo is kept. An unknown id, or a meter change already in
// flight (ErrRebuildBusy), leaves the player untouched.
func (p *Player) LoadPreset(id string) error {
	pr, err := p.cat.Preset(id)
	if err != nil {
		return err
	}
	main, fill := pr.Build(p.roster, pattern.Main), pr.Build(p.roster, pattern.Fill)
	if !p.transport.Load(pr.Meter(), main, fill) {
		return errors.Wrapf(ErrRebuildBusy, "load preset %s", pr.ID)
	}
	p.transport.SetMeasures(pr.Measures)

	p.mu.Lock()
	p.preset = pr.ID
	p.mu.Unlock()
	debug.Log("player", "preset %s: %s, %d measures", pr.ID, pr.Meter(), pr.Measures)
	p.notify()
	return nil
}

// SetKit selects the sound bindings. An unknown id leaves the kit unchanged.
func (p *Player) SetKit(id string) error {
	k, err := p.cat.Kit(id)
	if err != nil {
		return err
	}
	if ref := p.dispatch.backend.Load(); ref != nil {
		if kl, ok := ref.Backend.(KitLoader); ok {
			if err := kl.LoadKit(k); err != nil {
				return err
			}
		}
	}
	p.mu.Lock()
	p.kit = k.ID
	p.mu.Unlock()
	debug.Log("player", "kit %s", k.ID)
	p.notify()
	return nil
}

// Pattern editing

func (p *Player) Pattern(v pattern.Variant) pattern.Pattern {
	return p.transport.Pattern(v)
}

func (p *Player) ToggleEnabled(v pattern.Variant, instrument, key string) {
	p.edit(v, func(pt pattern.Pattern) pattern.Pattern {
		return pt.ToggleEnabled(instrument, key)
	})
}

func (p *Player) ToggleAccent(v pattern.Variant, instrument, key string) {
	p.edit(v, func(pt pattern.Pattern) pattern.Pattern {
		return pt.ToggleAccent(instrument, key)
	})
}

// ToggleColumnAccent flips the accent of every instrument at key as a group
func (p *Player) ToggleColumnAccent(v pattern.Variant, key string) {
	p.edit(v, func(pt pattern.Pattern) pattern.Pattern {
		return pt.ToggleColumnAccent(p.roster, key)
	})
}

// ToggleBeatAccent flips the downbeat accent of every instrument on beat
func (p *Player) ToggleBeatAccent(v pattern.Variant, beat int) {
	p.edit(v, func(pt pattern.Pattern) pattern.Pattern {
		return pt.ToggleBeatAccent(p.roster, beat)
	})
}

// ClearPattern disables every cell of a variant
func (p *Player) ClearPattern(v pattern.Variant) {
	p.edit(v, pattern.Pattern.Clear)
}

func (p *Player) edit(v pattern.Variant, fn func(pattern.Pattern) pattern.Pattern) {
	p.transport.UpdatePattern(v, fn)
	p.notify()
}

// Snapshot returns a consistent-enough view for rendering
func (p *Player) Snapshot() Snapshot {
	s := p.transport.Settings()
	p.mu.RLock()
	preset, kit := p.preset, p.kit
	p.mu.RUnlock()
	return Snapshot{
		Phase:           p.transport.Phase(),
		Position:        p.Position(),
		Tempo:           s.Tempo,
		Meter:           s.Meter(),
		Measures:        s.Measures,
		CountIn:         s.CountIn,
		FillEnabled:     s.FillEnabled,
		AccentReduction: p.dispatch.AccentReduction(),
		Preset:          preset,
		Kit:             kit,
	}
}

// Close stops playback and drops the position hook
func (p *Player) Close() {
	p.transport.Stop()
	p.OnPosition(nil)
	debug.Log("player", "closed")
}
