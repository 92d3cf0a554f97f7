package sequencer

import (
	"sync"
	"time"

	"github.com/pkg/errors"

	"go-rhythm/catalog"
	"go-rhythm/pattern"
)

// manualClock fires the armed callback only when the test calls Tick
type manualClock struct {
	mu       sync.Mutex
	fn       func()
	interval func() time.Duration
	arms     int
}

type manualSchedule struct {
	c  *manualClock
	id int
}

func (c *manualClock) Every(interval func() time.Duration, fn func()) Schedule {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.arms++
	c.fn = fn
	c.interval = interval
	return &manualSchedule{c: c, id: c.arms}
}

func (s *manualSchedule) Stop() {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	if s.c.arms == s.id {
		s.c.fn = nil
	}
}

// Tick fires the armed callback n times; it returns early once disarmed
func (c *manualClock) Tick(n int) {
	for i := 0; i < n; i++ {
		c.mu.Lock()
		fn := c.fn
		c.mu.Unlock()
		if fn == nil {
			return
		}
		fn()
	}
}

func (c *manualClock) Armed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fn != nil
}

func (c *manualClock) Arms() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.arms
}

func (c *manualClock) Interval() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.interval()
}

type hit struct {
	instrument string
	volume     float64
}

// recorder is a Backend that remembers every call
type recorder struct {
	mu     sync.Mutex
	hits   []hit
	clicks []float64
	kit    string
	fail   map[string]bool
	panics map[string]bool
	onHit  func(instrument string) // runs inside Trigger, before recording
}

func (r *recorder) Trigger(instrument string, volumeDb float64) error {
	if r.onHit != nil {
		r.onHit(instrument)
	}
	if r.panics[instrument] {
		panic("boom: " + instrument)
	}
	if r.fail[instrument] {
		return errors.Errorf("no sound for %s", instrument)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hits = append(r.hits, hit{instrument, volumeDb})
	return nil
}

func (r *recorder) Click(volumeDb float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clicks = append(r.clicks, volumeDb)
	return nil
}

func (r *recorder) LoadKit(k catalog.Kit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kit = k.ID
	return nil
}

func (r *recorder) Hits() []hit {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]hit(nil), r.hits...)
}

func (r *recorder) Clicks() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clicks)
}

func (r *recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hits = nil
	r.clicks = nil
}

// rig is a transport wired to a manual clock and a recorder
type rig struct {
	t      *Transport
	clock  *manualClock
	rec    *recorder
	mu     sync.Mutex
	events []PositionEvent
	phases []Phase
}

var testRoster = []string{"bass", "snare", "hihat"}

func newRig(s Settings) *rig {
	r := &rig{clock: &manualClock{}, rec: &recorder{}}
	r.t = NewTransport(TransportConfig{
		Clock:      r.clock,
		Dispatcher: NewDispatcher(r.rec, 6),
		Roster:     testRoster,
		OnPosition: func(e PositionEvent) {
			r.mu.Lock()
			r.events = append(r.events, e)
			r.mu.Unlock()
		},
		OnPhase: func(p Phase) {
			r.mu.Lock()
			r.phases = append(r.phases, p)
			r.mu.Unlock()
		},
	}, s)
	return r
}

func (r *rig) Events() []PositionEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]PositionEvent(nil), r.events...)
}

func (r *rig) Last() PositionEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return PositionEvent{}
	}
	return r.events[len(r.events)-1]
}

func (r *rig) ClearEvents() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

func (r *rig) setPattern(v pattern.Variant, accents []int, enabled pattern.Sparse) {
	r.t.SetPattern(v, pattern.FromPreset(testRoster, r.t.Meter(), accents, enabled))
}

func settings4x2(measures int) Settings {
	return Settings{Tempo: 120, BeatsPerMeasure: 4, Subdivision: 2, Measures: measures}
}

func keys(events []PositionEvent) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.Key()
	}
	return out
}
