package sequencer

import (
	"reflect"
	"slices"
	"testing"

	"github.com/pkg/errors"

	"go-rhythm/catalog"
	"go-rhythm/pattern"
)

func newTestPlayer(t *testing.T, opts ...Option) (*Player, *manualClock, *recorder) {
	t.Helper()
	clock := &manualClock{}
	rec := &recorder{}
	opts = append([]Option{WithClock(clock), WithSettleDelay(0)}, opts...)
	p, err := NewPlayer(catalog.Default(), rec, opts...)
	if err != nil {
		t.Fatalf("NewPlayer: %v", err)
	}
	return p, clock, rec
}

func TestNewPlayer_Defaults(t *testing.T) {
	p, _, rec := newTestPlayer(t)
	s := p.Snapshot()

	want := Snapshot{
		Phase:           Stopped,
		Position:        resetPosition,
		Tempo:           120,
		Meter:           pattern.Meter{BeatsPerMeasure: 4, Subdivision: 2},
		Measures:        4,
		CountIn:         true,
		FillEnabled:     false,
		AccentReduction: 6,
		Preset:          "rock",
		Kit:             "basic",
	}
	if s != want {
		t.Errorf("snapshot = %+v, want %+v", s, want)
	}
	if rec.kit != "basic" {
		t.Errorf("backend kit = %q, want basic", rec.kit)
	}
	if c := p.Pattern(pattern.Main).Cell("bass", "1.1"); !c.Enabled || !c.Accent {
		t.Errorf("rock bass 1.1 = %+v, want enabled and accented", c)
	}
}

func TestNewPlayer_UnknownIDs(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
		want error
	}{
		{"preset", WithPreset("polka"), catalog.ErrUnknownPreset},
		{"kit", WithKit("cardboard"), catalog.ErrUnknownKit},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewPlayer(catalog.Default(), &recorder{}, WithClock(&manualClock{}), tc.opt)
			if errors.Cause(err) != tc.want {
				t.Errorf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestPlayer_CountInThenRock(t *testing.T) {
	p, clock, rec := newTestPlayer(t)
	p.Start()
	if !p.IsCountingIn() {
		t.Fatal("not counting in")
	}

	clock.Tick(8)
	if rec.Clicks() != 4 || len(rec.Hits()) != 0 {
		t.Fatalf("count-in: %d clicks, %d hits; want 4 clicks, no hits", rec.Clicks(), len(rec.Hits()))
	}
	if !p.IsPlaying() {
		t.Fatal("not playing after count-in")
	}

	clock.Tick(1)
	want := []hit{{"bass", 0}, {"hihat-closed", 0}}
	if got := rec.Hits(); !slices.Equal(got, want) {
		t.Errorf("first downbeat = %v, want %v", got, want)
	}
	if pos := p.Position(); pos != (PositionEvent{Beat: 1, Measure: 1, SubBeat: 1}) {
		t.Errorf("position = %+v", pos)
	}
}

func TestPlayer_PreviewLeavesTransport(t *testing.T) {
	p, clock, rec := newTestPlayer(t)
	p.StartWithoutCountIn()
	clock.Tick(3)
	rec.Reset()
	before, beforeM := p.transport.Counters()

	if err := p.Preview("snare"); err != nil {
		t.Fatal(err)
	}
	if got := rec.Hits(); !slices.Equal(got, []hit{{"snare", -6}}) {
		t.Errorf("preview hits = %v", got)
	}
	if step, m := p.transport.Counters(); step != before || m != beforeM {
		t.Errorf("counters moved: (%d, %d) -> (%d, %d)", before, beforeM, step, m)
	}

	if err := p.Preview("cowbell"); errors.Cause(err) != catalog.ErrUnknownInstrument {
		t.Errorf("err = %v, want ErrUnknownInstrument", err)
	}
}

func TestPlayer_LoadPreset(t *testing.T) {
	p, _, _ := newTestPlayer(t)
	p.SetTempo(90)

	if err := p.LoadPreset("waltz"); err != nil {
		t.Fatal(err)
	}
	s := p.Snapshot()
	if s.Tempo != 90 {
		t.Errorf("tempo = %d, want 90 kept", s.Tempo)
	}
	if s.Meter != (pattern.Meter{BeatsPerMeasure: 3, Subdivision: 2}) || s.Preset != "waltz" || s.Measures != 4 {
		t.Errorf("snapshot = %+v", s)
	}
	if m := p.Pattern(pattern.Fill).Meter(); m != s.Meter {
		t.Errorf("fill meter = %s, want %s", m, s.Meter)
	}

	err := p.LoadPreset("polka")
	if errors.Cause(err) != catalog.ErrUnknownPreset {
		t.Errorf("err = %v, want ErrUnknownPreset", err)
	}
	if got := p.Snapshot(); got.Preset != "waltz" || got.Meter != s.Meter {
		t.Errorf("failed load changed state: %+v", got)
	}
}

func TestPlayer_SetKit(t *testing.T) {
	p, _, rec := newTestPlayer(t)
	if err := p.SetKit("electronic"); err != nil {
		t.Fatal(err)
	}
	if rec.kit != "electronic" || p.Snapshot().Kit != "electronic" {
		t.Errorf("kit = %q / %q, want electronic", rec.kit, p.Snapshot().Kit)
	}
	if err := p.SetKit("cardboard"); errors.Cause(err) != catalog.ErrUnknownKit {
		t.Errorf("err = %v, want ErrUnknownKit", err)
	}
	if p.Snapshot().Kit != "electronic" {
		t.Error("failed SetKit changed the kit")
	}
}

func TestPlayer_SetSubdivisionReflows(t *testing.T) {
	p, clock, _ := newTestPlayer(t)
	p.StartWithoutCountIn()
	clock.Tick(3)

	if !p.SetSubdivision(4) {
		t.Fatal("SetSubdivision dropped")
	}
	main := p.Pattern(pattern.Main)
	if m := main.Meter(); m.Subdivision != 4 {
		t.Errorf("pattern subdivision = %d, want 4", m.Subdivision)
	}
	if c := main.Cell("bass", "3.2"); !c.Enabled {
		t.Error("bass 3.2 lost in reflow")
	}
	if c := main.Cell("bass", "3.3"); c.Enabled {
		t.Error("bass 3.3 enabled by reflow")
	}

	clock.Tick(1)
	if pos := p.Position(); pos.Key() != "2.3" {
		t.Errorf("position = %s, want 2.3", pos.Key())
	}

	p.SetBeatsPerMeasure(3)
	if c := p.Pattern(pattern.Main).Cell("snare", "4.1"); c.Enabled {
		t.Error("snare 4.1 kept outside a 3-beat measure")
	}
}

func TestPlayer_Editing(t *testing.T) {
	p, _, _ := newTestPlayer(t)

	p.ToggleEnabled(pattern.Main, "snare", "1.2")
	if !p.Pattern(pattern.Main).Cell("snare", "1.2").Enabled {
		t.Error("ToggleEnabled did not enable")
	}
	if p.Pattern(pattern.Fill).Cell("snare", "1.2").Enabled {
		t.Error("main edit leaked into fill")
	}

	p.ToggleAccent(pattern.Fill, "tom1", "4.1")
	if !p.Pattern(pattern.Fill).Cell("tom1", "4.1").Accent {
		t.Error("ToggleAccent did not accent")
	}

	// bass and hi-hat are accented on 1.1, so the group clears
	p.ToggleColumnAccent(pattern.Main, "1.1")
	for _, id := range p.Instruments() {
		if p.Pattern(pattern.Main).Cell(id, "1.1").Accent {
			t.Errorf("%s 1.1 still accented", id)
		}
	}
	p.ToggleBeatAccent(pattern.Main, 2)
	for _, id := range p.Instruments() {
		if !p.Pattern(pattern.Main).Cell(id, "2.1").Accent {
			t.Errorf("%s 2.1 not accented", id)
		}
	}

	p.ClearPattern(pattern.Main)
	if n := p.Pattern(pattern.Main).EnabledCount(); n != 0 {
		t.Errorf("enabled after clear = %d", n)
	}
}

func TestPlayer_Notifications(t *testing.T) {
	p, clock, _ := newTestPlayer(t)
	drain := func() {
		select {
		case <-p.UpdateChan:
		default:
		}
	}

	drain()
	p.SetTempo(100)
	select {
	case <-p.UpdateChan:
	default:
		t.Error("no update after SetTempo")
	}

	var got []PositionEvent
	p.OnPosition(func(e PositionEvent) { got = append(got, e) })
	p.StartWithoutCountIn()
	clock.Tick(2)
	p.OnPosition(nil)
	clock.Tick(1)

	want := []PositionEvent{{1, 1, 1}, {1, 1, 2}}
	if !slices.Equal(got, want) {
		t.Errorf("hook events = %v, want %v", got, want)
	}
}

func TestPlayer_TogglePlayAndClose(t *testing.T) {
	p, clock, _ := newTestPlayer(t, WithCountIn(false))
	p.TogglePlay()
	if !p.IsPlaying() {
		t.Fatal("TogglePlay did not start")
	}
	p.TogglePlay()
	if p.Phase() != Paused {
		t.Errorf("phase = %s, want %s", p.Phase(), Paused)
	}
	p.Close()
	if p.Phase() != Stopped || clock.Armed() {
		t.Error("Close left the transport running")
	}
}

func TestPlayer_DroppedMeterChange(t *testing.T) {
	p, clock, _ := newTestPlayer(t)
	p.StartWithoutCountIn()
	clock.Tick(2)

	before := p.Pattern(pattern.Main)
	p.transport.rebuilding.Store(true)
	if p.SetSubdivision(1) {
		t.Fatal("SetSubdivision ran while a rebuild was in flight")
	}
	after := p.Pattern(pattern.Main)
	if m := p.Snapshot().Meter; after.Meter() != m {
		t.Errorf("pattern meter = %s, transport meter = %s", after.Meter(), m)
	}
	if after.EnabledCount() != before.EnabledCount() {
		t.Errorf("enabled cells %d -> %d", before.EnabledCount(), after.EnabledCount())
	}

	err := p.LoadPreset("waltz")
	if !errors.Is(err, ErrRebuildBusy) {
		t.Errorf("LoadPreset error = %v, want %v", err, ErrRebuildBusy)
	}
	s := p.Snapshot()
	if s.Preset != "rock" || s.Meter.BeatsPerMeasure != 4 || s.Measures != 4 {
		t.Errorf("refused load changed state: %+v", s)
	}
	if got := p.Pattern(pattern.Main).Sparse(); !reflect.DeepEqual(got, before.Sparse()) {
		t.Errorf("main = %v, want %v", got, before.Sparse())
	}

	p.transport.rebuilding.Store(false)
	if err := p.LoadPreset("waltz"); err != nil {
		t.Fatal(err)
	}
	if m := p.Pattern(pattern.Fill).Meter(); m != p.Snapshot().Meter {
		t.Errorf("fill meter = %s, want %s", m, p.Snapshot().Meter)
	}
}
