package sequencer

import "go-rhythm/pattern"

// Phase is the transport state
type Phase int32

const (
	Stopped Phase = iota
	CountingIn
	Playing
	Paused
)

func (p Phase) String() string {
	switch p {
	case CountingIn:
		return "COUNT-IN"
	case Playing:
		return "PLAY"
	case Paused:
		return "PAUSE"
	default:
		return "STOP"
	}
}

// PositionEvent is emitted on every tick. Measure 0 means count-in.
type PositionEvent struct {
	Beat    int
	Measure int
	SubBeat int
}

// Key returns the grid column key of the event
func (e PositionEvent) Key() string {
	return pattern.Position{Beat: e.Beat, SubBeat: e.SubBeat}.Key()
}

// resetPosition is emitted by Stop
var resetPosition = PositionEvent{Beat: 1, Measure: 1, SubBeat: 1}

// Settings is the musical state a transport starts with
type Settings struct {
	Tempo           int
	BeatsPerMeasure int
	Subdivision     int
	Measures        int
	CountIn         bool
	FillEnabled     bool
}

// Meter returns the grid shape of the settings
func (s Settings) Meter() pattern.Meter {
	return pattern.Meter{BeatsPerMeasure: s.BeatsPerMeasure, Subdivision: s.Subdivision}
}

// Snapshot is a read-only view of the player for renderers
type Snapshot struct {
	Phase           Phase
	Position        PositionEvent
	Tempo           int
	Meter           pattern.Meter
	Measures        int
	CountIn         bool
	FillEnabled     bool
	AccentReduction int
	Preset          string
	Kit             string
}

// IsPlaying is true once the count-in, if any, is over
func (s Snapshot) IsPlaying() bool { return s.Phase == Playing }

// IsCountingIn is true during the lead-in measure
func (s Snapshot) IsCountingIn() bool { return s.Phase == CountingIn }
