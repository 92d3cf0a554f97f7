package pattern

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Position identifies a grid column: a 1-based beat and a 1-based sub-beat.
// A Position is only meaningful under the Meter that produced it.
type Position struct {
	Beat    int
	SubBeat int
}

// Key renders the canonical "{beat}.{subBeat}" index string
func (p Position) Key() string {
	return strconv.Itoa(p.Beat) + "." + strconv.Itoa(p.SubBeat)
}

func (p Position) String() string {
	return p.Key()
}

// ParseKey is the inverse of Position.Key
func ParseKey(key string) (Position, error) {
	beatStr, subStr, ok := strings.Cut(key, ".")
	if !ok {
		return Position{}, errors.Errorf("position key %q: missing '.'", key)
	}
	beat, err := strconv.Atoi(beatStr)
	if err != nil {
		return Position{}, errors.Wrapf(err, "position key %q: beat", key)
	}
	sub, err := strconv.Atoi(subStr)
	if err != nil {
		return Position{}, errors.Wrapf(err, "position key %q: sub-beat", key)
	}
	if beat < 1 || sub < 1 {
		return Position{}, errors.Errorf("position key %q: beat and sub-beat are 1-based", key)
	}
	return Position{Beat: beat, SubBeat: sub}, nil
}

// StepToPosition maps a 0-based step index to its beat position.
// subdivision must be >= 1.
func StepToPosition(step, subdivision int) Position {
	return Position{
		Beat:    step/subdivision + 1,
		SubBeat: step%subdivision + 1,
	}
}

// PositionToStep is the inverse of StepToPosition
func PositionToStep(p Position, subdivision int) int {
	return (p.Beat-1)*subdivision + (p.SubBeat - 1)
}

// TotalSteps is the number of steps in one measure
func TotalSteps(beatsPerMeasure, subdivision int) int {
	return beatsPerMeasure * subdivision
}

// Meter is the grid shape: beats per measure and steps per beat
type Meter struct {
	BeatsPerMeasure int `json:"beatsPerMeasure" yaml:"beatsPerMeasure"`
	Subdivision     int `json:"subdivision" yaml:"subdivision"`
}

// Steps returns the number of steps in one measure of this meter
func (m Meter) Steps() int {
	return TotalSteps(m.BeatsPerMeasure, m.Subdivision)
}

// Contains reports whether p is a valid position under this meter
func (m Meter) Contains(p Position) bool {
	return p.Beat >= 1 && p.Beat <= m.BeatsPerMeasure &&
		p.SubBeat >= 1 && p.SubBeat <= m.Subdivision
}

// Positions lists every position of the meter in playback order
func (m Meter) Positions() []Position {
	out := make([]Position, 0, m.Steps())
	for step := 0; step < m.Steps(); step++ {
		out = append(out, StepToPosition(step, m.Subdivision))
	}
	return out
}

// Keys lists every position key of the meter in playback order
func (m Meter) Keys() []string {
	positions := m.Positions()
	keys := make([]string, len(positions))
	for i, p := range positions {
		keys[i] = p.Key()
	}
	return keys
}

func (m Meter) String() string {
	return strconv.Itoa(m.BeatsPerMeasure) + "x" + strconv.Itoa(m.Subdivision)
}
