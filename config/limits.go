package config

import "github.com/pkg/errors"

// ErrOutOfRange is returned when an edited parameter is outside its limits
var ErrOutOfRange = errors.New("out of range")

// Parameter limits. The sequencer stores whatever it is given, so the
// editing surface checks values against these before applying them.
const (
	MinTempo = 60
	MaxTempo = 200

	MinBeatsPerMeasure = 2
	MaxBeatsPerMeasure = 8

	MinSubdivision = 1
	MaxSubdivision = 4

	MinMeasures = 1
	MaxMeasures = 16

	MinAccentReduction = 3
	MaxAccentReduction = 20
)

func checkRange(name string, v, lo, hi int) error {
	if v < lo || v > hi {
		return errors.Wrapf(ErrOutOfRange, "%s %d not in %d-%d", name, v, lo, hi)
	}
	return nil
}

func ValidateTempo(bpm int) error {
	return checkRange("tempo", bpm, MinTempo, MaxTempo)
}

func ValidateBeatsPerMeasure(n int) error {
	return checkRange("beats per measure", n, MinBeatsPerMeasure, MaxBeatsPerMeasure)
}

func ValidateSubdivision(n int) error {
	return checkRange("subdivision", n, MinSubdivision, MaxSubdivision)
}

func ValidateMeasures(n int) error {
	return checkRange("measures", n, MinMeasures, MaxMeasures)
}

func ValidateAccentReduction(db int) error {
	return checkRange("accent reduction", db, MinAccentReduction, MaxAccentReduction)
}
