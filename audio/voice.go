package audio

import "github.com/pkg/errors"

// ErrNoVoice is returned when the loaded kit has no sound for an instrument
var ErrNoVoice = errors.New("no voice for instrument")

// Wave is the oscillator behind a voice
type Wave int

const (
	Sine Wave = iota
	Noise
)

func (w Wave) String() string {
	if w == Noise {
		return "noise"
	}
	return "sine"
}

// Voice describes a one-shot drum sound
type Voice struct {
	Wave  Wave
	Freq  float64 // Hz, ignored for noise
	Decay float64 // seconds until the envelope reaches silenceLevel
	Gain  float64 // dB offset applied on top of the trigger volume
}

// silenceLevel is where the exponential envelope ends, relative to its start
const silenceLevel = 0.01

// voices maps instrument ids to sounds
var voices = map[string]Voice{
	"bass":         {Wave: Sine, Freq: 60, Decay: 0.3},
	"snare":        {Wave: Noise, Decay: 0.1},
	"hihat-closed": {Wave: Noise, Decay: 0.05, Gain: -10},
	"hihat-open":   {Wave: Noise, Decay: 0.2, Gain: -10},
	"crash":        {Wave: Noise, Decay: 0.5},
	"ride":         {Wave: Sine, Freq: 800, Decay: 0.3, Gain: -5},
	"tom1":         {Wave: Sine, Freq: 150, Decay: 0.2},
	"tom2":         {Wave: Sine, Freq: 100, Decay: 0.2},
}

// fallbackVoice plays instruments missing from the table
var fallbackVoice = Voice{Wave: Sine, Freq: 440, Decay: 0.1}

// clickVoice is the count-in click
var clickVoice = Voice{Wave: Sine, Freq: 1200, Decay: 0.05}

// VoiceFor returns the sound of an instrument
func VoiceFor(instrument string) Voice {
	if v, ok := voices[instrument]; ok {
		return v
	}
	return fallbackVoice
}
