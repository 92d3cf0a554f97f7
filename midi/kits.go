package midi

import "github.com/pkg/errors"

// ErrNoNote is returned when a note map has no note for an instrument
var ErrNoNote = errors.New("no note for instrument")

// ClickNote is the count-in click (GM Hi Wood Block)
const ClickNote uint8 = 76

// DefaultKit is used when the configured note map is unknown
const DefaultKit = "gm"

// DrumKit maps 16 drum slots to MIDI notes
type DrumKit struct {
	Name  string
	Notes [16]uint8
}

// Drum slots
const (
	SlotKick = iota
	SlotSnare
	SlotClosedHH
	SlotOpenHH
	SlotLowTom
	SlotMidTom
	SlotHighTom
	SlotCrash
	SlotRide
	SlotClap
	SlotRimshot
	SlotCowbell
	SlotClave
	SlotMaracas
	SlotLowConga
	SlotHighConga
)

// instrumentSlots binds roster ids to drum slots
var instrumentSlots = map[string]int{
	"bass":         SlotKick,
	"snare":        SlotSnare,
	"hihat-closed": SlotClosedHH,
	"hihat-open":   SlotOpenHH,
	"crash":        SlotCrash,
	"ride":         SlotRide,
	"tom1":         SlotHighTom,
	"tom2":         SlotLowTom,
}

// Kits contains all available drum kit mappings
var Kits = map[string]DrumKit{
	"gm": {
		Name: "General MIDI",
		Notes: [16]uint8{
			36, // Kick
			38, // Snare
			42, // Closed HH
			46, // Open HH
			41, // Low Tom
			43, // Mid Tom
			45, // High Tom
			49, // Crash
			51, // Ride
			39, // Clap
			37, // Rimshot
			56, // Cowbell
			75, // Clave
			70, // Maracas
			64, // Low Conga
			63, // High Conga
		},
	},
	"rd8": {
		Name: "Behringer RD-8",
		Notes: [16]uint8{
			36, // BD
			40, // SD (not 38)
			42, // CH
			46, // OH
			45, // LT
			48, // MT
			50, // HT
			49, // CY
			51, // RC
			39, // CP
			37, // RS
			56, // CB
			75, // CL
			70, // MA
			64, // LC
			63, // HC
		},
	},
	"tr8s": {
		Name: "Roland TR-8S",
		Notes: [16]uint8{
			36, 38, 42, 46,
			41, 43, 45, 49,
			51, 39, 37, 56,
			75, 70, 62, 63,
		},
	},
	"er1": {
		Name: "Korg ER-1",
		Notes: [16]uint8{
			36, // Perc Synth 1
			38, // Perc Synth 2
			42, // Closed HH (PCM)
			46, // Open HH (PCM)
			40, // Perc Synth 3
			41, // Perc Synth 4
			43, // Audio In 1
			49, // Crash (PCM)
			45, // Audio In 2
			39, // Hand Clap (PCM)
			37, 56, 75, 70, 64, 63, // unused
		},
	},
}

// KitNames returns the list of available kit names
func KitNames() []string {
	return []string{"gm", "rd8", "tr8s", "er1"}
}

// GetKit returns a kit by name, defaulting to GM if not found
func GetKit(name string) DrumKit {
	if k, ok := Kits[name]; ok {
		return k
	}
	return Kits[DefaultKit]
}

// Note returns the note an instrument plays on this kit
func (k DrumKit) Note(instrument string) (uint8, error) {
	slot, ok := instrumentSlots[instrument]
	if !ok {
		return 0, errors.Wrapf(ErrNoNote, "%q on %s", instrument, k.Name)
	}
	return k.Notes[slot], nil
}

// Instrument maps an incoming note back to a roster id
func (k DrumKit) Instrument(note uint8) (string, bool) {
	for id, slot := range instrumentSlots {
		if k.Notes[slot] == note {
			return id, true
		}
	}
	return "", false
}
