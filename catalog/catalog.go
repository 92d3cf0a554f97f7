package catalog

import (
	_ "embed"
	"io"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"go-rhythm/pattern"
)

var (
	ErrUnknownPreset     = errors.New("unknown preset")
	ErrUnknownKit        = errors.New("unknown kit")
	ErrUnknownInstrument = errors.New("unknown instrument")
)

// Default ids used when the configured ones cannot be resolved
const (
	DefaultPreset = "rock"
	DefaultKit    = "basic"
)

//go:embed default.yaml
var defaultYAML []byte

// Instrument is one row of the grid
type Instrument struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// Kit binds instruments to sound files
type Kit struct {
	ID     string            `yaml:"id"`
	Name   string            `yaml:"name"`
	Path   string            `yaml:"path"`
	Sounds map[string]string `yaml:"sounds"`
}

// Preset is a named groove: meter, loop length, strong beats and the
// enabled positions of the main and fill patterns.
type Preset struct {
	ID              string         `yaml:"id"`
	Name            string         `yaml:"name"`
	BeatsPerMeasure int            `yaml:"beatsPerMeasure"`
	Subdivision     int            `yaml:"subdivision"`
	Measures        int            `yaml:"measures"`
	Accents         []int          `yaml:"accents"`
	Pattern         pattern.Sparse `yaml:"pattern"`
	Fill            pattern.Sparse `yaml:"fill"`
}

// Meter returns the preset's grid shape
func (p Preset) Meter() pattern.Meter {
	return pattern.Meter{BeatsPerMeasure: p.BeatsPerMeasure, Subdivision: p.Subdivision}
}

// Build materializes the main or fill pattern of the preset
func (p Preset) Build(instruments []string, v pattern.Variant) pattern.Pattern {
	src := p.Pattern
	if v == pattern.Fill {
		src = p.Fill
	}
	return pattern.FromPreset(instruments, p.Meter(), p.Accents, src)
}

// Capture turns edited patterns back into a preset
func Capture(id, name string, measures int, main, fill pattern.Pattern) Preset {
	m := main.Meter()
	return Preset{
		ID:              id,
		Name:            name,
		BeatsPerMeasure: m.BeatsPerMeasure,
		Subdivision:     m.Subdivision,
		Measures:        measures,
		Accents:         main.AccentBeats(),
		Pattern:         main.Sparse(),
		Fill:            fill.Sparse(),
	}
}

// Marshal renders the preset as a catalog entry
func (p Preset) Marshal() ([]byte, error) {
	out, err := yaml.Marshal([]Preset{p})
	if err != nil {
		return nil, errors.Wrapf(err, "marshal preset %s", p.ID)
	}
	return out, nil
}

// Catalog is the static configuration: roster, kits and presets
type Catalog struct {
	Instruments []Instrument `yaml:"instruments"`
	Kits        []Kit        `yaml:"kits"`
	Presets     []Preset     `yaml:"presets"`
}

// Default returns the built-in catalog
func Default() *Catalog {
	c, err := Parse(defaultYAML)
	if err != nil {
		panic(errors.Wrap(err, "built-in catalog"))
	}
	return c
}

// Parse decodes and validates a YAML catalog
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, errors.Wrap(err, "decode catalog")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Read parses a catalog from r
func Read(r io.Reader) (*Catalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read catalog")
	}
	return Parse(data)
}

// LoadFile reads a catalog file, or the built-in one when path is empty
func LoadFile(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "load catalog %s", path)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "load catalog %s", path)
	}
	return c, nil
}

// InstrumentIDs returns the roster ids in display order
func (c *Catalog) InstrumentIDs() []string {
	ids := make([]string, len(c.Instruments))
	for i, inst := range c.Instruments {
		ids[i] = inst.ID
	}
	return ids
}

// Instrument looks up a roster entry by id
func (c *Catalog) Instrument(id string) (Instrument, error) {
	for _, inst := range c.Instruments {
		if inst.ID == id {
			return inst, nil
		}
	}
	return Instrument{}, errors.Wrapf(ErrUnknownInstrument, "%q", id)
}

// Preset looks up a preset by id
func (c *Catalog) Preset(id string) (Preset, error) {
	for _, p := range c.Presets {
		if p.ID == id {
			return p, nil
		}
	}
	return Preset{}, errors.Wrapf(ErrUnknownPreset, "%q", id)
}

// Kit looks up a kit by id
func (c *Catalog) Kit(id string) (Kit, error) {
	for _, k := range c.Kits {
		if k.ID == id {
			return k, nil
		}
	}
	return Kit{}, errors.Wrapf(ErrUnknownKit, "%q", id)
}

// PresetIDs returns preset ids in catalog order
func (c *Catalog) PresetIDs() []string {
	ids := make([]string, len(c.Presets))
	for i, p := range c.Presets {
		ids[i] = p.ID
	}
	return ids
}

// KitIDs returns kit ids in catalog order
func (c *Catalog) KitIDs() []string {
	ids := make([]string, len(c.Kits))
	for i, k := range c.Kits {
		ids[i] = k.ID
	}
	return ids
}

// Validate checks ids are unique and presets only reference known
// instruments and positions inside their own meter.
func (c *Catalog) Validate() error {
	if len(c.Instruments) == 0 {
		return errors.New("catalog has no instruments")
	}
	roster := make(map[string]bool, len(c.Instruments))
	for _, inst := range c.Instruments {
		if inst.ID == "" {
			return errors.New("instrument with empty id")
		}
		if roster[inst.ID] {
			return errors.Errorf("duplicate instrument %q", inst.ID)
		}
		roster[inst.ID] = true
	}

	kits := make(map[string]bool, len(c.Kits))
	for _, k := range c.Kits {
		if kits[k.ID] {
			return errors.Errorf("duplicate kit %q", k.ID)
		}
		kits[k.ID] = true
		for id := range k.Sounds {
			if !roster[id] {
				return errors.Wrapf(ErrUnknownInstrument, "kit %q: %q", k.ID, id)
			}
		}
	}

	presets := make(map[string]bool, len(c.Presets))
	for _, p := range c.Presets {
		if presets[p.ID] {
			return errors.Errorf("duplicate preset %q", p.ID)
		}
		presets[p.ID] = true
		if p.BeatsPerMeasure < 1 || p.Subdivision < 1 || p.Measures < 1 {
			return errors.Errorf("preset %q: meter %dx%d, %d measures", p.ID, p.BeatsPerMeasure, p.Subdivision, p.Measures)
		}
		for _, variant := range []pattern.Sparse{p.Pattern, p.Fill} {
			if err := validateSparse(p, variant, roster); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateSparse(p Preset, s pattern.Sparse, roster map[string]bool) error {
	meter := p.Meter()
	for id, keys := range s {
		if !roster[id] {
			return errors.Wrapf(ErrUnknownInstrument, "preset %q: %q", p.ID, id)
		}
		for _, k := range keys {
			pos, err := pattern.ParseKey(k)
			if err != nil {
				return errors.Wrapf(err, "preset %q", p.ID)
			}
			if !meter.Contains(pos) {
				return errors.Errorf("preset %q: %s %s outside %s", p.ID, id, k, meter)
			}
		}
	}
	return nil
}
