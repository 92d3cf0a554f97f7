package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// BackendType selects where triggers are sent
type BackendType string

const (
	BackendSynth BackendType = "synth"
	BackendMIDI  BackendType = "midi"
	BackendBoth  BackendType = "both"
	BackendNone  BackendType = "none"
)

// MIDIConfig configures the MIDI output backend and preview input
type MIDIConfig struct {
	Port      string `json:"port,omitempty"`
	Channel   int    `json:"channel,omitempty"` // 1-16, drums default to 10
	Kit       string `json:"kit,omitempty"`     // note map: gm, rd8, tr8s, er1
	InputPort string `json:"inputPort,omitempty"`
}

// Config is the main configuration structure
type Config struct {
	Tempo           int         `json:"tempo"`
	Preset          string      `json:"preset"`
	Kit             string      `json:"kit"`
	CountIn         bool        `json:"countIn"`
	FillEnabled     bool        `json:"fillEnabled"`
	AccentReduction int         `json:"accentReduction"`
	Backend         BackendType `json:"backend"`
	MIDI            MIDIConfig  `json:"midi,omitempty"`
	CatalogPath     string      `json:"catalogPath,omitempty"`
	Palette         string      `json:"palette,omitempty"` // GIMP .gpl file
	Debug           bool        `json:"debug,omitempty"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Tempo:           120,
		Preset:          "rock",
		Kit:             "basic",
		CountIn:         true,
		FillEnabled:     false,
		AccentReduction: 6,
		Backend:         BackendSynth,
		MIDI: MIDIConfig{
			Channel: 10,
			Kit:     "gm",
		},
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "go-rhythm"), nil
}

// ConfigPath returns the full path to config.json
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from the default path, or returns defaults if not found
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads the config at path. Fields missing from the file keep
// their defaults.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, errors.Wrapf(err, "read config %s", path)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "decode config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// Save writes the config to the default path
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes the config to path, creating its directory
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Validate checks every numeric parameter against its limits
func (c *Config) Validate() error {
	if err := ValidateTempo(c.Tempo); err != nil {
		return err
	}
	if err := ValidateAccentReduction(c.AccentReduction); err != nil {
		return err
	}
	switch c.Backend {
	case BackendSynth, BackendMIDI, BackendBoth, BackendNone:
	default:
		return errors.Errorf("backend %q: want synth, midi, both or none", c.Backend)
	}
	if c.MIDI.Channel < 1 || c.MIDI.Channel > 16 {
		return errors.Wrapf(ErrOutOfRange, "midi channel %d", c.MIDI.Channel)
	}
	return nil
}
