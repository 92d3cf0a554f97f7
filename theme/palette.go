package theme

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

type RGB [3]uint8

type Palette struct {
	Name   string
	Colors []RGB
}

// Default is the built-in palette, dark violet through rose to yellow
func Default() *Palette {
	return &Palette{
		Name: "dusk",
		Colors: []RGB{
			{13, 8, 135},
			{75, 3, 161},
			{125, 3, 168},
			{168, 34, 150},
			{203, 70, 121},
			{229, 107, 93},
			{248, 148, 65},
			{253, 195, 40},
			{240, 249, 33},
		},
	}
}

// Load reads a GIMP palette, or returns Default for an empty path
func Load(path string) (*Palette, error) {
	if path == "" {
		return Default(), nil
	}
	return LoadGPL(path)
}

// LoadGPL reads a GIMP palette file
func LoadGPL(path string) (*Palette, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open palette")
	}
	defer f.Close()

	p, err := ReadGPL(f)
	if err != nil {
		return nil, errors.Wrapf(err, "palette %s", path)
	}
	if p.Name == "" {
		p.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return p, nil
}

// ReadGPL parses the GIMP palette format: a "GIMP Palette" magic line,
// optional "Key: value" headers, then one "R G B [label]" line per color.
// Lines starting with # are comments.
func ReadGPL(r io.Reader) (*Palette, error) {
	p := &Palette{}
	scanner := bufio.NewScanner(r)
	lineNo := 0
	magic := false

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		if !magic {
			if line != "GIMP Palette" {
				return nil, errors.Errorf("line %d: missing GIMP Palette header", lineNo)
			}
			magic = true
			continue
		}

		if key, value, ok := strings.Cut(line, ":"); ok && len(p.Colors) == 0 {
			if strings.TrimSpace(key) == "Name" {
				p.Name = strings.TrimSpace(value)
			}
			continue
		}

		c, err := parseColor(line)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", lineNo)
		}
		p.Colors = append(p.Colors, c)
	}

	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "read palette")
	}
	if len(p.Colors) < 2 {
		return nil, errors.Errorf("need at least 2 colors, got %d", len(p.Colors))
	}
	return p, nil
}

// parseColor reads the R G B fields of a color line; the label is ignored
func parseColor(line string) (RGB, error) {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return RGB{}, errors.Errorf("want R G B, got %q", line)
	}
	var c RGB
	for i := range c {
		v, err := strconv.Atoi(fields[i])
		if err != nil || v < 0 || v > 255 {
			return RGB{}, errors.Errorf("channel %q not in 0-255", fields[i])
		}
		c[i] = uint8(v)
	}
	return c, nil
}

// Lookup returns interpolated color for normalized value 0-1
func (p *Palette) Lookup(norm float64) RGB {
	if norm <= 0 {
		return p.Colors[0]
	}
	if norm >= 1 {
		return p.Colors[len(p.Colors)-1]
	}

	// Find the two colors to interpolate between
	pos := norm * float64(len(p.Colors)-1)
	i := int(pos)
	frac := pos - float64(i)

	c0 := p.Colors[i]
	c1 := p.Colors[i+1]

	return RGB{
		lerp(c0[0], c1[0], frac),
		lerp(c0[1], c1[1], frac),
		lerp(c0[2], c1[2], frac),
	}
}

func lerp(a, b uint8, t float64) uint8 {
	return uint8(float64(a)*(1-t) + float64(b)*t)
}

// Index returns color at specific index (no interpolation)
func (p *Palette) Index(i int) RGB {
	if i < 0 {
		return p.Colors[0]
	}
	if i >= len(p.Colors) {
		return p.Colors[len(p.Colors)-1]
	}
	return p.Colors[i]
}
