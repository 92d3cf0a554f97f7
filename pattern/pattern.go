package pattern

import (
	"slices"
	"sort"
)

// Cell is one grid slot for one instrument. Accent only matters when Enabled.
type Cell struct {
	Enabled bool `json:"enabled"`
	Accent  bool `json:"accent"`
}

// Row maps position keys to cells for a single instrument
type Row map[string]Cell

// Sparse is the preset form of a pattern: enabled position keys per instrument
type Sparse map[string][]string

// Variant selects which of the two live patterns an edit targets
type Variant int

const (
	Main Variant = iota
	Fill
)

func (v Variant) String() string {
	if v == Fill {
		return "fill"
	}
	return "main"
}

// Pattern maps instrument id -> position key -> Cell.
//
// A Pattern is immutable once built: every mutator returns a new Pattern
// that copies the outer map and the rows it touches and shares the rest.
// Readers holding an older Pattern never observe a partial edit.
type Pattern struct {
	meter Meter
	rows  map[string]Row
}

// Empty builds a fully disabled pattern sized to meter
func Empty(instruments []string, meter Meter) Pattern {
	keys := meter.Keys()
	rows := make(map[string]Row, len(instruments))
	for _, id := range instruments {
		row := make(Row, len(keys))
		for _, k := range keys {
			row[k] = Cell{}
		}
		rows[id] = row
	}
	return Pattern{meter: meter, rows: rows}
}

// FromPreset materializes a preset's sparse list at the preset's own meter.
// Listed positions are enabled; a position is accented only when it sits on
// sub-beat 1 of a beat named in accents. Unknown instruments and positions
// outside the meter are ignored.
func FromPreset(instruments []string, meter Meter, accents []int, enabled Sparse) Pattern {
	p := Empty(instruments, meter)
	for id, keys := range enabled {
		row, ok := p.rows[id]
		if !ok {
			continue
		}
		for _, k := range keys {
			if _, ok := row[k]; !ok {
				continue
			}
			pos, err := ParseKey(k)
			if err != nil {
				continue
			}
			row[k] = Cell{
				Enabled: true,
				Accent:  pos.SubBeat == 1 && slices.Contains(accents, pos.Beat),
			}
		}
	}
	return p
}

// Meter returns the grid shape this pattern was built for
func (p Pattern) Meter() Meter {
	return p.meter
}

// Cell returns the cell at (instrument, key); missing entries read as the zero Cell
func (p Pattern) Cell(instrument, key string) Cell {
	return p.rows[instrument][key]
}

// Instruments returns the instrument ids that have rows, sorted
func (p Pattern) Instruments() []string {
	ids := make([]string, 0, len(p.rows))
	for id := range p.rows {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// update returns a copy of p where each named instrument's row has been
// copied and handed to fn. Rows not named are shared with p.
func (p Pattern) update(instruments []string, fn func(id string, row Row)) Pattern {
	rows := make(map[string]Row, len(p.rows)+len(instruments))
	for id, row := range p.rows {
		rows[id] = row
	}
	for _, id := range instruments {
		old := p.rows[id]
		row := make(Row, len(old)+1)
		for k, c := range old {
			row[k] = c
		}
		fn(id, row)
		rows[id] = row
	}
	return Pattern{meter: p.meter, rows: rows}
}

// ToggleEnabled flips the enabled flag of one cell
func (p Pattern) ToggleEnabled(instrument, key string) Pattern {
	return p.update([]string{instrument}, func(_ string, row Row) {
		c := row[key]
		c.Enabled = !c.Enabled
		row[key] = c
	})
}

// ToggleAccent flips the accent flag of one cell
func (p Pattern) ToggleAccent(instrument, key string) Pattern {
	return p.update([]string{instrument}, func(_ string, row Row) {
		c := row[key]
		c.Accent = !c.Accent
		row[key] = c
	})
}

// ToggleColumnAccent clears the accent on key for every instrument if any of
// them is accented there, otherwise sets it for all of them.
func (p Pattern) ToggleColumnAccent(instruments []string, key string) Pattern {
	accent := !p.anyAccent(instruments, key)
	return p.update(instruments, func(_ string, row Row) {
		c := row[key]
		c.Accent = accent
		row[key] = c
	})
}

// ToggleBeatAccent is ToggleColumnAccent applied to sub-beat 1 of beat
func (p Pattern) ToggleBeatAccent(instruments []string, beat int) Pattern {
	return p.ToggleColumnAccent(instruments, Position{Beat: beat, SubBeat: 1}.Key())
}

func (p Pattern) anyAccent(instruments []string, key string) bool {
	for _, id := range instruments {
		if p.rows[id][key].Accent {
			return true
		}
	}
	return false
}

// Clear returns an empty pattern with the same meter and instruments
func (p Pattern) Clear() Pattern {
	return Empty(p.Instruments(), p.meter)
}

// Resize reflows the pattern onto a new meter. Cells whose key is valid
// under both meters keep their state, keys outside the new meter are
// dropped and new keys start disabled.
func (p Pattern) Resize(meter Meter) Pattern {
	keys := meter.Keys()
	rows := make(map[string]Row, len(p.rows))
	for id, old := range p.rows {
		row := make(Row, len(keys))
		for _, k := range keys {
			row[k] = old[k]
		}
		rows[id] = row
	}
	return Pattern{meter: meter, rows: rows}
}

// Sparse exports the enabled positions per instrument in grid order.
// Instruments with nothing enabled are omitted.
func (p Pattern) Sparse() Sparse {
	out := make(Sparse)
	for id, row := range p.rows {
		var positions []Position
		for k, c := range row {
			if !c.Enabled {
				continue
			}
			pos, err := ParseKey(k)
			if err != nil {
				continue
			}
			positions = append(positions, pos)
		}
		if len(positions) == 0 {
			continue
		}
		sort.Slice(positions, func(i, j int) bool {
			if positions[i].Beat != positions[j].Beat {
				return positions[i].Beat < positions[j].Beat
			}
			return positions[i].SubBeat < positions[j].SubBeat
		})
		keys := make([]string, len(positions))
		for i, pos := range positions {
			keys[i] = pos.Key()
		}
		out[id] = keys
	}
	return out
}

// EnabledCount counts enabled cells across all instruments
func (p Pattern) EnabledCount() int {
	n := 0
	for _, row := range p.rows {
		for _, c := range row {
			if c.Enabled {
				n++
			}
		}
	}
	return n
}

// AccentBeats lists, in order, the beats whose downbeat carries an enabled
// accented cell on any instrument
func (p Pattern) AccentBeats() []int {
	var beats []int
	for b := 1; b <= p.meter.BeatsPerMeasure; b++ {
		key := Position{Beat: b, SubBeat: 1}.Key()
		for _, row := range p.rows {
			if c := row[key]; c.Enabled && c.Accent {
				beats = append(beats, b)
				break
			}
		}
	}
	return beats
}
