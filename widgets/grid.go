package widgets

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"go-rhythm/theme"
)

// CellState is what a grid cell shows
type CellState int

const (
	CellOff CellState = iota
	CellOn
	CellAccent
	CellGhost // accent flag without enabled
)

// GridRow is one instrument lane
type GridRow struct {
	Label string
	Cells []CellState
}

// Grid is a pattern laid out for rendering
type Grid struct {
	Subdivision int // columns per beat
	Rows        []GridRow
	CursorRow   int
	CursorCol   int
	Playhead    int // sounding column, -1 for none
}

// RenderGrid draws the lanes with a gap between beats and the playhead
// marker above the sounding column
func RenderGrid(th *theme.Theme, g Grid) string {
	sym := th.Symbols
	offStyle := lipgloss.NewStyle().Foreground(th.Muted())
	onStyle := lipgloss.NewStyle().Foreground(th.Active())
	accentStyle := lipgloss.NewStyle().Foreground(th.Success()).Bold(true)
	cursorStyle := lipgloss.NewStyle().Foreground(th.Cursor())
	headStyle := lipgloss.NewStyle().Foreground(th.Accent())

	labelWidth := 0
	for _, r := range g.Rows {
		labelWidth = max(labelWidth, len(r.Label))
	}
	cols := 0
	if len(g.Rows) > 0 {
		cols = len(g.Rows[0].Cells)
	}
	sub := max(g.Subdivision, 1)

	var lines []string

	var head strings.Builder
	head.WriteString(strings.Repeat(" ", labelWidth+1))
	for c := 0; c < cols; c++ {
		if c > 0 && c%sub == 0 {
			head.WriteString(" ")
		}
		if c == g.Playhead {
			head.WriteString(headStyle.Render(string(sym.Playhead)))
		} else {
			head.WriteString(" ")
		}
	}
	lines = append(lines, head.String())

	for r, row := range g.Rows {
		var line strings.Builder
		line.WriteString(fmt.Sprintf("%-*s ", labelWidth, row.Label))
		for c, state := range row.Cells {
			if c > 0 && c%sub == 0 {
				line.WriteString(" ")
			}
			isCursor := r == g.CursorRow && c == g.CursorCol

			var char rune
			style := offStyle
			switch state {
			case CellAccent:
				char, style = sym.StepAccent, accentStyle
				if isCursor {
					char = sym.CursorAccent
				}
			case CellOn:
				char, style = sym.StepActive, onStyle
				if isCursor {
					char = sym.CursorActive
				}
			case CellGhost:
				char = sym.StepGhost
				if isCursor {
					char = sym.CursorEmpty
				}
			default:
				char = sym.StepEmpty
				if isCursor {
					char = sym.CursorEmpty
				}
			}
			if isCursor {
				style = cursorStyle
			}
			line.WriteString(style.Render(string(char)))
		}
		lines = append(lines, line.String())
	}
	return strings.Join(lines, "\n")
}

// RenderCountIn draws one lamp per beat, lit up to current (1-based)
func RenderCountIn(th *theme.Theme, beats, current int) string {
	lit := lipgloss.NewStyle().Foreground(th.Warning())
	dim := lipgloss.NewStyle().Foreground(th.Muted())
	var out strings.Builder
	for b := 1; b <= beats; b++ {
		if b > 1 {
			out.WriteString(" ")
		}
		if b <= current {
			out.WriteString(lit.Render(string(th.Symbols.CountIn)))
		} else {
			out.WriteString(dim.Render(string(th.Symbols.StepEmpty)))
		}
	}
	return out.String()
}

// RenderKeyHelp formats key bindings in a friendly way
func RenderKeyHelp(sections []KeySection) string {
	var lines []string
	for _, sec := range sections {
		if sec.Title != "" {
			lines = append(lines, sec.Title)
		}
		for _, k := range sec.Keys {
			lines = append(lines, fmt.Sprintf("  %-12s %s", k.Key, k.Desc))
		}
	}
	return strings.Join(lines, "\n")
}

// KeySection groups related key bindings
type KeySection struct {
	Title string
	Keys  []KeyBinding
}

// KeyBinding is a single key and its description
type KeyBinding struct {
	Key  string
	Desc string
}
