package tui

import (
	"fmt"
	"slices"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"go-rhythm/catalog"
	"go-rhythm/config"
	"go-rhythm/debug"
	"go-rhythm/pattern"
	"go-rhythm/sequencer"
	"go-rhythm/theme"
	"go-rhythm/widgets"
)

type Model struct {
	Player   *sequencer.Player
	Theme    *theme.Theme
	roster   []string
	labels   []string
	editing  pattern.Variant
	row      int
	col      int
	status   string
	quitting bool

	exportDir string // empty = catalog.ExportDir()
}

type UpdateMsg struct{}

func NewModel(player *sequencer.Player, th *theme.Theme) Model {
	cat := player.Catalog()
	roster := player.Instruments()
	labels := make([]string, len(roster))
	for i, id := range roster {
		labels[i] = id
		if inst, err := cat.Instrument(id); err == nil && inst.Name != "" {
			labels[i] = inst.Name
		}
	}
	return Model{
		Player: player,
		Theme:  th,
		roster: roster,
		labels: labels,
	}
}

func ListenForUpdates(player *sequencer.Player) tea.Cmd {
	return func() tea.Msg {
		<-player.UpdateChan
		return UpdateMsg{}
	}
}

func (m Model) Init() tea.Cmd {
	return ListenForUpdates(m.Player)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.handleKey(msg.String()) {
			m.quitting = true
			m.Player.Stop()
			return m, tea.Quit
		}

	case UpdateMsg:
		return m, ListenForUpdates(m.Player)
	}

	return m, nil
}

// handleKey applies one key press and reports whether to quit
func (m *Model) handleKey(key string) bool {
	p := m.Player
	s := p.Snapshot()
	key0 := m.cursorKey(s.Meter)
	m.status = ""

	switch key {
	case "q", "ctrl+c":
		return true

	// transport
	case " ":
		p.TogglePlay()
	case "g":
		p.StartWithoutCountIn()
	case "s":
		p.Stop()

	// cursor
	case "h", "left":
		m.col--
	case "l", "right":
		m.col++
	case "k", "up":
		m.row--
	case "j", "down":
		m.row++

	// editing
	case "x", "enter":
		p.ToggleEnabled(m.editing, m.roster[m.row], key0)
	case "a":
		p.ToggleAccent(m.editing, m.roster[m.row], key0)
	case "A":
		p.ToggleColumnAccent(m.editing, key0)
	case "b":
		p.ToggleBeatAccent(m.editing, pattern.StepToPosition(m.col, s.Meter.Subdivision).Beat)
	case "C":
		p.ClearPattern(m.editing)
	case "f":
		if m.editing == pattern.Main {
			m.editing = pattern.Fill
		} else {
			m.editing = pattern.Main
		}
	case "e":
		m.export(s)

	// live parameters
	case "+", "=":
		m.adjust(s.Tempo+5, config.ValidateTempo, p.SetTempo)
	case "-", "_":
		m.adjust(s.Tempo-5, config.ValidateTempo, p.SetTempo)
	case "]":
		m.adjust(s.Measures+1, config.ValidateMeasures, p.SetMeasures)
	case "[":
		m.adjust(s.Measures-1, config.ValidateMeasures, p.SetMeasures)
	case "v":
		m.adjust(s.AccentReduction-1, config.ValidateAccentReduction, p.SetAccentReduction)
	case "V":
		m.adjust(s.AccentReduction+1, config.ValidateAccentReduction, p.SetAccentReduction)
	case "F":
		p.SetFillEnabled(!s.FillEnabled)
	case "c":
		p.SetCountIn(!s.CountIn)

	// structure
	case ">", ".":
		m.restructure(s.Meter.Subdivision+1, config.ValidateSubdivision, p.SetSubdivision)
	case "<", ",":
		m.restructure(s.Meter.Subdivision-1, config.ValidateSubdivision, p.SetSubdivision)
	case "}":
		m.restructure(s.Meter.BeatsPerMeasure+1, config.ValidateBeatsPerMeasure, p.SetBeatsPerMeasure)
	case "{":
		m.restructure(s.Meter.BeatsPerMeasure-1, config.ValidateBeatsPerMeasure, p.SetBeatsPerMeasure)

	// catalog
	case "tab":
		m.loadPreset(s.Preset, 1)
	case "shift+tab":
		m.loadPreset(s.Preset, -1)
	case "K":
		ids := p.Catalog().KitIDs()
		if err := p.SetKit(next(ids, s.Kit, 1)); err != nil {
			m.status = err.Error()
		}

	case "1", "2", "3", "4", "5", "6", "7", "8":
		idx := int(key[0] - '1')
		if idx < len(m.roster) {
			if err := p.Preview(m.roster[idx]); err != nil {
				m.status = err.Error()
			}
		}
	}

	m.clampCursor(p.Snapshot().Meter)
	return false
}

// adjust validates a new value before it reaches the player
func (m *Model) adjust(v int, validate func(int) error, apply func(int)) {
	if err := validate(v); err != nil {
		m.status = err.Error()
		return
	}
	apply(v)
}

func (m *Model) restructure(v int, validate func(int) error, apply func(int) bool) {
	if err := validate(v); err != nil {
		m.status = err.Error()
		return
	}
	if !apply(v) {
		m.status = "meter change busy, try again"
	}
}

func (m *Model) loadPreset(cur string, dir int) {
	ids := m.Player.Catalog().PresetIDs()
	if err := m.Player.LoadPreset(next(ids, cur, dir)); err != nil {
		m.status = err.Error()
	}
}

func (m *Model) export(s sequencer.Snapshot) {
	pr := catalog.Capture(s.Preset+"-edit", "Custom "+s.Preset, s.Measures,
		m.Player.Pattern(pattern.Main), m.Player.Pattern(pattern.Fill))
	dir := m.exportDir
	if dir == "" {
		var err error
		if dir, err = catalog.ExportDir(); err != nil {
			m.status = err.Error()
			return
		}
	}
	path, err := catalog.SaveExport(dir, pr, time.Now())
	if err != nil {
		m.status = err.Error()
		return
	}
	debug.Log("export", "preset from %s saved to %s", s.Preset, path)
	m.status = "saved " + path
}

// next cycles through ids starting from cur
func next(ids []string, cur string, dir int) string {
	if len(ids) == 0 {
		return cur
	}
	i := slices.Index(ids, cur)
	if i < 0 {
		return ids[0]
	}
	return ids[(i+dir+len(ids))%len(ids)]
}

func (m *Model) cursorKey(meter pattern.Meter) string {
	m.clampCursor(meter)
	return pattern.StepToPosition(m.col, meter.Subdivision).Key()
}

func (m *Model) clampCursor(meter pattern.Meter) {
	m.col = min(max(m.col, 0), meter.Steps()-1)
	m.row = min(max(m.row, 0), len(m.roster)-1)
}

func (m Model) grid(s sequencer.Snapshot) widgets.Grid {
	pat := m.Player.Pattern(m.editing)
	keys := s.Meter.Keys()

	g := widgets.Grid{
		Subdivision: s.Meter.Subdivision,
		CursorRow:   m.row,
		CursorCol:   m.col,
		Playhead:    -1,
	}
	if (s.Phase == sequencer.Playing || s.Phase == sequencer.Paused) && s.Position.Measure > 0 {
		g.Playhead = pattern.PositionToStep(pattern.Position{Beat: s.Position.Beat, SubBeat: s.Position.SubBeat}, s.Meter.Subdivision)
	}
	for i, id := range m.roster {
		row := widgets.GridRow{Label: m.labels[i], Cells: make([]widgets.CellState, len(keys))}
		for c, k := range keys {
			cell := pat.Cell(id, k)
			switch {
			case cell.Enabled && cell.Accent:
				row.Cells[c] = widgets.CellAccent
			case cell.Enabled:
				row.Cells[c] = widgets.CellOn
			case cell.Accent:
				row.Cells[c] = widgets.CellGhost
			}
		}
		g.Rows = append(g.Rows, row)
	}
	return g
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	s := m.Player.Snapshot()

	// Styles
	headerStyle := lipgloss.NewStyle().Foreground(m.Theme.Accent())
	dimStyle := lipgloss.NewStyle().Foreground(m.Theme.Muted())
	warnStyle := lipgloss.NewStyle().Foreground(m.Theme.Warning())

	measure := fmt.Sprintf("%d/%d", s.Position.Measure, s.Measures)
	if s.Phase == sequencer.Stopped {
		measure = fmt.Sprintf("-/%d", s.Measures)
	}
	header := headerStyle.Render(fmt.Sprintf("go-rhythm  %-8s %3dbpm  %s  measure %s  %s / %s",
		s.Phase, s.Tempo, s.Meter, measure, s.Preset, s.Kit))

	flags := dimStyle.Render(fmt.Sprintf("editing:%s  fill:%s  count-in:%s  accent:-%ddB",
		m.editing, onOff(s.FillEnabled), onOff(s.CountIn), s.AccentReduction))

	var lamp string
	switch {
	case s.Phase == sequencer.CountingIn:
		lamp = warnStyle.Render("COUNT-IN ") + widgets.RenderCountIn(m.Theme, s.Meter.BeatsPerMeasure, s.Position.Beat)
	case s.FillEnabled && s.Phase == sequencer.Playing && s.Position.Measure == s.Measures:
		lamp = warnStyle.Render("FILL")
	}

	help := dimStyle.Render(strings.Join([]string{
		"space:play/pause g:play s:stop  hjkl:move x:toggle a:accent A:column b:beat  f:main/fill C:clear",
		"+/-:tempo [/]:measures </>:subdivision {/}:beats v/V:accent F:fill c:count-in  tab:preset K:kit 1-8:preview e:export q:quit",
	}, "\n"))

	// Build output
	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(header)
	out.WriteString("\n")
	out.WriteString(flags)
	out.WriteString("\n")
	out.WriteString(lamp)
	out.WriteString("\n")
	out.WriteString(widgets.RenderGrid(m.Theme, m.grid(s)))
	out.WriteString("\n\n")
	if m.status != "" {
		out.WriteString(warnStyle.Render(m.status))
		out.WriteString("\n")
	}
	out.WriteString(help)

	return out.String()
}
