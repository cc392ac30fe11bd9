package tui

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"go-groove/groove"
	"go-groove/midi"
	"go-groove/patch"
	"go-groove/pattern"
	"go-groove/sequencer"
	"go-groove/theme"
	"go-groove/widgets"
)

const (
	tempoStep   = 5
	swingStep   = 2
	labelWidth  = 16 // "openhat  OFFBEAT "
	stepGroup   = 4
	refreshRate = 50 * time.Millisecond
)

// layoutBounds holds cached layout info
type layoutBounds struct {
	gridTop int
	lanes   int
}

type Model struct {
	Manager *sequencer.Manager
	Ports   *midi.Watcher    // may be nil
	Store   *sequencer.Store // may be nil
	Theme   *theme.Theme

	// Project is where s/o save and load.
	Project string

	// GrooveAmount is used when t applies a template.
	GrooveAmount float64

	// OnPort handles hot-plug and returns a status line. May be nil.
	OnPort func(midi.PortEvent) string

	lane     int
	step     int
	groove   int
	help     bool
	status   string
	quitting bool
	bounds   *layoutBounds
}

type UpdateMsg struct{}

type PortEventMsg midi.PortEvent

type refreshMsg time.Time

func NewModel(manager *sequencer.Manager, ports *midi.Watcher, store *sequencer.Store, th *theme.Theme) Model {
	if th == nil {
		th = theme.New(nil)
	}
	m := Model{
		Manager:      manager,
		Ports:        ports,
		Store:        store,
		Theme:        th,
		Project:      "untitled",
		GrooveAmount: 1,
		bounds:       &layoutBounds{},
	}
	m.SetGrooveTemplate(groove.DefaultTemplate)
	return m
}

// SetGrooveTemplate picks the template the next t applies. Unknown ids
// fall back the same way groove.Lookup does.
func (m *Model) SetGrooveTemplate(id string) {
	_, key := groove.Lookup(id)
	m.groove = max(0, slices.Index(groove.TemplateIDs(), key))
}

func ListenForUpdates(manager *sequencer.Manager) tea.Cmd {
	return func() tea.Msg {
		<-manager.UpdateChan
		return UpdateMsg{}
	}
}

func ListenForPorts(w *midi.Watcher) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-w.Events()
		if !ok {
			return nil
		}
		return PortEventMsg(event)
	}
}

func refresh() tea.Cmd {
	return tea.Tick(refreshRate, func(t time.Time) tea.Msg { return refreshMsg(t) })
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{ListenForUpdates(m.Manager), refresh()}
	if m.Ports != nil {
		cmds = append(cmds, ListenForPorts(m.Ports))
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg.String())

	case tea.MouseMsg:
		if msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft {
			if lane, step, ok := m.hitTest(msg.X, msg.Y); ok {
				m.lane, m.step = lane, step
				m.toggle()
			}
		}

	case UpdateMsg:
		return m, ListenForUpdates(m.Manager)

	case refreshMsg:
		return m, refresh()

	case PortEventMsg:
		if m.OnPort != nil {
			if s := m.OnPort(midi.PortEvent(msg)); s != "" {
				m.status = s
			}
		}
		return m, ListenForPorts(m.Ports)
	}

	return m, nil
}

func (m Model) handleKey(key string) (tea.Model, tea.Cmd) {
	p := m.Manager.Pattern()
	switch key {
	case "q", "ctrl+c":
		m.quitting = true
		m.Manager.Stop()
		return m, tea.Quit

	case "p":
		if m.Manager.Playing() {
			m.Manager.Stop()
		} else if !m.Manager.Play() {
			m.status = "cannot play: pattern has no lanes"
		}

	case "h", "left":
		m.step = patch.Wrap(m.step-1, p.StepsPerBar)
	case "l", "right":
		m.step = patch.Wrap(m.step+1, p.StepsPerBar)
	case "k", "up":
		m.lane = patch.Wrap(m.lane-1, len(p.Lanes))
	case "j", "down":
		m.lane = patch.Wrap(m.lane+1, len(p.Lanes))

	case " ":
		m.toggle()

	case "+", "=":
		m.Manager.SetTempo(p.TempoBPM + tempoStep)
	case "-", "_":
		m.Manager.SetTempo(p.TempoBPM - tempoStep)
	case "]":
		m.Manager.SetSwing(p.SwingPct + swingStep)
	case "[":
		m.Manager.SetSwing(p.SwingPct - swingStep)
	case "L":
		m.Manager.SetLoop(!m.Manager.Loop())

	case "g":
		out := m.Manager.Generate()
		m.status = fmt.Sprintf("%d candidate(s)", len(out.ScoredCandidates))
		if len(out.UnknownTags) > 0 {
			m.status += ", unknown tags: " + strings.Join(out.UnknownTags, ", ")
		}
	case "1", "2", "3":
		i := int(key[0] - '1')
		res, err := m.Manager.Accept(i)
		if err != nil {
			m.status = err.Error()
			break
		}
		m.status = fmt.Sprintf("accepted %d: %d applied, %d rejected", i+1, len(res.Applied), len(res.Rejected))

	case "t":
		ids := groove.TemplateIDs()
		id := ids[m.groove%len(ids)]
		m.groove = (m.groove + 1) % len(ids)
		res := m.Manager.Groove(id, m.GrooveAmount)
		m.status = fmt.Sprintf("groove %s: %d steps moved", id, len(res.Applied))

	case "u":
		if !m.Manager.Undo() {
			m.status = "nothing to undo"
		}

	case "s":
		m.status = m.save()
	case "o":
		m.status = m.load()

	case "?":
		m.help = !m.help
	}
	return m, nil
}

func (m *Model) toggle() {
	p := m.Manager.Pattern()
	if m.lane >= len(p.Lanes) {
		return
	}
	m.Manager.Toggle(p.Lanes[m.lane].ID, m.step)
}

func (m Model) save() string {
	if m.Store == nil {
		return "no project store"
	}
	sess, err := m.Manager.Snapshot()
	if err != nil {
		return err.Error()
	}
	info, err := m.Store.Save(m.Project, "", sess)
	if err != nil {
		return err.Error()
	}
	return "saved " + m.Project + "/" + info.Filename
}

func (m Model) load() string {
	if m.Store == nil {
		return "no project store"
	}
	sess, err := m.Store.Load(m.Project, "")
	if errors.Is(err, sequencer.ErrNoSaves) {
		return "no saves in " + m.Project
	}
	if err != nil {
		return err.Error()
	}
	if err := m.Manager.Restore(sess); err != nil {
		return err.Error()
	}
	return "loaded " + m.Project
}

// hitTest maps a mouse position to a grid cell.
func (m Model) hitTest(x, y int) (lane, step int, ok bool) {
	row := y - m.bounds.gridTop
	if row < 0 || row >= m.bounds.lanes || x < labelWidth {
		return 0, 0, false
	}
	step = widgets.CellAt(x-labelWidth, m.Manager.Pattern().StepsPerBar, stepGroup)
	if step < 0 {
		return 0, 0, false
	}
	return row, step, true
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	th := m.Theme
	p := m.Manager.Pattern()
	tr := m.Manager.Transport()

	headerStyle := lipgloss.NewStyle().Foreground(th.Accent())
	dimStyle := lipgloss.NewStyle().Foreground(th.Muted())
	fgStyle := lipgloss.NewStyle().Foreground(th.FG())

	playState := "STOP"
	if tr.Playing {
		playState = "PLAY"
	}
	loop := "once"
	if tr.Loop {
		loop = "loop"
	}
	header := headerStyle.Render(fmt.Sprintf("go-groove  %s  %3.0fbpm  swing %2.0f%%  %s x%d  var %d  groove %s",
		playState, p.TempoBPM, p.SwingPct, loop, p.Bars, p.VariationIndex, grooveName(p)))

	grid := m.renderGrid(p)
	m.bounds.gridTop = 1 + lipgloss.Height(header) + 1
	m.bounds.lanes = len(p.Lanes)

	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(header)
	out.WriteString("\n\n")
	out.WriteString(grid)
	out.WriteString("\n\n")
	out.WriteString(m.renderMetrics())
	if c := m.renderCandidates(); c != "" {
		out.WriteString("\n\n")
		out.WriteString(c)
	}
	if c := m.renderCritique(); c != "" {
		out.WriteString("\n\n")
		out.WriteString(c)
	}
	if m.status != "" {
		out.WriteString("\n\n")
		out.WriteString(fgStyle.Render(m.status))
	}
	out.WriteString("\n\n")
	if m.help {
		out.WriteString(dimStyle.Render(widgets.RenderKeyHelp(keySections)))
		out.WriteString("\n\n")
		out.WriteString(m.renderLegend())
	} else {
		out.WriteString(dimStyle.Render(widgets.RenderKeyLine(shortKeys)))
	}
	return out.String()
}

func (m Model) renderGrid(p *pattern.Pattern) string {
	th := m.Theme
	head := m.Manager.Playhead()
	lines := make([]string, 0, len(p.Lanes))
	for li, l := range p.Lanes {
		label := lipgloss.NewStyle().Foreground(th.Role(l.Role)).Width(labelWidth).
			Render(fmt.Sprintf("%-8s %s", l.ID, l.Role))
		cells := make([]widgets.Cell, len(l.Steps))
		for i, s := range l.Steps {
			global := patch.Wrap(i+l.PlayStartOffsetSteps, p.StepsPerBar)
			cursor := li == m.lane && i == m.step
			playing := global == head
			c := widgets.Cell{Symbol: th.StepSymbol(s, cursor, playing), Color: th.Muted()}
			if s.On {
				c.Color = th.Velocity(s.Velocity)
			}
			if cursor {
				c.Color = th.Cursor()
				c.Bold = true
			}
			cells[i] = c
		}
		lines = append(lines, label+widgets.RenderRow(cells, stepGroup))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderMetrics() string {
	th := m.Theme
	met := m.Manager.Last().Metrics
	if met.DensityPerLane == nil {
		return lipgloss.NewStyle().Foreground(th.Muted()).Render("g: generate to see metrics")
	}
	meter := func(name string, v float64) string {
		return fmt.Sprintf("%-9s %s %.2f", name, widgets.RenderMeter(v, 10, th.Active(), th.Surface()), v)
	}
	return strings.Join([]string{
		meter("collision", met.CollisionRiskScore),
		meter("harsh", met.HarshnessRisk),
		meter("anchor", met.AnchorClarity),
		meter("density", met.MeanDensity()),
	}, "\n")
}

func (m Model) renderCandidates() string {
	th := m.Theme
	cands := m.Manager.Last().ScoredCandidates
	if len(cands) == 0 {
		return ""
	}
	lines := []string{lipgloss.NewStyle().Foreground(th.Accent()).Render("candidates")}
	for i, c := range cands {
		ops := make([]string, len(c.Ops))
		for j, op := range c.Ops {
			ops[j] = patch.Describe(op)
		}
		lines = append(lines, fmt.Sprintf("  %d %-20s %.4f  %s", i+1, c.Label, c.Score.Score, strings.Join(ops, "; ")))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderCritique() string {
	th := m.Theme
	items := m.Manager.Last().CritiqueItems
	if len(items) == 0 {
		return ""
	}
	lines := make([]string, 0, len(items))
	for _, it := range items {
		style := lipgloss.NewStyle().Foreground(th.Severity(it.Severity))
		line := it.Code
		if it.Lane != "" {
			line += " " + string(it.Lane)
		}
		lines = append(lines, style.Render(fmt.Sprintf("  %s: %s", line, it.Message)))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderLegend() string {
	th := m.Theme
	sym := th.Symbols
	items := []struct {
		cell       widgets.Cell
		name, desc string
	}{
		{widgets.Cell{Symbol: sym.StepActive, Color: th.Velocity(0.8)}, "hit", "brighter is louder"},
		{widgets.Cell{Symbol: sym.StepGhost, Color: th.Velocity(0.5)}, "ghost", "fires with probability < 1"},
		{widgets.Cell{Symbol: sym.StepAccent, Color: th.Velocity(1)}, "accent", "velocity boost"},
		{widgets.Cell{Symbol: sym.StepPlayhead, Color: th.Muted()}, "playhead", "last scheduled step"},
	}
	lines := []string{"Legend"}
	for _, it := range items {
		lines = append(lines, widgets.RenderLegendItem(it.cell, it.name, it.desc))
	}
	return strings.Join(lines, "\n")
}

func grooveName(p *pattern.Pattern) string {
	if p.GrooveTemplateID == "" {
		return "-"
	}
	return fmt.Sprintf("%s %.0f%%", p.GrooveTemplateID, p.GrooveAmount*100)
}

var shortKeys = []widgets.KeyBinding{
	{Key: "hjkl", Desc: "nav"},
	{Key: "space", Desc: "toggle"},
	{Key: "p", Desc: "play"},
	{Key: "g", Desc: "generate"},
	{Key: "1-3", Desc: "accept"},
	{Key: "u", Desc: "undo"},
	{Key: "?", Desc: "help"},
	{Key: "q", Desc: "quit"},
}

var keySections = []widgets.KeySection{
	{Title: "Grid", Keys: []widgets.KeyBinding{
		{Key: "hjkl/arrows", Desc: "move cursor"},
		{Key: "space/click", Desc: "toggle step"},
		{Key: "u", Desc: "undo"},
	}},
	{Title: "Transport", Keys: []widgets.KeyBinding{
		{Key: "p", Desc: "play / stop"},
		{Key: "+/-", Desc: "tempo"},
		{Key: "[/]", Desc: "swing"},
		{Key: "L", Desc: "loop / one-shot"},
	}},
	{Title: "Variation", Keys: []widgets.KeyBinding{
		{Key: "g", Desc: "generate candidates"},
		{Key: "1-3", Desc: "accept candidate"},
		{Key: "t", Desc: "apply groove template, then cycle"},
	}},
	{Title: "Project", Keys: []widgets.KeyBinding{
		{Key: "s", Desc: "save"},
		{Key: "o", Desc: "open latest save"},
		{Key: "q", Desc: "quit"},
	}},
}
