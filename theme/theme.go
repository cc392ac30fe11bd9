package theme

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"go-groove/critique"
	"go-groove/pattern"
)

type Theme struct {
	Palette *Palette
	Symbols Symbols
}

type Symbols struct {
	// Grid states (no cursor)
	StepEmpty    rune // · inactive step
	StepActive   rune // ● has hit
	StepGhost    rune // ∘ probability below 1
	StepAccent   rune // ◆ accented hit
	StepPlayhead rune // ▶ current playing

	// Grid states (with cursor)
	CursorEmpty  rune // ○ cursor on empty
	CursorActive rune // ◉ cursor on active
}

func New(palette *Palette) *Theme {
	if palette == nil || len(palette.Colors) == 0 {
		palette = DefaultPalette()
	}
	return &Theme{
		Palette: palette,
		Symbols: Symbols{
			StepEmpty:    '·',
			StepActive:   '●',
			StepGhost:    '∘',
			StepAccent:   '◆',
			StepPlayhead: '▶',

			CursorEmpty:  '○',
			CursorActive: '◉',
		},
	}
}

// Color roles mapped to palette positions (0-1)
const (
	RoleBG      = 0.0 // deep purple
	RoleSurface = 0.1 // dark purple
	RoleMuted   = 0.2 // purple-magenta
	RoleFG      = 0.4 // pink-purple (readable)
	RoleAccent  = 0.5 // vivid magenta
	RoleCursor  = 0.6 // rose pink
	RoleActive  = 0.7 // soft red
	RoleWarning = 0.8 // orange
	RoleSuccess = 1.0 // bright yellow
)

// Lane roles get fixed palette positions so a lane keeps its colour when
// it changes velocity.
var laneRoles = map[pattern.Role]float64{
	pattern.RoleAnchor:  1.0,
	pattern.RolePulse:   0.85,
	pattern.RoleOffbeat: 0.75,
	pattern.RoleAccent:  0.65,
	pattern.RoleFill:    0.55,
	pattern.RoleTexture: 0.45,
}

func (t *Theme) BG() lipgloss.Color      { return t.Color(RoleBG) }
func (t *Theme) Surface() lipgloss.Color { return t.Color(RoleSurface) }
func (t *Theme) FG() lipgloss.Color      { return t.Color(RoleFG) }
func (t *Theme) Accent() lipgloss.Color  { return t.Color(RoleAccent) }
func (t *Theme) Muted() lipgloss.Color   { return t.Color(RoleMuted) }
func (t *Theme) Active() lipgloss.Color  { return t.Color(RoleActive) }
func (t *Theme) Cursor() lipgloss.Color  { return t.Color(RoleCursor) }
func (t *Theme) Warning() lipgloss.Color { return t.Color(RoleWarning) }
func (t *Theme) Success() lipgloss.Color { return t.Color(RoleSuccess) }

// Color returns lipgloss color for any normalized value 0-1
func (t *Theme) Color(norm float64) lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(norm))
}

// Velocity maps a step velocity onto the upper half of the palette, so
// quiet hits stay readable against the background.
func (t *Theme) Velocity(v float64) lipgloss.Color {
	return t.Color(RoleFG + (1-RoleFG)*v)
}

// Role is the lane colour for a rhythmic role.
func (t *Theme) Role(r pattern.Role) lipgloss.Color {
	if pos, ok := laneRoles[r]; ok {
		return t.Color(pos)
	}
	return t.FG()
}

// Severity colours a critique item.
func (t *Theme) Severity(s critique.Severity) lipgloss.Color {
	if s == critique.SeverityWarn {
		return t.Warning()
	}
	return t.Muted()
}

// StepSymbol picks the grid glyph for a step.
func (t *Theme) StepSymbol(s pattern.Step, cursor, playhead bool) rune {
	switch {
	case cursor && s.On:
		return t.Symbols.CursorActive
	case cursor:
		return t.Symbols.CursorEmpty
	case playhead:
		return t.Symbols.StepPlayhead
	case !s.On:
		return t.Symbols.StepEmpty
	case s.Accent:
		return t.Symbols.StepAccent
	case s.Probability < 1:
		return t.Symbols.StepGhost
	}
	return t.Symbols.StepActive
}

func rgbToLipgloss(c RGB) lipgloss.Color {
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", c[0], c[1], c[2]))
}
