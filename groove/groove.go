// Package groove turns a named timing template into micro-shift patches.
package groove

import (
	"math"
	"sort"
	"strings"

	"go-groove/debug"
	"go-groove/patch"
	"go-groove/pattern"
)

// Templates hold per-step offsets as a fraction of one step. A template
// shorter than the bar repeats.
var Templates = map[string][]float64{
	"straight": {0},
	"shuffle":  {0, 0.08},
	"mpc":      {0, 0.12, 0, 0.1},
	"push":     {0, -0.06, -0.03, -0.06},
	"lazy":     {0.04, 0.1, 0.04, 0.08},
	"broken":   {0, 0.05, -0.04, 0.1, 0, 0.02, -0.06, 0.12},
	"dilla":    {0.02, 0.14, -0.03, 0.09, 0.05, 0.16, -0.02, 0.11},
}

// DefaultTemplate is used when a template id is empty or unknown.
const DefaultTemplate = "straight"

// RoleFeel scales how strongly each role follows the template.
var RoleFeel = map[pattern.Role]float64{
	pattern.RoleAnchor:  0.4,
	pattern.RolePulse:   1.0,
	pattern.RoleOffbeat: 0.9,
	pattern.RoleTexture: 0.7,
	pattern.RoleAccent:  0.6,
	pattern.RoleFill:    0.5,
}

const (
	maxSwingFrac = 0.12
	maxShiftMs   = 50
)

// Settings select and scale a template.
type Settings struct {
	TempoBPM   float64
	SwingPct   float64
	TemplateID string
	Amount     float64 // 0-1
}

// TemplateIDs lists the known templates, sorted.
func TemplateIDs() []string {
	ids := make([]string, 0, len(Templates))
	for id := range Templates {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Lookup returns the template for id, falling back to straight.
func Lookup(id string) ([]float64, string) {
	key := strings.ToLower(strings.TrimSpace(id))
	if t, ok := Templates[key]; ok {
		return t, key
	}
	return Templates[DefaultTemplate], DefaultTemplate
}

// SwingFraction converts a swing percentage to a delay fraction of one step.
func SwingFraction(pct float64) float64 {
	f := (pct - 50) / 100
	if f < 0 {
		return 0
	}
	if f > maxSwingFrac {
		return maxSwingFrac
	}
	return f
}

// Apply computes SET_MICROSHIFT ops that move p onto the template. Steps
// already at their target are skipped, so applying the result and calling
// Apply again yields nothing.
func Apply(p *pattern.Pattern, s Settings) []patch.Op {
	if !p.Valid() || s.TempoBPM <= 0 {
		return nil
	}
	tpl, id := Lookup(s.TemplateID)
	amount := math.Max(0, math.Min(1, s.Amount))
	stepMs := 60000 / s.TempoBPM / 4
	swing := SwingFraction(s.SwingPct)

	var ops []patch.Op
	for _, l := range p.Lanes {
		feel, ok := RoleFeel[l.Role]
		if !ok {
			feel = 1
		}
		for i, st := range l.Steps {
			frac := tpl[i%len(tpl)] * amount * feel
			if i%2 == 1 {
				frac += swing
			}
			ms := int(math.Round(frac * stepMs))
			if ms > maxShiftMs {
				ms = maxShiftMs
			} else if ms < -maxShiftMs {
				ms = -maxShiftMs
			}
			ms = patch.ClampMicroShift(ms)
			if ms == st.MicroShiftMs {
				continue
			}
			ops = append(ops, patch.SetMicroShift{
				LaneID:       l.ID,
				StepIndex:    i,
				MicroShiftMs: ms,
				Meta:         patch.Meta{Role: l.Role, ReasonCode: patch.ReasonGroove},
			})
		}
	}
	debug.Log("groove", "template=%s amount=%.2f swing=%.1f ops=%d", id, amount, s.SwingPct, len(ops))
	return ops
}
