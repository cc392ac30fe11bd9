// Package pattern holds the canonical loop representation shared by the
// editor, the generator and the scheduler.
//
// A Pattern is treated as an immutable snapshot: nothing outside the patch
// engine mutates one, and every change produces a fresh copy. Readers on
// other goroutines (the scheduler loop, the UI) can therefore hold a
// *Pattern without locking.
package pattern

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go-groove/rng"
)

// StepsPerBar is fixed: every lane holds exactly one bar of sixteenths.
const StepsPerBar = 16

// LaneID names an instrument track
type LaneID string

const (
	Kick    LaneID = "kick"
	Snare   LaneID = "snare"
	Clap    LaneID = "clap"
	Hat     LaneID = "hat"
	OpenHat LaneID = "openhat"
	Perc    LaneID = "perc"
	Tom     LaneID = "tom"
	Noise   LaneID = "noise"
)

func (id LaneID) String() string { return string(id) }

// DefaultLaneIDs is the fixed lane order of a new pattern.
var DefaultLaneIDs = []LaneID{Kick, Snare, Clap, Hat, OpenHat, Perc, Tom, Noise}

// HatLanes are the lanes the harshness metric listens to.
var HatLanes = []LaneID{Hat, OpenHat}

// IsHat reports whether id is one of the hat lanes.
func IsHat(id LaneID) bool {
	for _, h := range HatLanes {
		if h == id {
			return true
		}
	}
	return false
}

// Role is the musical job of a lane
type Role string

const (
	RoleNone    Role = ""
	RoleAnchor  Role = "ANCHOR"
	RolePulse   Role = "PULSE"
	RoleOffbeat Role = "OFFBEAT"
	RoleTexture Role = "TEXTURE"
	RoleAccent  Role = "ACCENT"
	RoleFill    Role = "FILL"
)

// Roles lists every valid non-empty role.
var Roles = []Role{RoleAnchor, RolePulse, RoleOffbeat, RoleTexture, RoleAccent, RoleFill}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	for _, v := range Roles {
		if v == r {
			return true
		}
	}
	return false
}

var defaultRoles = map[LaneID]Role{
	Kick:    RoleAnchor,
	Snare:   RoleAccent,
	Clap:    RoleAccent,
	Hat:     RolePulse,
	OpenHat: RoleOffbeat,
	Perc:    RoleTexture,
	Tom:     RoleFill,
	Noise:   RoleTexture,
}

// Step is one sixteenth slot of a lane.
type Step struct {
	On           bool
	Velocity     float64 // 0-1
	Probability  float64 // 0-1
	MicroShiftMs int     // -18 to +18
	Accent       bool
}

// DefaultStep is the canonical "off" record that CLEAR_STEP resets to.
func DefaultStep() Step {
	return Step{
		On:          false,
		Velocity:    0.8,
		Probability: 1,
	}
}

// Lane is one instrument track.
type Lane struct {
	ID                   LaneID
	Role                 Role
	PlayStartOffsetSteps int     // 0 to StepsPerBar-1, lane-local phase
	LaneSwingPct         float64 // 50-62
	Steps                []Step  // always StepsPerBar long
}

// OnCount returns the number of active steps.
func (l *Lane) OnCount() int {
	n := 0
	for _, s := range l.Steps {
		if s.On {
			n++
		}
	}
	return n
}

func (l Lane) clone() Lane {
	c := l
	c.Steps = make([]Step, len(l.Steps))
	copy(c.Steps, l.Steps)
	return c
}

// Pattern is the aggregate loop state.
type Pattern struct {
	Bars        int
	StepsPerBar int
	TempoBPM    float64
	Seed        uint32
	Density     float64 // target density knob 0-1
	SwingPct    float64 // global swing 0-100, 50 = straight
	Lanes       []Lane  // fixed order; IDs are unique

	// Metadata carried through export, never read by the scheduler.
	GrooveTemplateID string
	GrooveAmount     float64
	VariationIndex   int
}

// New creates the session-start pattern: four-on-the-floor kick, hats on
// every even step, everything else silent.
func New(tempo float64, seed uint32) *Pattern {
	p := &Pattern{
		Bars:         1,
		StepsPerBar:  StepsPerBar,
		TempoBPM:     tempo,
		Seed:         seed,
		Density:      0.5,
		SwingPct:     50,
		GrooveAmount: 0,
	}
	for _, id := range DefaultLaneIDs {
		p.Lanes = append(p.Lanes, NewLane(id, defaultRoles[id], StepsPerBar))
	}
	kick := p.laneRef(Kick)
	for _, i := range []int{0, 4, 8, 12} {
		kick.Steps[i].On = true
		kick.Steps[i].Velocity = 0.9
	}
	hat := p.laneRef(Hat)
	for i := 0; i < StepsPerBar; i += 2 {
		hat.Steps[i].On = true
		hat.Steps[i].Velocity = 0.6
	}
	return p
}

// NewLane returns an empty lane with default steps.
func NewLane(id LaneID, role Role, steps int) Lane {
	l := Lane{
		ID:           id,
		Role:         role,
		LaneSwingPct: 50,
		Steps:        make([]Step, steps),
	}
	for i := range l.Steps {
		l.Steps[i] = DefaultStep()
	}
	return l
}

// Clone returns a deep copy.
func (p *Pattern) Clone() *Pattern {
	c := *p
	c.Lanes = make([]Lane, len(p.Lanes))
	for i, l := range p.Lanes {
		c.Lanes[i] = l.clone()
	}
	return &c
}

// LaneIndex returns the position of id in Lanes, or -1.
func (p *Pattern) LaneIndex(id LaneID) int {
	for i := range p.Lanes {
		if p.Lanes[i].ID == id {
			return i
		}
	}
	return -1
}

// Lane returns the lane with the given id. The returned lane shares its step
// slice with the pattern and must be treated as read-only.
func (p *Pattern) Lane(id LaneID) (Lane, bool) {
	i := p.LaneIndex(id)
	if i < 0 {
		return Lane{}, false
	}
	return p.Lanes[i], true
}

// Step returns step i of lane id.
func (p *Pattern) Step(id LaneID, i int) (Step, bool) {
	l, ok := p.Lane(id)
	if !ok || i < 0 || i >= len(l.Steps) {
		return Step{}, false
	}
	return l.Steps[i], true
}

// LaneIDs returns lane ids in pattern order.
func (p *Pattern) LaneIDs() []LaneID {
	ids := make([]LaneID, len(p.Lanes))
	for i, l := range p.Lanes {
		ids[i] = l.ID
	}
	return ids
}

// AnchorLane returns the first lane with the ANCHOR role.
func (p *Pattern) AnchorLane() (Lane, bool) {
	for _, l := range p.Lanes {
		if l.Role == RoleAnchor {
			return l, true
		}
	}
	return Lane{}, false
}

// Valid reports whether the structural invariants hold.
func (p *Pattern) Valid() bool {
	if p == nil || len(p.Lanes) == 0 || p.StepsPerBar <= 0 {
		return false
	}
	seen := make(map[LaneID]bool, len(p.Lanes))
	for _, l := range p.Lanes {
		if seen[l.ID] || len(l.Steps) != p.StepsPerBar {
			return false
		}
		if l.PlayStartOffsetSteps < 0 || l.PlayStartOffsetSteps >= p.StepsPerBar {
			return false
		}
		seen[l.ID] = true
	}
	return true
}

// laneRef is for constructors and the patch engine's working copy only.
func (p *Pattern) laneRef(id LaneID) *Lane {
	i := p.LaneIndex(id)
	if i < 0 {
		return nil
	}
	return &p.Lanes[i]
}

// MutableLane exposes a lane of a private working copy. Only code that owns
// a freshly cloned pattern (the patch engine) may call it.
func (p *Pattern) MutableLane(id LaneID) *Lane {
	return p.laneRef(id)
}

// WithTempo returns a copy with a new tempo.
func (p *Pattern) WithTempo(bpm float64) *Pattern {
	c := p.Clone()
	c.TempoBPM = bpm
	return c
}

// WithSwing returns a copy with a new global swing, clamped to 0-100.
func (p *Pattern) WithSwing(pct float64) *Pattern {
	c := p.Clone()
	c.SwingPct = clamp(pct, 0, 100)
	return c
}

// WithBars returns a copy playing for n bars, clamped to 1-64.
func (p *Pattern) WithBars(n int) *Pattern {
	c := p.Clone()
	c.Bars = int(clamp(float64(n), 1, 64))
	return c
}

// WithSeed returns a copy with a new seed.
func (p *Pattern) WithSeed(seed uint32) *Pattern {
	c := p.Clone()
	c.Seed = seed
	return c
}

// WithGroove records the groove template applied to the pattern.
func (p *Pattern) WithGroove(templateID string, amount float64) *Pattern {
	c := p.Clone()
	c.GrooveTemplateID = templateID
	c.GrooveAmount = clamp(amount, 0, 1)
	return c
}

// WithVariation returns a copy tagged with a variation index.
func (p *Pattern) WithVariation(i int) *Pattern {
	c := p.Clone()
	c.VariationIndex = i
	return c
}

// Hash is the regression fingerprint: lanes in sorted id order, each step
// as "on,velocity,probability,microShiftMs,accent", FNV-1a 32, hex.
func (p *Pattern) Hash() string {
	lanes := make([]Lane, len(p.Lanes))
	copy(lanes, p.Lanes)
	sort.Slice(lanes, func(i, j int) bool { return lanes[i].ID < lanes[j].ID })

	var b strings.Builder
	for _, l := range lanes {
		b.WriteString(string(l.ID))
		b.WriteByte(':')
		for _, s := range l.Steps {
			b.WriteString(strconv.FormatBool(s.On))
			b.WriteByte(',')
			b.WriteString(strconv.FormatFloat(s.Velocity, 'g', -1, 64))
			b.WriteByte(',')
			b.WriteString(strconv.FormatFloat(s.Probability, 'g', -1, 64))
			b.WriteByte(',')
			b.WriteString(strconv.Itoa(s.MicroShiftMs))
			b.WriteByte(',')
			b.WriteString(strconv.FormatBool(s.Accent))
			b.WriteByte(';')
		}
		b.WriteByte('|')
	}
	return fmt.Sprintf("%08x", rng.HashString(b.String()))
}

// LaneDensity returns active steps / total steps for one lane.
func LaneDensity(l Lane) float64 {
	if len(l.Steps) == 0 {
		return 0
	}
	return float64(l.OnCount()) / float64(len(l.Steps))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
