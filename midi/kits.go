package midi

import (
	"math"
	"sort"

	"go-groove/pattern"
)

// Kit maps lanes to the notes a drum machine listens on.
type Kit struct {
	Name  string
	Notes map[pattern.LaneID]uint8
}

// Note returns the note for lane.
func (k Kit) Note(lane pattern.LaneID) (uint8, bool) {
	n, ok := k.Notes[lane]
	return n, ok
}

// Lane is the reverse of Note.
func (k Kit) Lane(note uint8) (pattern.LaneID, bool) {
	for id, n := range k.Notes {
		if n == note {
			return id, true
		}
	}
	return "", false
}

// Kits contains all available mappings.
var Kits = map[string]Kit{
	"gm": {
		Name: "General MIDI",
		Notes: map[pattern.LaneID]uint8{
			pattern.Kick:    36,
			pattern.Snare:   38,
			pattern.Clap:    39,
			pattern.Hat:     42,
			pattern.OpenHat: 46,
			pattern.Perc:    56, // cowbell
			pattern.Tom:     45,
			pattern.Noise:   70, // maracas
		},
	},
	"rd8": {
		Name: "Behringer RD-8",
		Notes: map[pattern.LaneID]uint8{
			pattern.Kick:    36,
			pattern.Snare:   40, // RD-8 uses 40, not 38
			pattern.Clap:    39,
			pattern.Hat:     42,
			pattern.OpenHat: 46,
			pattern.Perc:    56,
			pattern.Tom:     45,
			pattern.Noise:   70,
		},
	},
	"tr8s": {
		Name: "Roland TR-8S",
		Notes: map[pattern.LaneID]uint8{
			pattern.Kick:    36,
			pattern.Snare:   38,
			pattern.Clap:    39,
			pattern.Hat:     42,
			pattern.OpenHat: 46,
			pattern.Perc:    37, // rimshot
			pattern.Tom:     43,
			pattern.Noise:   49, // crash
		},
	},
	"er1": {
		Name: "Korg ER-1",
		Notes: map[pattern.LaneID]uint8{
			pattern.Kick:    36, // perc synth 1
			pattern.Snare:   38, // perc synth 2
			pattern.Clap:    39,
			pattern.Hat:     42,
			pattern.OpenHat: 46,
			pattern.Perc:    41, // perc synth 4
			pattern.Tom:     40, // perc synth 3
			pattern.Noise:   49,
		},
	},
}

// DefaultKit is the default kit name
const DefaultKit = "gm"

// KitNames returns the available kit names, sorted.
func KitNames() []string {
	names := make([]string, 0, len(Kits))
	for n := range Kits {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// GetKit returns a kit by name, defaulting to GM if not found
func GetKit(name string) Kit {
	if kit, ok := Kits[name]; ok {
		return kit
	}
	return Kits[DefaultKit]
}

const accentBoost = 20

// Velocity converts a 0-1 step velocity to MIDI, adding a fixed boost for
// accents. The result is never 0, which would read as a note off.
func Velocity(v float64, accent bool) uint8 {
	n := int(math.Round(v * 127))
	if accent {
		n += accentBoost
	}
	if n < 1 {
		n = 1
	}
	if n > 127 {
		n = 127
	}
	return uint8(n)
}
