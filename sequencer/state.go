package sequencer

import (
	"encoding/json"
	"fmt"

	"go-groove/pattern"
	"go-groove/style"
)

// Session is what a project save holds: the pattern as an interchange
// record plus the controls that are not part of the pattern.
type Session struct {
	Record  json.RawMessage `json:"pattern"`
	Style   StyleState      `json:"style"`
	Loop    bool            `json:"loop"`
	RunSeed uint32          `json:"runSeed"`
}

// StyleState mirrors style.Tags for persistence.
type StyleState struct {
	City       string   `json:"city,omitempty"`
	Influences []string `json:"influences,omitempty"`
	Lenses     []string `json:"lenses,omitempty"`
	Mode       string   `json:"mode,omitempty"`
}

func styleState(t style.Tags) StyleState {
	return StyleState{City: t.CityProfile, Influences: t.InfluenceVector, Lenses: t.ArtistLenses, Mode: t.Mode}
}

// Tags converts back to resolver input.
func (s StyleState) Tags() style.Tags {
	return style.Tags{CityProfile: s.City, InfluenceVector: s.Influences, ArtistLenses: s.Lenses, Mode: s.Mode}
}

// NewSession packs a pattern and its controls.
func NewSession(p *pattern.Pattern, tags style.Tags, loop bool, runSeed uint32) (Session, error) {
	rec, err := pattern.MarshalRecord(p)
	if err != nil {
		return Session{}, fmt.Errorf("export pattern: %w", err)
	}
	return Session{Record: rec, Style: styleState(tags), Loop: loop, RunSeed: runSeed}, nil
}

// Pattern validates and imports the saved record.
func (s Session) Pattern() (*pattern.Pattern, error) {
	if len(s.Record) == 0 {
		return nil, fmt.Errorf("session has no pattern")
	}
	return pattern.UnmarshalRecord(s.Record)
}
