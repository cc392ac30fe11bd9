package pattern

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// RecordVersion is the interchange format version written by Export.
const RecordVersion = 1

// Record is the flat, JSON-shaped interchange form of a pattern.
type Record struct {
	Version          int          `json:"version"`
	Tempo            float64      `json:"tempo"`
	LoopBars         int          `json:"loopBars"`
	StepsPerBar      int          `json:"stepsPerBar"`
	Seed             uint32       `json:"seed"`
	Swing            float64      `json:"swing"`
	GrooveTemplateID string       `json:"grooveTemplateId"`
	GrooveAmount     float64      `json:"grooveAmount"`
	VariationIndex   int          `json:"variationIndex"`
	Lanes            []LaneRecord `json:"lanes"`
}

// LaneRecord is one lane of a Record.
type LaneRecord struct {
	ID          LaneID       `json:"id"`
	Role        Role         `json:"role"`
	StartOffset int          `json:"playStartOffsetSteps"`
	SwingPct    float64      `json:"laneSwingPct"`
	Steps       []StepRecord `json:"steps"`
}

// StepRecord is one step of a LaneRecord.
type StepRecord struct {
	Index        int     `json:"index"`
	Active       bool    `json:"active"`
	Velocity     float64 `json:"velocity"`
	Probability  float64 `json:"probability"`
	MicroShiftMs int     `json:"microShiftMs"`
	RatchetCount int     `json:"ratchetCount"`
	Accent       bool    `json:"accent"`
	Flam         bool    `json:"flam"`
}

// Export flattens p into its interchange record.
func Export(p *Pattern) Record {
	r := Record{
		Version:          RecordVersion,
		Tempo:            p.TempoBPM,
		LoopBars:         p.Bars,
		StepsPerBar:      p.StepsPerBar,
		Seed:             p.Seed,
		Swing:            p.SwingPct,
		GrooveTemplateID: p.GrooveTemplateID,
		GrooveAmount:     p.GrooveAmount,
		VariationIndex:   p.VariationIndex,
		Lanes:            make([]LaneRecord, 0, len(p.Lanes)),
	}
	for _, l := range p.Lanes {
		lr := LaneRecord{
			ID:          l.ID,
			Role:        l.Role,
			StartOffset: l.PlayStartOffsetSteps,
			SwingPct:    l.LaneSwingPct,
			Steps:       make([]StepRecord, len(l.Steps)),
		}
		for i, s := range l.Steps {
			lr.Steps[i] = StepRecord{
				Index:        i,
				Active:       s.On,
				Velocity:     s.Velocity,
				Probability:  s.Probability,
				MicroShiftMs: s.MicroShiftMs,
				RatchetCount: 1,
				Accent:       s.Accent,
				Flam:         false,
			}
		}
		r.Lanes = append(r.Lanes, lr)
	}
	return r
}

// MarshalRecord exports p as indented JSON.
func MarshalRecord(p *Pattern) ([]byte, error) {
	return json.MarshalIndent(Export(p), "", "  ")
}

// ValidationError lists every schema violation found in a record.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid pattern record: " + strings.Join(e.Problems, "; ")
}

// ValidateRecord checks raw JSON against the record schema.
func ValidateRecord(data []byte) error {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(recordSchema))
	if err != nil {
		return fmt.Errorf("compile record schema: %w", err)
	}
	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("validate record: %w", err)
	}
	if result.Valid() {
		return nil
	}
	ve := &ValidationError{}
	for _, re := range result.Errors() {
		ve.Problems = append(ve.Problems, re.String())
	}
	return ve
}

// UnmarshalRecord validates data and rebuilds the pattern it describes.
func UnmarshalRecord(data []byte) (*Pattern, error) {
	if err := ValidateRecord(data); err != nil {
		return nil, err
	}
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return Import(r)
}

// Import rebuilds a pattern from a record. Steps missing from a lane keep
// the default record; duplicate lane ids and out-of-range indices fail.
func Import(r Record) (*Pattern, error) {
	if r.StepsPerBar != StepsPerBar {
		return nil, fmt.Errorf("stepsPerBar %d not supported", r.StepsPerBar)
	}
	if len(r.Lanes) == 0 {
		return nil, fmt.Errorf("record has no lanes")
	}
	bars := r.LoopBars
	if bars < 1 {
		bars = 1
	}
	p := &Pattern{
		Bars:             bars,
		StepsPerBar:      r.StepsPerBar,
		TempoBPM:         r.Tempo,
		Seed:             r.Seed,
		Density:          0.5,
		SwingPct:         clamp(r.Swing, 0, 100),
		GrooveTemplateID: r.GrooveTemplateID,
		GrooveAmount:     clamp(r.GrooveAmount, 0, 1),
		VariationIndex:   r.VariationIndex,
	}
	seen := make(map[LaneID]bool)
	for _, lr := range r.Lanes {
		if seen[lr.ID] {
			return nil, fmt.Errorf("duplicate lane %q", lr.ID)
		}
		seen[lr.ID] = true

		l := NewLane(lr.ID, lr.Role, r.StepsPerBar)
		l.PlayStartOffsetSteps = ((lr.StartOffset % r.StepsPerBar) + r.StepsPerBar) % r.StepsPerBar
		if lr.SwingPct != 0 {
			l.LaneSwingPct = clamp(lr.SwingPct, 50, 62)
		}
		for _, sr := range lr.Steps {
			if sr.Index < 0 || sr.Index >= r.StepsPerBar {
				return nil, fmt.Errorf("lane %q: step index %d out of range", lr.ID, sr.Index)
			}
			l.Steps[sr.Index] = Step{
				On:           sr.Active,
				Velocity:     sr.Velocity,
				Probability:  sr.Probability,
				MicroShiftMs: sr.MicroShiftMs,
				Accent:       sr.Accent,
			}
		}
		p.Lanes = append(p.Lanes, l)
	}
	return p, nil
}

const recordSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["version", "tempo", "loopBars", "stepsPerBar", "seed", "lanes"],
  "properties": {
    "version": {"type": "integer", "minimum": 1},
    "tempo": {"type": "number", "exclusiveMinimum": 0},
    "loopBars": {"type": "integer", "minimum": 1},
    "stepsPerBar": {"type": "integer", "const": 16},
    "seed": {"type": "integer", "minimum": 0, "maximum": 4294967295},
    "swing": {"type": "number", "minimum": 0, "maximum": 100},
    "grooveTemplateId": {"type": "string"},
    "grooveAmount": {"type": "number", "minimum": 0, "maximum": 1},
    "variationIndex": {"type": "integer", "minimum": 0},
    "lanes": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["id", "role", "steps"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "role": {"enum": ["", "ANCHOR", "PULSE", "OFFBEAT", "TEXTURE", "ACCENT", "FILL"]},
          "playStartOffsetSteps": {"type": "integer", "minimum": 0, "maximum": 15},
          "laneSwingPct": {"type": "number", "minimum": 0, "maximum": 100},
          "steps": {
            "type": "array",
            "maxItems": 16,
            "items": {
              "type": "object",
              "required": ["index", "active", "velocity", "probability"],
              "properties": {
                "index": {"type": "integer", "minimum": 0, "maximum": 15},
                "active": {"type": "boolean"},
                "velocity": {"type": "number", "minimum": 0, "maximum": 1},
                "probability": {"type": "number", "minimum": 0, "maximum": 1},
                "microShiftMs": {"type": "integer", "minimum": -50, "maximum": 50},
                "ratchetCount": {"type": "integer", "minimum": 1, "maximum": 8},
                "accent": {"type": "boolean"},
                "flam": {"type": "boolean"}
              }
            }
          }
        }
      }
    }
  }
}`
