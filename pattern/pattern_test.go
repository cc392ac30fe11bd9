package pattern

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestNewDefaultPattern(t *testing.T) {
	p := New(120, 42)
	if !p.Valid() {
		t.Fatal("new pattern is not valid")
	}
	if len(p.Lanes) != len(DefaultLaneIDs) {
		t.Fatalf("got %d lanes, want %d", len(p.Lanes), len(DefaultLaneIDs))
	}
	kick, _ := p.Lane(Kick)
	for i, s := range kick.Steps {
		want := i%4 == 0
		if s.On != want {
			t.Errorf("kick step %d on=%v, want %v", i, s.On, want)
		}
	}
	hat, _ := p.Lane(Hat)
	if hat.OnCount() != 8 {
		t.Errorf("hat has %d hits, want 8", hat.OnCount())
	}
	if a, ok := p.AnchorLane(); !ok || a.ID != Kick {
		t.Errorf("anchor lane = %v, %v", a.ID, ok)
	}
}

func TestCloneIsDeep(t *testing.T) {
	p := New(120, 1)
	c := p.Clone()
	c.MutableLane(Kick).Steps[1].On = true
	if s, _ := p.Step(Kick, 1); s.On {
		t.Fatal("mutating clone leaked into original")
	}
}

func TestWithHelpersDoNotMutate(t *testing.T) {
	p := New(120, 1)
	q := p.WithTempo(90).WithSwing(140).WithSeed(9).WithGroove("mpc", 2).WithBars(0)
	if p.TempoBPM != 120 || p.SwingPct != 50 || p.Seed != 1 || p.GrooveTemplateID != "" {
		t.Fatal("With* mutated the receiver")
	}
	if q.SwingPct != 100 {
		t.Errorf("swing not clamped: %v", q.SwingPct)
	}
	if q.GrooveAmount != 1 {
		t.Errorf("groove amount not clamped: %v", q.GrooveAmount)
	}
	if q.Bars != 1 || p.WithBars(4).Bars != 4 {
		t.Errorf("bars = %d", q.Bars)
	}
}

func TestHashStableAndSensitive(t *testing.T) {
	a, b := New(120, 42), New(120, 42)
	if a.Hash() != b.Hash() {
		t.Fatal("identical patterns hash differently")
	}
	if len(a.Hash()) != 8 {
		t.Errorf("hash %q is not 8 hex chars", a.Hash())
	}

	mutations := []func(*Pattern){
		func(p *Pattern) { p.MutableLane(Snare).Steps[3].On = true },
		func(p *Pattern) { p.MutableLane(Kick).Steps[0].Velocity = 0.5 },
		func(p *Pattern) { p.MutableLane(Hat).Steps[2].Probability = 0.5 },
		func(p *Pattern) { p.MutableLane(Hat).Steps[2].MicroShiftMs = 3 },
		func(p *Pattern) { p.MutableLane(Clap).Steps[4].Accent = true },
		func(p *Pattern) { p.MutableLane(Kick).Steps[0].Velocity = 0.90001 },
		func(p *Pattern) { p.MutableLane(Hat).Steps[0].Probability = 0.999999 },
	}
	for i, m := range mutations {
		c := a.Clone()
		m(c)
		if c.Hash() == a.Hash() {
			t.Errorf("mutation %d did not change the hash", i)
		}
	}
}

func TestHashIgnoresLaneOrder(t *testing.T) {
	a := New(120, 42)
	b := a.Clone()
	b.Lanes[0], b.Lanes[1] = b.Lanes[1], b.Lanes[0]
	if a.Hash() != b.Hash() {
		t.Error("hash depends on lane order")
	}
}

func TestValidCatchesBrokenInvariants(t *testing.T) {
	p := New(120, 1)
	p.Lanes[2].Steps = p.Lanes[2].Steps[:15]
	if p.Valid() {
		t.Error("short lane accepted")
	}
	var nilPattern *Pattern
	if nilPattern.Valid() {
		t.Error("nil pattern accepted")
	}
	if (&Pattern{StepsPerBar: 16}).Valid() {
		t.Error("pattern without lanes accepted")
	}
}

func TestRecordRoundTrip(t *testing.T) {
	p := New(128, 7).WithGroove("shuffle", 0.5).WithVariation(2)
	p.MutableLane(Perc).Steps[5] = Step{On: true, Velocity: 0.4, Probability: 0.6, MicroShiftMs: -4, Accent: true}
	p.MutableLane(Perc).PlayStartOffsetSteps = 3

	data, err := MarshalRecord(p)
	if err != nil {
		t.Fatal(err)
	}
	q, err := UnmarshalRecord(data)
	if err != nil {
		t.Fatalf("UnmarshalRecord: %v", err)
	}
	if q.Hash() != p.Hash() {
		t.Errorf("hash changed across export/import: %s vs %s", q.Hash(), p.Hash())
	}
	if q.GrooveTemplateID != "shuffle" || q.VariationIndex != 2 || q.TempoBPM != 128 {
		t.Errorf("metadata lost: %+v", q)
	}
	if l, _ := q.Lane(Perc); l.PlayStartOffsetSteps != 3 {
		t.Errorf("lane offset lost: %d", l.PlayStartOffsetSteps)
	}
}

func TestExportShape(t *testing.T) {
	r := Export(New(120, 1))
	if r.Version != RecordVersion || r.StepsPerBar != 16 || r.LoopBars != 1 {
		t.Errorf("bad header: %+v", r)
	}
	for _, l := range r.Lanes {
		if len(l.Steps) != 16 {
			t.Fatalf("lane %s exported %d steps", l.ID, len(l.Steps))
		}
		for i, s := range l.Steps {
			if s.Index != i || s.RatchetCount != 1 || s.Flam {
				t.Fatalf("lane %s step %d: %+v", l.ID, i, s)
			}
		}
	}
}

func TestValidateRecordRejects(t *testing.T) {
	good := Export(New(120, 1))

	tests := []struct {
		name   string
		mutate func(r *Record)
	}{
		{"zero tempo", func(r *Record) { r.Tempo = 0 }},
		{"wrong steps per bar", func(r *Record) { r.StepsPerBar = 12 }},
		{"no lanes", func(r *Record) { r.Lanes = nil }},
		{"bad role", func(r *Record) { r.Lanes[0].Role = "BASS" }},
		{"velocity above one", func(r *Record) { r.Lanes[0].Steps[0].Velocity = 1.5 }},
		{"index out of range", func(r *Record) { r.Lanes[0].Steps[0].Index = 16 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := good
			r.Lanes = append([]LaneRecord(nil), good.Lanes...)
			r.Lanes[0].Steps = append([]StepRecord(nil), good.Lanes[0].Steps...)
			tt.mutate(&r)
			data, _ := json.Marshal(r)
			err := ValidateRecord(data)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("want ValidationError, got %v", err)
			}
			if len(ve.Problems) == 0 {
				t.Error("validation error lists no problems")
			}
		})
	}
}

func TestImportDuplicateLane(t *testing.T) {
	r := Export(New(120, 1))
	r.Lanes = append(r.Lanes, r.Lanes[0])
	if _, err := Import(r); err == nil {
		t.Error("duplicate lane accepted")
	}
}
