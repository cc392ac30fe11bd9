package theme

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go-groove/pattern"
)

const gpl = `GIMP Palette
Name: test
Columns: 2
# comment
  0   0   0	black
255 255 255	white
300 0 0	out of range
`

func TestParseGPL(t *testing.T) {
	p, err := ParseGPL(strings.NewReader(gpl))
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "test" || len(p.Colors) != 2 {
		t.Fatalf("got %q with %d colors", p.Name, len(p.Colors))
	}
	if got := p.Lookup(0.5); got != (RGB{127, 127, 127}) {
		t.Errorf("midpoint = %v", got)
	}
	if p.Lookup(-1) != p.Colors[0] || p.Lookup(2) != p.Colors[1] {
		t.Error("lookup should clamp")
	}
	if p.Index(9) != p.Colors[1] {
		t.Error("index should clamp")
	}

	if _, err := ParseGPL(strings.NewReader("GIMP Palette\n")); err == nil {
		t.Error("empty palette should fail")
	}
}

func TestLoadOrDefault(t *testing.T) {
	p, err := LoadOrDefault("")
	if err != nil || p.Name != "plasma" {
		t.Fatalf("empty path: %v %v", p, err)
	}

	p, err = LoadOrDefault(filepath.Join(t.TempDir(), "missing.gpl"))
	if err == nil || p == nil || len(p.Colors) == 0 {
		t.Error("missing file should fall back with an error")
	}

	path := filepath.Join(t.TempDir(), "mine.gpl")
	if err := os.WriteFile(path, []byte(gpl), 0644); err != nil {
		t.Fatal(err)
	}
	if p, err = LoadOrDefault(path); err != nil || p.Name != "test" {
		t.Errorf("load: %v %v", p, err)
	}
}

func TestDefaultPaletteIsACopy(t *testing.T) {
	a := DefaultPalette()
	a.Colors[0] = RGB{1, 2, 3}
	if DefaultPalette().Colors[0] == a.Colors[0] {
		t.Error("default palette shared its backing array")
	}
}

func TestStepSymbol(t *testing.T) {
	th := New(nil)
	on := pattern.Step{On: true, Velocity: 0.8, Probability: 1}
	ghost := on
	ghost.Probability = 0.5
	accent := on
	accent.Accent = true

	tests := []struct {
		name     string
		step     pattern.Step
		cursor   bool
		playhead bool
		want     rune
	}{
		{"empty", pattern.DefaultStep(), false, false, th.Symbols.StepEmpty},
		{"active", on, false, false, th.Symbols.StepActive},
		{"ghost", ghost, false, false, th.Symbols.StepGhost},
		{"accent", accent, false, false, th.Symbols.StepAccent},
		{"playhead", on, false, true, th.Symbols.StepPlayhead},
		{"cursor wins", on, true, true, th.Symbols.CursorActive},
		{"cursor empty", pattern.DefaultStep(), true, false, th.Symbols.CursorEmpty},
	}
	for _, tt := range tests {
		if got := th.StepSymbol(tt.step, tt.cursor, tt.playhead); got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestRoleColorsDiffer(t *testing.T) {
	th := New(DefaultPalette())
	if th.Role(pattern.RoleAnchor) == th.Role(pattern.RoleTexture) {
		t.Error("anchor and texture share a colour")
	}
	if th.Role(pattern.RoleNone) != th.FG() {
		t.Error("unknown role should use the foreground")
	}
	if th.Velocity(0.2) == th.Velocity(1) {
		t.Error("velocity should change the colour")
	}
}
