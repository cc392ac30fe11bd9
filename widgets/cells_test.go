package widgets

import (
	"strings"
	"testing"
)

func TestCellAt(t *testing.T) {
	// 16 cells grouped by 4: "a b c d  e f g h  ..."
	tests := []struct {
		x, want int
	}{
		{0, 0},
		{1, -1},
		{2, 1},
		{6, 3},
		{7, -1},
		{8, -1},
		{9, 4},
		{33, 15},
		{34, -1},
	}
	for _, tt := range tests {
		if got := CellAt(tt.x, 16, 4); got != tt.want {
			t.Errorf("CellAt(%d) = %d, want %d", tt.x, got, tt.want)
		}
	}
	if got := CellAt(4, 8, 0); got != 2 {
		t.Errorf("ungrouped CellAt(4) = %d", got)
	}
}

func TestRenderKeyHelp(t *testing.T) {
	out := RenderKeyHelp([]KeySection{{
		Title: "Transport",
		Keys:  []KeyBinding{{"p", "play"}, {"+/-", "tempo"}},
	}})
	lines := strings.Split(out, "\n")
	if len(lines) != 3 || lines[0] != "Transport" {
		t.Fatalf("got %q", out)
	}
	if !strings.HasPrefix(lines[1], "  p ") || !strings.HasSuffix(lines[2], "tempo") {
		t.Errorf("got %q", out)
	}

	if got := RenderKeyLine([]KeyBinding{{"g", "generate"}, {"u", "undo"}}); got != "g:generate  u:undo" {
		t.Errorf("key line = %q", got)
	}
}
