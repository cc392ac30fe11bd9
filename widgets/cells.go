package widgets

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Cell is one rendered grid position.
type Cell struct {
	Symbol rune
	Color  lipgloss.Color
	Bold   bool
	Invert bool
}

// RenderCell renders a single colored cell
func RenderCell(c Cell) string {
	style := lipgloss.NewStyle().Foreground(c.Color).Bold(c.Bold).Reverse(c.Invert)
	return style.Render(string(c.Symbol))
}

// RenderRow renders a row of cells, with a wider gap every group cells
// (group 4 marks beats in a 16-step bar). group <= 0 means no gaps.
func RenderRow(cells []Cell, group int) string {
	var out strings.Builder
	for i, c := range cells {
		if i > 0 {
			out.WriteString(" ")
			if group > 0 && i%group == 0 {
				out.WriteString(" ")
			}
		}
		out.WriteString(RenderCell(c))
	}
	return out.String()
}

// CellAt maps an x offset inside a row rendered by RenderRow back to a
// cell index, or -1 on a gap.
func CellAt(x, n, group int) int {
	pos := 0
	for i := 0; i < n; i++ {
		if i > 0 {
			pos += 2
			if group > 0 && i%group == 0 {
				pos++
			}
		}
		if x == pos {
			return i
		}
	}
	return -1
}

// RenderMeter renders value 0-1 as a bar of width cells.
func RenderMeter(value float64, width int, fill, empty lipgloss.Color) string {
	if value < 0 {
		value = 0
	}
	if value > 1 {
		value = 1
	}
	n := int(value*float64(width) + 0.5)
	on := lipgloss.NewStyle().Foreground(fill).Render(strings.Repeat("█", n))
	off := lipgloss.NewStyle().Foreground(empty).Render(strings.Repeat("░", width-n))
	return on + off
}

// RenderLegendItem renders a single legend item: "● Name - description"
func RenderLegendItem(c Cell, name, desc string) string {
	return fmt.Sprintf("  %s %s - %s", RenderCell(c), name, desc)
}

// RenderKeyHelp formats key bindings in a friendly way
func RenderKeyHelp(sections []KeySection) string {
	var lines []string
	for _, sec := range sections {
		if sec.Title != "" {
			lines = append(lines, sec.Title)
		}
		for _, k := range sec.Keys {
			lines = append(lines, fmt.Sprintf("  %-12s %s", k.Key, k.Desc))
		}
	}
	return strings.Join(lines, "\n")
}

// RenderKeyLine formats bindings on one line: "key:desc  key:desc".
func RenderKeyLine(keys []KeyBinding) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k.Key + ":" + k.Desc
	}
	return strings.Join(parts, "  ")
}

// KeySection groups related key bindings
type KeySection struct {
	Title string
	Keys  []KeyBinding
}

// KeyBinding is a single key and its description
type KeyBinding struct {
	Key  string
	Desc string
}
