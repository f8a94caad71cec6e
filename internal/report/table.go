// Package report renders run outcomes as Markdown.
package report

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// minColumnWidth keeps separator cells at least "---".
const minColumnWidth = 3

// Table is a Markdown table whose columns are padded by display width, so
// rows containing wide (CJK) characters still line up in a terminal.
type Table struct {
	Header []string
	Rows   [][]string
}

// Lines renders the table, one string per row including the separator.
func (t Table) Lines() []string {
	cols := len(t.Header)
	for _, row := range t.Rows {
		cols = max(cols, len(row))
	}

	if cols == 0 {
		return nil
	}

	widths := make([]int, cols)
	for i := range widths {
		widths[i] = minColumnWidth
	}

	measure := func(row []string) {
		for i, cell := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(cleanCell(cell)))
		}
	}

	measure(t.Header)

	for _, row := range t.Rows {
		measure(row)
	}

	lines := make([]string, 0, len(t.Rows)+2)
	lines = append(lines, renderRow(t.Header, widths))

	sep := make([]string, cols)
	for i, w := range widths {
		sep[i] = strings.Repeat("-", w)
	}

	lines = append(lines, renderRow(sep, widths))

	for _, row := range t.Rows {
		lines = append(lines, renderRow(row, widths))
	}

	return lines
}

// String renders the table as a newline-terminated block.
func (t Table) String() string {
	lines := t.Lines()
	if len(lines) == 0 {
		return ""
	}

	return strings.Join(lines, "\n") + "\n"
}

func renderRow(row []string, widths []int) string {
	var sb strings.Builder

	sb.WriteString("|")

	for i, w := range widths {
		cell := ""
		if i < len(row) {
			cell = cleanCell(row[i])
		}

		sb.WriteString(" ")
		sb.WriteString(cell)

		if pad := w - runewidth.StringWidth(cell); pad > 0 {
			sb.WriteString(strings.Repeat(" ", pad))
		}

		sb.WriteString(" |")
	}

	return sb.String()
}

// cleanCell keeps a cell on one line and escapes the column delimiter.
func cleanCell(cell string) string {
	cell = strings.Join(strings.Fields(cell), " ")

	return strings.ReplaceAll(cell, "|", `\|`)
}
