// Package render formats result sets as grid-style text tables for tool
// output. One table per execute-and-render cycle; nothing is cached.
package render

import (
	"fmt"
	"strings"

	"github.com/dikshantks/trino-mcp-server/internal/core/port"
)

// maxCellWidth is the ceiling on a rendered column. Wider cell text wraps
// onto continuation lines within the same row.
const maxCellWidth = 50

const (
	noColumnsMessage = "No columns returned"
	noResultsMessage = "No results returned"
)

// Table renders a result set as a bordered grid with a header row, followed
// by a row-count line. When the row count equals rowLimit the count line
// notes that results were truncated.
func Table(rs *port.ResultSet, rowLimit int) string {
	if rs == nil || len(rs.Columns) == 0 {
		return noColumnsMessage
	}
	if len(rs.Rows) == 0 {
		return noResultsMessage
	}

	cells := make([][][]string, len(rs.Rows))
	widths := make([]int, len(rs.Columns))
	for i, col := range rs.Columns {
		widths[i] = min(len(col), maxCellWidth)
	}
	for r, row := range rs.Rows {
		cells[r] = make([][]string, len(rs.Columns))
		for c := range rs.Columns {
			var lines []string
			if c < len(row) {
				lines = wrapCell(formatValue(row[c]))
			} else {
				lines = []string{""}
			}
			cells[r][c] = lines
			for _, line := range lines {
				if len(line) > widths[c] {
					widths[c] = len(line)
				}
			}
		}
	}

	var b strings.Builder
	border := gridLine(widths, '-')
	b.WriteString(border)
	b.WriteString(gridRow(widths, wrapRow(rs.Columns)))
	b.WriteString(gridLine(widths, '='))
	for _, row := range cells {
		b.WriteString(gridRow(widths, row))
		b.WriteString(border)
	}

	n := len(rs.Rows)
	fmt.Fprintf(&b, "\n\nShowing %d row(s)", n)
	if n == rowLimit {
		fmt.Fprintf(&b, " (limited to %d rows)", rowLimit)
	}
	return b.String()
}

// GroupDigits formats an integer with thousands separators for row-count
// summaries (1234567 -> "1,234,567").
func GroupDigits(n int64) string {
	s := fmt.Sprintf("%d", n)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var parts []string
	for len(s) > 3 {
		parts = append([]string{s[len(s)-3:]}, parts...)
		s = s[:len(s)-3]
	}
	parts = append([]string{s}, parts...)
	out := strings.Join(parts, ",")
	if neg {
		out = "-" + out
	}
	return out
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(val)
	case string:
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}

// wrapCell hard-wraps cell text at the column width ceiling. Embedded
// newlines also start a new line.
func wrapCell(s string) []string {
	var lines []string
	for _, raw := range strings.Split(s, "\n") {
		runes := []rune(raw)
		for len(runes) > maxCellWidth {
			lines = append(lines, string(runes[:maxCellWidth]))
			runes = runes[maxCellWidth:]
		}
		lines = append(lines, string(runes))
	}
	return lines
}

func wrapRow(values []string) [][]string {
	row := make([][]string, len(values))
	for i, v := range values {
		row[i] = wrapCell(v)
	}
	return row
}

func gridLine(widths []int, fill rune) string {
	var b strings.Builder
	for _, w := range widths {
		b.WriteByte('+')
		b.WriteString(strings.Repeat(string(fill), w+2))
	}
	b.WriteString("+\n")
	return b.String()
}

func gridRow(widths []int, row [][]string) string {
	height := 1
	for _, lines := range row {
		if len(lines) > height {
			height = len(lines)
		}
	}

	var b strings.Builder
	for line := 0; line < height; line++ {
		for c, w := range widths {
			text := ""
			if c < len(row) && line < len(row[c]) {
				text = row[c][line]
			}
			fmt.Fprintf(&b, "| %-*s ", w, text)
		}
		b.WriteString("|\n")
	}
	return b.String()
}
