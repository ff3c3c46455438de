package pdf

import (
	"regexp"
	"strings"
)

var columnGap = regexp.MustCompile(`\s{2,}`)

// splitRow breaks a layout-mode text line into cells on runs of two or more
// spaces. Lines with fewer than two cells are not table rows.
func splitRow(line string) []string {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return nil
	}
	cells := columnGap.Split(trimmed, -1)
	if len(cells) < 2 {
		return nil
	}
	return cells
}

// extractTables scans layout-preserved text for blocks of consecutive lines
// that look tabular. A block needs at least two rows to count as a table.
func extractTables(text string) [][][]string {
	var tables [][][]string
	var current [][]string

	flush := func() {
		if len(current) >= 2 {
			tables = append(tables, normalizeTable(current))
		}
		current = nil
	}

	for _, line := range strings.Split(text, "\n") {
		row := splitRow(line)
		if row == nil {
			flush()
			continue
		}
		current = append(current, row)
	}
	flush()

	return tables
}

// normalizeTable pads rows to a uniform width and drops columns that are
// empty in every row.
func normalizeTable(rows [][]string) [][]string {
	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}

	padded := make([][]string, len(rows))
	for i, row := range rows {
		p := make([]string, width)
		copy(p, row)
		padded[i] = p
	}

	keep := make([]int, 0, width)
	for c := 0; c < width; c++ {
		for _, row := range padded {
			if strings.TrimSpace(row[c]) != "" {
				keep = append(keep, c)
				break
			}
		}
	}

	out := make([][]string, len(padded))
	for i, row := range padded {
		cells := make([]string, 0, len(keep))
		for _, c := range keep {
			cells = append(cells, row[c])
		}
		out[i] = cells
	}
	return out
}
