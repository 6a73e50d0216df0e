package workbook

import (
	"fmt"
)

// DiffSummary counts cell-level differences between two documents.
type DiffSummary struct {
	ChangedCells  int `json:"changed_cells"`
	RestyledCells int `json:"restyled_cells,omitempty"`
	TotalCells    int `json:"total_cells"`
	AddedSheets   int `json:"added_sheets,omitempty"`
	RemovedSheets int `json:"removed_sheets,omitempty"`
}

// Changed reports whether any cell or worksheet differs.
func (d DiffSummary) Changed() bool {
	return d.ChangedCells > 0 || d.RestyledCells > 0 || d.AddedSheets > 0 || d.RemovedSheets > 0
}

// Diff compares two documents worksheet by worksheet, matching sheets by
// name. Each sheet pair is compared over the union of both extents, so
// inserted and removed rows count as changed cells.
func Diff(before, after *Document) DiffSummary {
	var d DiffSummary
	for _, a := range after.Sheets {
		b, ok := before.Sheet(a.Name)
		if !ok {
			d.AddedSheets++
			rows, cols := a.RowCount(), a.ColumnCount()
			d.TotalCells += rows * cols
			d.ChangedCells += nonEmptyCells(a)
			continue
		}
		rows := max(a.RowCount(), b.RowCount())
		cols := max(a.ColumnCount(), b.ColumnCount())
		d.TotalCells += rows * cols
		for r := 1; r <= rows; r++ {
			for c := 1; c <= cols; c++ {
				if a.Cell(r, c) != b.Cell(r, c) {
					d.ChangedCells++
				}
			}
		}
		d.RestyledCells += restyledCells(b, a)
	}
	for _, b := range before.Sheets {
		if _, ok := after.Sheet(b.Name); !ok {
			d.RemovedSheets++
		}
	}
	return d
}

func restyledCells(before, after *Worksheet) int {
	n := 0
	for c, s := range after.styles {
		if prev, ok := before.styles[c]; !ok || prev != s {
			n++
		}
	}
	for c := range before.styles {
		if _, ok := after.styles[c]; !ok {
			n++
		}
	}
	return n
}

func nonEmptyCells(ws *Worksheet) int {
	n := 0
	for r := 1; r <= ws.RowCount(); r++ {
		for c := 1; c <= ws.ColumnCount(); c++ {
			if !ws.Cell(r, c).IsEmpty() {
				n++
			}
		}
	}
	return n
}

// FormatDiffSummary returns a human-readable diff summary string.
func FormatDiffSummary(d DiffSummary) string {
	if !d.Changed() {
		return "diff: no changes"
	}
	var out string
	switch pct := percent(d.ChangedCells, d.TotalCells); {
	case d.TotalCells == 0 || d.ChangedCells == 0:
		out = fmt.Sprintf("diff: %d cells changed", d.ChangedCells)
	case pct < 0.1:
		out = fmt.Sprintf("diff: %d cells changed (<0.1%%)", d.ChangedCells)
	default:
		out = fmt.Sprintf("diff: %d cells changed (%.1f%%)", d.ChangedCells, pct)
	}
	if d.RestyledCells > 0 {
		out += fmt.Sprintf(", %d restyled", d.RestyledCells)
	}
	return out
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}
