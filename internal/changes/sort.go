package changes

import (
	"sort"
	"strings"

	"github.com/factor591/aisheets/internal"
	"github.com/factor591/aisheets/internal/workbook"
)

func applySort(a *applyContext) error {
	if a.ref.Kind != internal.TargetRange {
		return skipf(ReasonTargetMismatch, "sort needs a range target, got %s", a.ref.Kind)
	}
	raw, ok := a.change.Param("column")
	if !ok {
		return skipf(ReasonInvalidParameters, "sort needs parameters.column")
	}
	col, err := internal.ResolveColumn(raw, a.headers)
	if err != nil {
		return skipf(ReasonInvalidParameters, "sort column: %v", err)
	}
	if col < a.ref.Start.Col || col > a.ref.End.Col {
		return skipf(ReasonInvalidParameters, "sort column %s is outside %s", internal.IndexToColumnLetter(col), a.ref)
	}

	descending := false
	if d, ok := a.change.Param("direction"); ok {
		switch strings.ToLower(strings.TrimSpace(text(d))) {
		case "ascending", "asc":
		case "descending", "desc":
			descending = true
		default:
			a.note(ReasonDefaultDirection)
		}
	} else {
		a.note(ReasonDefaultDirection)
	}

	r1, r2 := a.ref.Start.Row, min(a.ref.End.Row, a.ws.RowCount())
	c1, c2 := a.ref.Start.Col, min(a.ref.End.Col, a.ws.ColumnCount())
	if r1 > r2 || c1 > c2 {
		return skipf(ReasonEmptyTarget, "%s covers no cells of %q", a.ref, a.ws.Name)
	}

	type sortRow struct {
		key    workbook.Value
		cells  []workbook.Value
		styles []workbook.Style
	}
	block := make([]sortRow, 0, r2-r1+1)
	for r := r1; r <= r2; r++ {
		sr := sortRow{key: a.ws.Cell(r, col)}
		for c := c1; c <= c2; c++ {
			sr.cells = append(sr.cells, a.ws.Cell(r, c))
			st, _ := a.ws.Style(r, c)
			sr.styles = append(sr.styles, st)
		}
		block = append(block, sr)
	}

	sort.SliceStable(block, func(i, j int) bool {
		return lessCell(block[i].key, block[j].key, descending)
	})

	for i, sr := range block {
		r := r1 + i
		for j := range sr.cells {
			if err := a.ws.SetCell(r, c1+j, sr.cells[j]); err != nil {
				return err
			}
			if err := a.ws.SetStyle(r, c1+j, sr.styles[j]); err != nil {
				return err
			}
		}
	}
	a.cells = len(block) * (c2 - c1 + 1)
	return nil
}

// sortRank orders value classes: numbers, then text, then booleans. Blanks
// are handled separately so they stay last in either direction.
func sortRank(v workbook.Value) int {
	switch sortable(v).Kind {
	case workbook.Number:
		return 0
	case workbook.Bool:
		return 2
	default:
		return 1
	}
}

// sortable resolves a formula to its cached result when one is known.
func sortable(v workbook.Value) workbook.Value {
	if v.Kind == workbook.Formula && v.Cached != "" {
		return workbook.InferValue(v.Cached)
	}
	return v
}

func lessCell(a, b workbook.Value, descending bool) bool {
	aBlank, bBlank := a.IsEmpty(), b.IsEmpty()
	if aBlank || bBlank {
		return !aBlank && bBlank
	}
	cmp := compareCells(a, b)
	if descending {
		return cmp > 0
	}
	return cmp < 0
}

func compareCells(a, b workbook.Value) int {
	ra, rb := sortRank(a), sortRank(b)
	if ra != rb {
		return ra - rb
	}
	a, b = sortable(a), sortable(b)
	switch ra {
	case 0:
		switch {
		case a.Number < b.Number:
			return -1
		case a.Number > b.Number:
			return 1
		}
		return 0
	case 2:
		switch {
		case a.Bool == b.Bool:
			return 0
		case !a.Bool:
			return -1
		}
		return 1
	default:
		return strings.Compare(strings.ToLower(a.String()), strings.ToLower(b.String()))
	}
}
