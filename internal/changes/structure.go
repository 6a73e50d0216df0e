package changes

import (
	"github.com/factor591/aisheets/internal"
	"github.com/factor591/aisheets/internal/workbook"
)

func applyAddColumn(a *applyContext) error {
	if a.ref.Kind == internal.TargetRow {
		return skipf(ReasonTargetMismatch, "add_column needs a column, cell or range target")
	}
	col := a.ref.Start.Col
	if last := a.ws.ColumnCount() + 1; col > last {
		col = last
		a.note(ReasonAppended)
	}
	if err := a.ws.InsertColumnBefore(col); err != nil {
		return err
	}

	var headerName string
	if a.change.HasValue {
		v := a.change.Value
		if sc, ok := unwrapFor(v, ""); ok {
			v = sc
			a.note(ReasonUnwrapped)
		}
		headerName = text(v)
		if err := a.ws.SetCell(1, col, workbook.StringValue(headerName)); err != nil {
			return err
		}
		a.cells++
	}

	if raw, ok := a.change.Param("values"); ok {
		values, isList := raw.([]any)
		if !isList {
			return skipf(ReasonInvalidParameters, "values must be a list")
		}
		for i, v := range values {
			if sc, ok := unwrapFor(v, headerName); ok {
				v = sc
				a.note(ReasonUnwrapped)
			}
			if err := a.ws.SetCell(i+2, col, cellValue(v, internal.Coord{})); err != nil {
				return err
			}
			a.cells++
		}
		return nil
	}

	if raw, ok := a.change.Param("formula"); ok {
		expr, isString := raw.(string)
		if !isString || expr == "" {
			return skipf(ReasonInvalidParameters, "formula must be a non-empty string")
		}
		for r := 2; r <= a.ws.RowCount(); r++ {
			if err := a.ws.SetCell(r, col, workbook.FormulaValue(withRow(expr, r))); err != nil {
				return err
			}
			a.cells++
		}
	}
	return nil
}

func applyAddRow(a *applyContext) error {
	if a.ref.Kind == internal.TargetColumn {
		return skipf(ReasonTargetMismatch, "add_row needs a row, cell or range target")
	}
	row := a.ref.Start.Row
	if row <= 1 {
		return skipf(ReasonOutOfBounds, "cannot insert above the header row")
	}
	if last := a.ws.RowCount() + 1; row > last {
		row = last
		a.note(ReasonAppended)
	}
	if err := a.ws.InsertRowBefore(row); err != nil {
		return err
	}

	set := func(col int, v any) error {
		if err := a.ws.SetCell(row, col, cellValue(v, internal.Coord{})); err != nil {
			return err
		}
		a.cells++
		return nil
	}

	if raw, ok := a.change.Param("values_by_column"); ok {
		byColumn, isObject := raw.(object)
		if !isObject {
			return skipf(ReasonInvalidParameters, "values_by_column must be an object")
		}
		matched := 0
		for _, f := range byColumn {
			col, err := internal.ResolveColumn(f.Key, a.headers)
			if err != nil {
				continue
			}
			v := f.Value
			if sc, ok := unwrapFor(v, f.Key); ok {
				v = sc
				a.note(ReasonUnwrapped)
			}
			if err := set(col, v); err != nil {
				return err
			}
			matched++
		}
		if matched == 0 && len(byColumn) > 0 {
			return skipf(ReasonInvalidParameters, "no values_by_column key matches a column")
		}
		return nil
	}

	if raw, ok := a.change.Param("values"); ok {
		values, isList := raw.([]any)
		if !isList {
			return skipf(ReasonInvalidParameters, "values must be a list")
		}
		for i, v := range values {
			if sc, ok := unwrapFor(v, header(a.headers, i+1)); ok {
				v = sc
				a.note(ReasonUnwrapped)
			}
			if err := set(i+1, v); err != nil {
				return err
			}
		}
		return nil
	}

	if !a.change.HasValue {
		return nil
	}
	cols := max(a.ws.ColumnCount(), 1)
	cells := make([]internal.Coord, cols)
	for i := range cells {
		cells[i] = internal.Coord{Row: row, Col: i + 1}
	}
	v := a.change.Value
	if s, ok := structured(v); ok {
		if perCell := spread(s, cells, a.headers); perCell != nil {
			a.note(ReasonUnwrapped)
			for _, c := range cells {
				if cv, ok := perCell[c]; ok {
					if err := set(c.Col, cv); err != nil {
						return err
					}
				}
			}
			return nil
		}
		a.note(ReasonRawJSON)
		v = text(v)
	}
	for _, c := range cells {
		if err := set(c.Col, v); err != nil {
			return err
		}
	}
	return nil
}

func applyDeleteRow(a *applyContext) error {
	var first, last int
	switch a.ref.Kind {
	case internal.TargetRow, internal.TargetCell:
		first, last = a.ref.Start.Row, a.ref.Start.Row
	case internal.TargetRange:
		first, last = a.ref.Start.Row, min(a.ref.End.Row, a.ws.RowCount())
	default:
		return skipf(ReasonTargetMismatch, "delete_row needs a row, cell or range target")
	}
	if first > a.ws.RowCount() {
		return skipf(ReasonOutOfBounds, "row %d is past the last row %d", first, a.ws.RowCount())
	}
	for r := last; r >= first; r-- {
		if err := a.ws.RemoveRow(r); err != nil {
			return err
		}
		a.cells++
	}
	return nil
}

func applyDeleteColumn(a *applyContext) error {
	var first, last int
	switch a.ref.Kind {
	case internal.TargetColumn, internal.TargetCell:
		first, last = a.ref.Start.Col, a.ref.Start.Col
	case internal.TargetRange:
		first, last = a.ref.Start.Col, min(a.ref.End.Col, a.ws.ColumnCount())
	default:
		return skipf(ReasonTargetMismatch, "delete_column needs a column, cell or range target")
	}
	if first > a.ws.ColumnCount() {
		return skipf(ReasonOutOfBounds, "column %s is past the last column %s",
			internal.IndexToColumnLetter(first), internal.IndexToColumnLetter(a.ws.ColumnCount()))
	}
	for c := last; c >= first; c-- {
		if err := a.ws.RemoveColumn(c); err != nil {
			return err
		}
		a.cells++
	}
	return nil
}
