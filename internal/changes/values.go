package changes

import (
	"strconv"
	"strings"

	"github.com/factor591/aisheets/internal"
	"github.com/factor591/aisheets/internal/workbook"
)

// rowPlaceholder in a formula is replaced with the row it is written to.
const rowPlaceholder = "{row}"

func applyValue(a *applyContext) error {
	return writeCells(a, cellValue)
}

func applyFormula(a *applyContext) error {
	return writeCells(a, func(v any, c internal.Coord) workbook.Value {
		expr := strings.TrimSpace(text(v))
		if expr == "" {
			return workbook.Value{}
		}
		return workbook.FormulaValue(withRow(expr, c.Row))
	})
}

// writeCells writes the change value to every cell of the target,
// unwrapping structured values first.
func writeCells(a *applyContext, convert func(any, internal.Coord) workbook.Value) error {
	if !a.change.HasValue {
		return skipf(ReasonMissingValue, "%s change has no value", a.change.Kind)
	}
	cells, err := expand(a)
	if err != nil {
		return err
	}

	v := a.change.Value
	perCell := map[internal.Coord]any(nil)
	if s, ok := structured(v); ok {
		perCell = spread(s, cells, a.headers)
		if perCell == nil {
			a.note(ReasonRawJSON)
			v = text(v)
		} else {
			a.note(ReasonUnwrapped)
		}
	}

	for _, c := range cells {
		cv := v
		if perCell != nil {
			var ok bool
			if cv, ok = perCell[c]; !ok {
				continue
			}
		}
		if err := a.ws.SetCell(c.Row, c.Col, convert(cv, c)); err != nil {
			return err
		}
		a.cells++
	}
	return nil
}

// cellValue converts a decoded JSON scalar into a cell value.
func cellValue(v any, _ internal.Coord) workbook.Value {
	switch t := v.(type) {
	case nil:
		return workbook.Value{}
	case string:
		return workbook.ParseInput(t)
	case float64:
		return workbook.NumberValue(t)
	case bool:
		return workbook.BoolValue(t)
	default:
		return workbook.StringValue(text(t))
	}
}

func withRow(expr string, row int) string {
	return strings.ReplaceAll(expr, rowPlaceholder, strconv.Itoa(row))
}
