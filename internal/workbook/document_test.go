package workbook

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func grid(t *testing.T, rows ...[]string) *Worksheet {
	t.Helper()
	ws := NewWorksheet("Sheet1")
	for _, row := range rows {
		values := make([]Value, len(row))
		for i, s := range row {
			values[i] = InferValue(s)
		}
		ws.AppendRow(values)
	}
	return ws
}

func texts(ws *Worksheet) [][]string {
	out := make([][]string, ws.RowCount())
	for r := 1; r <= ws.RowCount(); r++ {
		out[r-1] = make([]string, ws.ColumnCount())
		for c := 1; c <= ws.ColumnCount(); c++ {
			out[r-1][c-1] = ws.Cell(r, c).String()
		}
	}
	return out
}

func TestWorksheet_AppendRowKeepsRectangle(t *testing.T) {
	ws := grid(t, []string{"Name"}, []string{"Ann", "x", "y"})
	assert.Equal(t, 2, ws.RowCount())
	assert.Equal(t, 3, ws.ColumnCount())
	assert.Equal(t, []string{"Name", "", ""}, ws.Headers())
	assert.Len(t, ws.Row(1), 3)
}

func TestWorksheet_SetCellGrows(t *testing.T) {
	ws := grid(t, []string{"A", "B"})
	require.NoError(t, ws.SetCell(3, 4, StringValue("far")))
	assert.Equal(t, 3, ws.RowCount())
	assert.Equal(t, 4, ws.ColumnCount())
	assert.Equal(t, "far", ws.Cell(3, 4).Text)
	assert.True(t, ws.Cell(2, 2).IsEmpty())

	err := ws.SetCell(0, 1, StringValue("x"))
	assert.True(t, errors.Is(err, ErrOutOfBounds))
}

func TestWorksheet_InsertRowBefore(t *testing.T) {
	ws := grid(t, []string{"Name", "Qty"}, []string{"a", "1"}, []string{"b", "2"})
	require.NoError(t, ws.SetStyle(3, 2, Style{Bold: true}))

	require.NoError(t, ws.InsertRowBefore(3))
	assert.Equal(t, 4, ws.RowCount())
	assert.Equal(t, [][]string{{"Name", "Qty"}, {"a", "1"}, {"", ""}, {"b", "2"}}, texts(ws))

	_, ok := ws.Style(3, 2)
	assert.False(t, ok, "style must move with its row")
	s, ok := ws.Style(4, 2)
	require.True(t, ok)
	assert.True(t, s.Bold)

	require.NoError(t, ws.InsertRowBefore(5), "appending at RowCount+1 is allowed")
	assert.Equal(t, 5, ws.RowCount())
	assert.ErrorIs(t, ws.InsertRowBefore(7), ErrOutOfBounds)
	assert.ErrorIs(t, ws.InsertRowBefore(0), ErrOutOfBounds)
}

func TestWorksheet_InsertColumnBefore(t *testing.T) {
	ws := grid(t, []string{"Name", "Qty"}, []string{"a", "1"})
	require.NoError(t, ws.SetStyle(1, 2, Style{Italic: true}))

	require.NoError(t, ws.InsertColumnBefore(2))
	assert.Equal(t, 3, ws.ColumnCount())
	assert.Equal(t, [][]string{{"Name", "", "Qty"}, {"a", "", "1"}}, texts(ws))
	s, ok := ws.Style(1, 3)
	require.True(t, ok)
	assert.True(t, s.Italic)

	assert.ErrorIs(t, ws.InsertColumnBefore(5), ErrOutOfBounds)
}

func TestWorksheet_RemoveRowAndColumn(t *testing.T) {
	ws := grid(t,
		[]string{"Name", "Qty", "Price"},
		[]string{"a", "1", "10"},
		[]string{"b", "2", "20"},
		[]string{"c", "3", "30"},
	)
	require.NoError(t, ws.SetStyle(2, 1, Style{Bold: true}))
	require.NoError(t, ws.SetStyle(4, 3, Style{Italic: true}))

	require.NoError(t, ws.RemoveRow(2))
	assert.Equal(t, 3, ws.RowCount())
	assert.Equal(t, "b", ws.Cell(2, 1).Text)
	_, ok := ws.Style(2, 1)
	assert.False(t, ok, "style of the removed row must go")
	_, ok = ws.Style(3, 3)
	assert.True(t, ok, "style below must move up")

	require.NoError(t, ws.RemoveColumn(2))
	assert.Equal(t, 2, ws.ColumnCount())
	assert.Equal(t, [][]string{{"Name", "Price"}, {"b", "20"}, {"c", "30"}}, texts(ws))
	_, ok = ws.Style(3, 2)
	assert.True(t, ok)

	assert.ErrorIs(t, ws.RemoveRow(4), ErrOutOfBounds)
	assert.ErrorIs(t, ws.RemoveColumn(3), ErrOutOfBounds)
}

func TestDocument_CloneIsDeep(t *testing.T) {
	doc := New(FormatCSV)
	ws, err := doc.AddSheet("Data")
	require.NoError(t, err)
	ws.AppendRow([]Value{StringValue("x")})
	require.NoError(t, ws.SetStyle(1, 1, Style{Bold: true}))

	clone := doc.Clone()
	require.NoError(t, clone.First().SetCell(1, 1, StringValue("y")))
	require.NoError(t, clone.First().SetStyle(1, 1, Style{}))

	assert.Equal(t, "x", doc.First().Cell(1, 1).Text)
	_, ok := doc.First().Style(1, 1)
	assert.True(t, ok)
}

func TestDocument_AddSheetRejectsDuplicates(t *testing.T) {
	doc := New(FormatXLSX)
	_, err := doc.AddSheet("Sheet1")
	require.NoError(t, err)
	_, err = doc.AddSheet("Sheet1")
	assert.ErrorIs(t, err, ErrDuplicateSheet)
	assert.Equal(t, []string{"Sheet1"}, doc.Names())
}

func TestInferValue(t *testing.T) {
	tests := []struct {
		in   string
		kind Kind
	}{
		{"", Empty},
		{"42", Number},
		{"-3.5", Number},
		{"00123", String},
		{"1e5", String},
		{"NaN", String},
		{"TRUE", String},
		{"Ann", String},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.kind, InferValue(tt.in).Kind)
		})
	}

	f := ParseInput("=SUM(B2:B4)")
	assert.Equal(t, Formula, f.Kind)
	assert.Equal(t, "SUM(B2:B4)", f.Formula)
	assert.Equal(t, "=SUM(B2:B4)", f.String())
	assert.Equal(t, String, ParseInput("=").Kind)
}
