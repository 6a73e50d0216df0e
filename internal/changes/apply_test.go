package changes

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/factor591/aisheets/internal/workbook"
)

func newDoc(t *testing.T, name string, rows ...[]string) *workbook.Document {
	t.Helper()
	doc := workbook.New(workbook.FormatXLSX)
	ws, err := doc.AddSheet(name)
	require.NoError(t, err)
	for _, row := range rows {
		values := make([]workbook.Value, len(row))
		for i, s := range row {
			values[i] = workbook.InferValue(s)
		}
		ws.AppendRow(values)
	}
	return doc
}

func run(t *testing.T, doc *workbook.Document, changes ...string) *Report {
	t.Helper()
	raws := make([]json.RawMessage, len(changes))
	for i, c := range changes {
		raws[i] = json.RawMessage(c)
	}
	report, err := Apply(doc, raws)
	require.NoError(t, err)
	require.Len(t, report.Outcomes, len(changes))
	return report
}

func contents(ws *workbook.Worksheet) [][]string {
	out := make([][]string, ws.RowCount())
	for r := 1; r <= ws.RowCount(); r++ {
		out[r-1] = make([]string, ws.ColumnCount())
		for c := 1; c <= ws.ColumnCount(); c++ {
			out[r-1][c-1] = ws.Cell(r, c).String()
		}
	}
	return out
}

func TestApply_EmptyBatchIsNoop(t *testing.T) {
	doc := newDoc(t, "Sheet1", []string{"Name"}, []string{"Ann"})
	before := doc.Clone()

	report := run(t, doc)
	assert.Empty(t, report.Outcomes)
	assert.Zero(t, report.Applied())
	assert.False(t, workbook.Diff(before, doc).Changed())
}

func TestApply_NoWorksheets(t *testing.T) {
	_, err := Apply(workbook.New(workbook.FormatCSV), nil)
	assert.ErrorIs(t, err, ErrNoWorksheets)
}

func TestApply_ShapeAndTargetFailures(t *testing.T) {
	doc := newDoc(t, "Sheet1", []string{"Name"}, []string{"Ann"})
	before := doc.Clone()

	report := run(t, doc,
		`{"type":"value","target":{"type":"cell","reference":"A1"},"value":"x"}`,
		`{"worksheet":"Sheet1","type":"value","value":"x"}`,
		`{"worksheet":"Sheet1","type":"value","target":null,"value":"x"}`,
		`"not an object"`,
		`{"worksheet":"Sheet1","type":"value","target":"A1","value":"x"}`,
		`{"worksheet":"Sheet1","type":"value","target":{"type":"cell","reference":"ZZZZ1"},"value":"x"}`,
		`{"worksheet":"Sheet1","type":"value","target":{"type":"sheet","reference":"A1"},"value":"x"}`,
	)
	want := []string{
		"skipped:missing_fields",
		"skipped:missing_fields",
		"skipped:missing_fields",
		"skipped:missing_fields",
		"skipped:bad_target",
		"skipped:bad_target",
		"skipped:unsupported_target",
	}
	for i, w := range want {
		assert.Equal(t, w, report.Outcomes[i].String(), "change %d", i)
	}
	assert.False(t, workbook.Diff(before, doc).Changed())
}

func TestApply_UnknownTypeDoesNotStopBatch(t *testing.T) {
	doc := newDoc(t, "Sheet1", []string{"Name"}, []string{"Ann"})
	report := run(t, doc,
		`{"worksheet":"Sheet1","type":"transpose","target":{"type":"cell","reference":"A1"}}`,
		`{"worksheet":"Sheet1","type":"value","target":{"type":"cell","reference":"A2"},"value":"Bob"}`,
	)
	assert.Equal(t, "skipped:unsupported_type", report.Outcomes[0].String())
	assert.Equal(t, "applied", report.Outcomes[1].String())
	assert.Equal(t, "Bob", doc.First().Cell(2, 1).String())
	assert.Equal(t, 1, report.Applied())
	assert.Equal(t, 1, report.Skipped())
}

func TestApply_WorksheetFallback(t *testing.T) {
	doc := newDoc(t, "Sheet1", []string{"Name"}, []string{"Ann"})
	report := run(t, doc,
		`{"worksheet":"Sheet2","type":"value","target":{"type":"cell","reference":"A2"},"value":"Bob"}`,
	)
	out := report.Outcomes[0]
	assert.True(t, out.WorksheetFallback)
	assert.Equal(t, "Sheet1", out.Worksheet)
	assert.Equal(t, "Sheet2", out.RequestedWorksheet)
	assert.Equal(t, "defaulted:worksheet_fallback", out.String())
	assert.Equal(t, "Bob", doc.First().Cell(2, 1).String())
}

func TestApply_LaterChangesSeeEarlierOnes(t *testing.T) {
	doc := newDoc(t, "Sheet1", []string{"Name", "Qty"}, []string{"Ann", "1"})
	run(t, doc,
		`{"worksheet":"Sheet1","type":"add_column","target":{"type":"column","reference":"B"},"value":"Email"}`,
		`{"worksheet":"Sheet1","type":"value","target":{"type":"column","reference":"Email"},"value":"n/a"}`,
	)
	assert.Equal(t, [][]string{
		{"Name", "n/a", "Qty"},
		{"Ann", "n/a", "1"},
	}, contents(doc.First()))
}

func TestApply_Value(t *testing.T) {
	t.Run("broadcast over range", func(t *testing.T) {
		doc := newDoc(t, "Sheet1", []string{"A", "B"}, []string{"1", "2"}, []string{"3", "4"})
		report := run(t, doc, `{"worksheet":"Sheet1","type":"value","target":{"type":"range","reference":"A2:B3"},"value":0}`)
		assert.Equal(t, "applied", report.Outcomes[0].String())
		assert.Equal(t, 4, report.Outcomes[0].Cells)
		assert.Equal(t, [][]string{{"A", "B"}, {"0", "0"}, {"0", "0"}}, contents(doc.First()))
	})

	t.Run("range is clipped to the sheet", func(t *testing.T) {
		doc := newDoc(t, "Sheet1", []string{"A", "B"}, []string{"1", "2"})
		run(t, doc, `{"worksheet":"Sheet1","type":"value","target":{"type":"range","reference":"A2:Z99"},"value":"x"}`)
		assert.Equal(t, 2, doc.First().RowCount())
		assert.Equal(t, 2, doc.First().ColumnCount())
	})

	t.Run("cell one past the end grows the sheet", func(t *testing.T) {
		doc := newDoc(t, "Sheet1", []string{"A"}, []string{"1"})
		run(t, doc,
			`{"worksheet":"Sheet1","type":"value","target":{"type":"cell","reference":"A3"},"value":"Total"}`,
			`{"worksheet":"Sheet1","type":"value","target":{"type":"cell","reference":"B1"},"value":"Note"}`,
		)
		assert.Equal(t, 3, doc.First().RowCount())
		assert.Equal(t, 2, doc.First().ColumnCount())
		assert.Equal(t, "Total", doc.First().Cell(3, 1).String())
		assert.Equal(t, "Note", doc.First().Cell(1, 2).String())
	})

	t.Run("cell far past the end is out of bounds", func(t *testing.T) {
		doc := newDoc(t, "Sheet1", []string{"A", "B"}, []string{"1", "2"}, []string{"3", "4"})
		before := doc.Clone()
		report := run(t, doc,
			`{"worksheet":"Sheet1","type":"value","target":{"type":"cell","reference":"CV200000"},"value":"x"}`,
			`{"worksheet":"Sheet1","type":"value","target":{"type":"cell","reference":"XFD1048576"},"value":"x"}`,
			`{"worksheet":"Sheet1","type":"value","target":{"type":"cell","reference":"A5"},"value":"x"}`,
			`{"worksheet":"Sheet1","type":"formula","target":{"type":"cell","reference":"D1"},"value":"=1"}`,
			`{"worksheet":"Sheet1","type":"format","target":{"type":"cell","reference":"A9"},"value":"percentage"}`,
		)
		for i, o := range report.Outcomes {
			assert.Equal(t, "skipped:out_of_bounds", o.String(), "change %d", i)
		}
		assert.Equal(t, 3, doc.First().RowCount())
		assert.Equal(t, 2, doc.First().ColumnCount())
		assert.False(t, workbook.Diff(before, doc).Changed())
	})

	t.Run("typed inputs", func(t *testing.T) {
		doc := newDoc(t, "Sheet1", []string{"A", "B", "C", "D"}, []string{"x", "x", "x", "x"})
		run(t, doc,
			`{"worksheet":"Sheet1","type":"value","target":{"type":"cell","reference":"A2"},"value":"=SUM(B2:C2)"}`,
			`{"worksheet":"Sheet1","type":"value","target":{"type":"cell","reference":"B2"},"value":"42"}`,
			`{"worksheet":"Sheet1","type":"value","target":{"type":"cell","reference":"C2"},"value":true}`,
			`{"worksheet":"Sheet1","type":"value","target":{"type":"cell","reference":"D2"},"value":"00123"}`,
		)
		ws := doc.First()
		assert.Equal(t, workbook.Formula, ws.Cell(2, 1).Kind)
		assert.Equal(t, "SUM(B2:C2)", ws.Cell(2, 1).Formula)
		assert.Equal(t, workbook.Number, ws.Cell(2, 2).Kind)
		assert.Equal(t, workbook.Bool, ws.Cell(2, 3).Kind)
		assert.Equal(t, workbook.String, ws.Cell(2, 4).Kind)
	})

	t.Run("missing value", func(t *testing.T) {
		doc := newDoc(t, "Sheet1", []string{"A"}, []string{"1"})
		report := run(t, doc, `{"worksheet":"Sheet1","type":"value","target":{"type":"cell","reference":"A2"},"value":null}`)
		assert.Equal(t, "skipped:missing_value", report.Outcomes[0].String())
		assert.Equal(t, "1", doc.First().Cell(2, 1).String())
	})

	t.Run("row past the end is empty", func(t *testing.T) {
		doc := newDoc(t, "Sheet1", []string{"A"}, []string{"1"})
		report := run(t, doc, `{"worksheet":"Sheet1","type":"value","target":{"type":"row","reference":9},"value":"x"}`)
		assert.Equal(t, "skipped:empty_target", report.Outcomes[0].String())
	})
}

func TestApply_Formula(t *testing.T) {
	doc := newDoc(t, "Sheet1", []string{"Qty", "Double"}, []string{"1", ""}, []string{"2", ""})
	report := run(t, doc,
		`{"worksheet":"Sheet1","type":"formula","target":{"type":"range","reference":"B2:B3"},"value":"A{row}*2"}`,
		`{"worksheet":"Sheet1","type":"formula","target":{"type":"cell","reference":"A4"},"value":"=SUM(A2:A3)"}`,
	)
	assert.Equal(t, "applied", report.Outcomes[0].String())
	ws := doc.First()
	assert.Equal(t, "=A2*2", ws.Cell(2, 2).String())
	assert.Equal(t, "=A3*2", ws.Cell(3, 2).String())
	assert.Equal(t, "=SUM(A2:A3)", ws.Cell(4, 1).String())
}

func TestApply_Format(t *testing.T) {
	doc := newDoc(t, "Sheet1", []string{"Item", "Price"}, []string{"a", "1.5"}, []string{"b", "2"})
	report := run(t, doc,
		`{"worksheet":"Sheet1","type":"format","target":{"type":"range","reference":"B2:B3"},"value":"currency"}`,
		`{"worksheet":"Sheet1","type":"format","target":{"type":"row","reference":1},"value":"text_format","parameters":{"bold":true,"color":"red"}}`,
		`{"worksheet":"Sheet1","type":"format","target":{"type":"cell","reference":"A2"},"value":"sparkle"}`,
		`{"worksheet":"Sheet1","type":"format","target":{"type":"cell","reference":"A3"},"parameters":{"format_type":"number","decimals":0}}`,
		`{"worksheet":"Sheet1","type":"format","target":{"type":"cell","reference":"A3"},"value":"number","parameters":{"decimals":-1}}`,
	)
	assert.Equal(t, []string{"applied", "applied", "defaulted:unknown_format", "applied", "skipped:invalid_parameters"},
		[]string{report.Outcomes[0].String(), report.Outcomes[1].String(), report.Outcomes[2].String(),
			report.Outcomes[3].String(), report.Outcomes[4].String()})

	ws := doc.First()
	st, ok := ws.Style(2, 2)
	require.True(t, ok)
	assert.Equal(t, "$#,##0.00", st.NumberFormat)

	st, ok = ws.Style(1, 1)
	require.True(t, ok)
	assert.True(t, st.Bold)
	assert.Equal(t, "FF0000", st.FontColor)

	_, ok = ws.Style(2, 1)
	assert.False(t, ok)

	st, _ = ws.Style(3, 1)
	assert.Equal(t, "0", st.NumberFormat)
}

func TestApply_SortIsStable(t *testing.T) {
	doc := newDoc(t, "Sheet1", []string{"K", "V"}, []string{"2", "b"}, []string{"1", "a"}, []string{"2", "a"})
	report := run(t, doc,
		`{"worksheet":"Sheet1","type":"sort","target":{"type":"range","reference":"A2:B4"},"parameters":{"column":"A","direction":"ascending"}}`,
	)
	assert.Equal(t, "applied", report.Outcomes[0].String())
	assert.Equal(t, [][]string{{"K", "V"}, {"1", "a"}, {"2", "b"}, {"2", "a"}}, contents(doc.First()))
}

func TestApply_Sort(t *testing.T) {
	t.Run("blanks last in both directions", func(t *testing.T) {
		for _, dir := range []string{"ascending", "descending"} {
			doc := newDoc(t, "Sheet1", []string{"N"}, []string{"3"}, []string{""}, []string{"1"})
			run(t, doc, `{"worksheet":"Sheet1","type":"sort","target":{"type":"range","reference":"A2:A4"},"parameters":{"column":1,"direction":"`+dir+`"}}`)
			got := contents(doc.First())
			assert.Equal(t, "", got[3][0], dir)
		}
	})

	t.Run("styles move with rows", func(t *testing.T) {
		doc := newDoc(t, "Sheet1", []string{"N"}, []string{"2"}, []string{"1"})
		require.NoError(t, doc.First().SetStyle(2, 1, workbook.Style{Bold: true}))
		report := run(t, doc, `{"worksheet":"Sheet1","type":"sort","target":{"type":"range","reference":"A2:A3"},"parameters":{"column":"N"}}`)
		assert.Equal(t, "defaulted:direction", report.Outcomes[0].String())
		st, _ := doc.First().Style(3, 1)
		assert.True(t, st.Bold)
		_, ok := doc.First().Style(2, 1)
		assert.False(t, ok)
	})

	t.Run("rejections", func(t *testing.T) {
		doc := newDoc(t, "Sheet1", []string{"A", "B", "C"}, []string{"1", "2", "3"})
		report := run(t, doc,
			`{"worksheet":"Sheet1","type":"sort","target":{"type":"column","reference":"A"},"parameters":{"column":"A"}}`,
			`{"worksheet":"Sheet1","type":"sort","target":{"type":"range","reference":"A2:B2"},"parameters":{"column":"C"}}`,
			`{"worksheet":"Sheet1","type":"sort","target":{"type":"range","reference":"A2:B2"}}`,
		)
		assert.Equal(t, "skipped:target_mismatch", report.Outcomes[0].String())
		assert.Equal(t, "skipped:invalid_parameters", report.Outcomes[1].String())
		assert.Equal(t, "skipped:invalid_parameters", report.Outcomes[2].String())
	})
}

func TestApply_AddRowValuesByColumn(t *testing.T) {
	doc := newDoc(t, "Sheet1", []string{"Name", "Email", "Phone"}, []string{"Bob", "bob@x.com", "555"})
	report := run(t, doc,
		`{"worksheet":"Sheet1","type":"add_row","target":{"type":"row","reference":3},"parameters":{"values_by_column":{"Name":"Ann","Email":"ann@x.com"}}}`,
	)
	assert.Equal(t, "applied", report.Outcomes[0].String())
	assert.Equal(t, []string{"Ann", "ann@x.com", ""}, contents(doc.First())[2])
}

func TestApply_AddRow(t *testing.T) {
	t.Run("inserts and shifts down", func(t *testing.T) {
		doc := newDoc(t, "Sheet1", []string{"Name", "Qty"}, []string{"a", "1"}, []string{"b", "2"})
		run(t, doc, `{"worksheet":"Sheet1","type":"add_row","target":{"type":"row","reference":"2"},"parameters":{"values":["new",9]}}`)
		assert.Equal(t, [][]string{{"Name", "Qty"}, {"new", "9"}, {"a", "1"}, {"b", "2"}}, contents(doc.First()))
	})

	t.Run("far row appends", func(t *testing.T) {
		doc := newDoc(t, "Sheet1", []string{"Name", "Qty"}, []string{"a", "1"})
		report := run(t, doc, `{"worksheet":"Sheet1","type":"add_row","target":{"type":"row","reference":50},"value":"-"}`)
		assert.Equal(t, "defaulted:appended", report.Outcomes[0].String())
		assert.Equal(t, []string{"-", "-"}, contents(doc.First())[2])
	})

	t.Run("header row is protected", func(t *testing.T) {
		doc := newDoc(t, "Sheet1", []string{"Name"})
		report := run(t, doc, `{"worksheet":"Sheet1","type":"add_row","target":{"type":"row","reference":1}}`)
		assert.Equal(t, "skipped:out_of_bounds", report.Outcomes[0].String())
	})

	t.Run("failed change leaves the sheet as it was", func(t *testing.T) {
		doc := newDoc(t, "Sheet1", []string{"Name"}, []string{"a"})
		report := run(t, doc, `{"worksheet":"Sheet1","type":"add_row","target":{"type":"row","reference":2},"parameters":{"values_by_column":{"Nope!":"x"}}}`)
		assert.Equal(t, "skipped:invalid_parameters", report.Outcomes[0].String())
		assert.Equal(t, [][]string{{"Name"}, {"a"}}, contents(doc.First()))
	})

	t.Run("structured value is matched to headers", func(t *testing.T) {
		doc := newDoc(t, "Sheet1", []string{"Name", "Email", "Phone"})
		report := run(t, doc, `{"worksheet":"Sheet1","type":"add_row","target":{"type":"row","reference":2},"value":"{\"Phone\":\"555-1234\",\"Name\":\"Cy\"}"}`)
		assert.Equal(t, "defaulted:unwrapped", report.Outcomes[0].String())
		assert.Equal(t, []string{"Cy", "", "555-1234"}, contents(doc.First())[1])
	})
}

func TestApply_AddColumn(t *testing.T) {
	t.Run("header and values", func(t *testing.T) {
		doc := newDoc(t, "Sheet1", []string{"Name", "Qty"}, []string{"a", "1"}, []string{"b", "2"})
		report := run(t, doc, `{"worksheet":"Sheet1","type":"add_column","target":{"type":"column","reference":"B"},"value":"Email","parameters":{"values":["a@x.com",{"Email":"b@x.com","Name":"b"}]}}`)
		assert.Equal(t, "defaulted:unwrapped", report.Outcomes[0].String())
		assert.Equal(t, [][]string{
			{"Name", "Email", "Qty"},
			{"a", "a@x.com", "1"},
			{"b", "b@x.com", "2"},
		}, contents(doc.First()))
	})

	t.Run("far column appends with formula", func(t *testing.T) {
		doc := newDoc(t, "Sheet1", []string{"Name", "Qty"}, []string{"a", "1"}, []string{"b", "2"})
		report := run(t, doc, `{"worksheet":"Sheet1","type":"add_column","target":{"type":"column","reference":"H"},"value":"Double","parameters":{"formula":"=B{row}*2"}}`)
		assert.Equal(t, "defaulted:appended", report.Outcomes[0].String())
		assert.Equal(t, [][]string{
			{"Name", "Qty", "Double"},
			{"a", "1", "=B2*2"},
			{"b", "2", "=B3*2"},
		}, contents(doc.First()))
	})
}

func TestApply_Delete(t *testing.T) {
	rows := [][]string{{"Name", "Email", "Qty"}, {"a", "a@x", "1"}, {"b", "b@x", "2"}, {"c", "c@x", "3"}}

	t.Run("row", func(t *testing.T) {
		doc := newDoc(t, "Sheet1", rows...)
		report := run(t, doc,
			`{"worksheet":"Sheet1","type":"delete_row","target":{"type":"row","reference":2}}`,
			`{"worksheet":"Sheet1","type":"delete_row","target":{"type":"row","reference":99}}`,
		)
		assert.Equal(t, "applied", report.Outcomes[0].String())
		assert.Equal(t, "skipped:out_of_bounds", report.Outcomes[1].String())
		assert.Equal(t, [][]string{{"Name", "Email", "Qty"}, {"b", "b@x", "2"}, {"c", "c@x", "3"}}, contents(doc.First()))
	})

	t.Run("column by header", func(t *testing.T) {
		doc := newDoc(t, "Sheet1", rows...)
		run(t, doc, `{"worksheet":"Sheet1","type":"delete_column","target":{"type":"column","reference":"Email"}}`)
		assert.Equal(t, []string{"Name", "Qty"}, doc.First().Headers())
	})

	t.Run("range deletes every covered row", func(t *testing.T) {
		doc := newDoc(t, "Sheet1", rows...)
		report := run(t, doc, `{"worksheet":"Sheet1","type":"delete_row","target":{"type":"range","reference":"A2:C3"}}`)
		assert.Equal(t, 2, report.Outcomes[0].Cells)
		assert.Equal(t, [][]string{{"Name", "Email", "Qty"}, {"c", "c@x", "3"}}, contents(doc.First()))
	})
}

func TestApplyBatch_CSVSortDescending(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sales.csv")
	require.NoError(t, os.WriteFile(path, []byte("Name,Revenue\nAnn,100\nBob,300\nCy,200\n"), 0o644))

	doc, err := workbook.Load(path)
	require.NoError(t, err)

	batch, err := ParseArguments([]byte(`{"changes":[{"worksheet":"sales","type":"sort","target":{"type":"range","reference":"A2:B4"},"parameters":{"column":"B","direction":"descending"}}],"explanation":"Sorted by revenue."}`))
	require.NoError(t, err)

	report, err := ApplyBatch(doc, batch)
	require.NoError(t, err)
	assert.Equal(t, "Sorted by revenue.", report.Explanation)
	assert.Equal(t, "applied", report.Outcomes[0].String())

	written, err := workbook.Save(doc, path, workbook.FormatCSV)
	require.NoError(t, err)
	data, err := os.ReadFile(written)
	require.NoError(t, err)
	assert.Equal(t, "Name,Revenue\nBob,300\nCy,200\nAnn,100\n", string(data))
}
