package internal

import (
	"errors"
	"testing"
)

func TestParseRange(t *testing.T) {
	tests := []struct {
		input                              string
		startRow, startCol, endRow, endCol int
		wantErr                            bool
	}{
		{"A1:Z50", 1, 1, 50, 26, false},
		{"A1:B2", 1, 1, 2, 2, false},
		{"A1", 1, 1, 1, 1, false},
		{"Sheet1!C3:D4", 3, 3, 4, 4, false},
		{"$A$1:$B$2", 1, 1, 2, 2, false},
		{"a2:b4", 2, 1, 4, 2, false},
		// reversed range should normalize
		{"B2:A1", 1, 1, 2, 2, false},
		{"C10:A1", 1, 1, 10, 3, false},
		{"A0:B2", 0, 0, 0, 0, true},
		{"A1:", 0, 0, 0, 0, true},
		{"1A:B2", 0, 0, 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			ref, err := ParseRange(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.input)
				}
				if !errors.Is(err, ErrInvalidReference) {
					t.Fatalf("expected ErrInvalidReference, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error for %q: %v", tt.input, err)
			}
			if ref.Kind != TargetRange {
				t.Fatalf("expected range kind, got %s", ref.Kind)
			}
			if ref.Start.Row != tt.startRow || ref.Start.Col != tt.startCol || ref.End.Row != tt.endRow || ref.End.Col != tt.endCol {
				t.Errorf("ParseRange(%q) = (%d, %d, %d, %d), want (%d, %d, %d, %d)",
					tt.input, ref.Start.Row, ref.Start.Col, ref.End.Row, ref.End.Col,
					tt.startRow, tt.startCol, tt.endRow, tt.endCol)
			}
		})
	}
}

func TestIndexToColumnLetter(t *testing.T) {
	tests := []struct {
		col  int
		want string
	}{
		{0, ""},
		{1, "A"},
		{26, "Z"},
		{27, "AA"},
		{52, "AZ"},
		{702, "ZZ"},
		{703, "AAA"},
		{16384, "XFD"},
	}
	for _, tt := range tests {
		if got := IndexToColumnLetter(tt.col); got != tt.want {
			t.Errorf("IndexToColumnLetter(%d) = %q, want %q", tt.col, got, tt.want)
		}
	}
}

func TestColumnLetterRoundTrip(t *testing.T) {
	for n := 1; n <= 702; n++ {
		got, err := ColumnLetterToIndex(IndexToColumnLetter(n))
		if err != nil {
			t.Fatalf("ColumnLetterToIndex(%q): %v", IndexToColumnLetter(n), err)
		}
		if got != n {
			t.Fatalf("round trip of %d gave %d", n, got)
		}
	}
}

func TestColumnLetterToIndex_Invalid(t *testing.T) {
	for _, in := range []string{"", "  ", "A1", "-", "É", "XFE"} {
		if _, err := ColumnLetterToIndex(in); !errors.Is(err, ErrInvalidReference) {
			t.Errorf("ColumnLetterToIndex(%q) error = %v, want ErrInvalidReference", in, err)
		}
	}
	if got, err := ColumnLetterToIndex("ab"); err != nil || got != 28 {
		t.Errorf("ColumnLetterToIndex(\"ab\") = %d, %v; want 28", got, err)
	}
}

func TestParseCellRoundTrip(t *testing.T) {
	for _, in := range []string{"A1", "B7", "Z26", "AA100", "ZZ9999", "XFD1048576"} {
		c, err := ParseCell(in)
		if err != nil {
			t.Fatalf("ParseCell(%q): %v", in, err)
		}
		if got := FormatCell(c); got != in {
			t.Errorf("round trip of %q gave %q", in, got)
		}
	}
}

func TestParseReference(t *testing.T) {
	headers := []string{"Name", "Revenue", "", "Region"}
	tests := []struct {
		name       string
		targetType string
		ref        any
		want       Reference
		wantErr    error
	}{
		{"cell", "cell", "B3", CellReference(Coord{Row: 3, Col: 2}), nil},
		{"cell type is case-insensitive", "Cell", "b3", CellReference(Coord{Row: 3, Col: 2}), nil},
		{"range", "range", "C4:A2", RangeReference(Coord{Row: 2, Col: 1}, Coord{Row: 4, Col: 3}), nil},
		{"column letter", "column", "C", ColumnReference(3), nil},
		{"column number", "column", float64(4), ColumnReference(4), nil},
		{"column numeric string", "column", "2", ColumnReference(2), nil},
		{"column header", "column", "Revenue", ColumnReference(2), nil},
		{"column header folded", "column", "region", ColumnReference(4), nil},
		{"column whole range", "column", "D:D", ColumnReference(4), nil},
		{"row number", "row", float64(5), RowReference(5), nil},
		{"row string", "row", "12", RowReference(12), nil},
		{"cell not a string", "cell", float64(3), Reference{}, ErrInvalidReference},
		{"bad cell", "cell", "hello", Reference{}, ErrInvalidReference},
		{"row zero", "row", "0", Reference{}, ErrInvalidReference},
		{"row fraction", "row", 2.5, Reference{}, ErrInvalidReference},
		{"unknown column", "column", "Profit Margin", Reference{}, ErrInvalidReference},
		{"unknown target type", "sheet", "A1", Reference{}, ErrUnsupportedTarget},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseReference(tt.targetType, tt.ref, headers)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseReference = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestResolveColumn_ExactHeaderBeatsLetters(t *testing.T) {
	headers := []string{"ID", "A", "Notes"}
	col, err := ResolveColumn("A", headers)
	if err != nil {
		t.Fatal(err)
	}
	if col != 2 {
		t.Errorf("expected exact header match at column 2, got %d", col)
	}

	headers = []string{"Item", "Qty", "Price", "Tax"}
	tests := []struct {
		in   string
		want int
	}{
		{"qty", 2},     // lowercase header, not column QTY
		{"tax", 4},     // lowercase header, not column TAX
		{"QTY", 12037}, // uppercase letters stay a column address
		{"b", 2},       // lowercase letters inside the header row
		{"e", 5},       // one past the last header
		{"zz", 702},    // no header matches, letters win
	}
	for _, tt := range tests {
		got, err := ResolveColumn(tt.in, headers)
		if err != nil {
			t.Fatalf("ResolveColumn(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ResolveColumn(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

type extent struct{ rows, cols int }

func (e extent) RowCount() int    { return e.rows }
func (e extent) ColumnCount() int { return e.cols }

func TestExpandToCells(t *testing.T) {
	ws := extent{rows: 4, cols: 3}
	tests := []struct {
		name string
		ref  Reference
		want []Coord
	}{
		{"cell", CellReference(Coord{Row: 2, Col: 2}), []Coord{{2, 2}}},
		{"cell one row past end is kept", CellReference(Coord{Row: 5, Col: 1}), []Coord{{5, 1}}},
		{"cell one column past end is kept", CellReference(Coord{Row: 1, Col: 4}), []Coord{{1, 4}}},
		{"cell two rows past end", CellReference(Coord{Row: 6, Col: 1}), nil},
		{"cell two columns past end", CellReference(Coord{Row: 1, Col: 5}), nil},
		{"cell at grid limit", CellReference(Coord{Row: MaxRows, Col: MaxColumns}), nil},
		{"range clipped", RangeReference(Coord{Row: 3, Col: 2}, Coord{Row: 10, Col: 10}), []Coord{{3, 2}, {3, 3}, {4, 2}, {4, 3}}},
		{"range outside", RangeReference(Coord{Row: 8, Col: 1}, Coord{Row: 9, Col: 1}), nil},
		{"column", ColumnReference(2), []Coord{{1, 2}, {2, 2}, {3, 2}, {4, 2}}},
		{"column outside", ColumnReference(5), nil},
		{"row", RowReference(4), []Coord{{4, 1}, {4, 2}, {4, 3}}},
		{"row outside", RowReference(6), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExpandToCells(ws, tt.ref)
			if len(got) != len(tt.want) {
				t.Fatalf("ExpandToCells = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("ExpandToCells = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestReferenceString(t *testing.T) {
	tests := []struct {
		ref  Reference
		want string
	}{
		{CellReference(Coord{Row: 7, Col: 2}), "B7"},
		{RangeReference(Coord{Row: 1, Col: 1}, Coord{Row: 3, Col: 3}), "A1:C3"},
		{ColumnReference(28), "AB"},
		{RowReference(5), "5"},
	}
	for _, tt := range tests {
		if got := tt.ref.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestFormatAddress(t *testing.T) {
	got := FormatAddress("Sheet1", RangeReference(Coord{Row: 1, Col: 1}, Coord{Row: 50, Col: 26}))
	want := "Sheet1!A1:Z50"
	if got != want {
		t.Errorf("FormatAddress = %q, want %q", got, want)
	}

	// Single cell
	got = FormatAddress("Sheet1", CellReference(Coord{Row: 5, Col: 3}))
	want = "Sheet1!C5"
	if got != want {
		t.Errorf("FormatAddress single cell = %q, want %q", got, want)
	}
}
