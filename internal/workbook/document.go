// Package workbook holds the in-memory spreadsheet model and its xlsx, xls
// and csv readers and writers.
//
// A worksheet is a flat grid of values addressed by 1-indexed (row, col),
// row 1 being the header row. Formatting lives in a sparse map keyed by the
// same coordinates and moves with the cells on structural edits.
package workbook

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/factor591/aisheets/internal"
)

var (
	// ErrOutOfBounds is returned when a row or column index is outside the
	// range a mutation accepts.
	ErrOutOfBounds = errors.New("index out of bounds")
	// ErrDuplicateSheet is returned when a worksheet name is already taken.
	ErrDuplicateSheet = errors.New("duplicate worksheet name")
)

// Document is an ordered list of uniquely named worksheets.
type Document struct {
	Format Format
	Sheets []*Worksheet
}

// New returns an empty document.
func New(format Format) *Document {
	return &Document{Format: format}
}

// AddSheet appends an empty worksheet.
func (d *Document) AddSheet(name string) (*Worksheet, error) {
	if _, ok := d.Sheet(name); ok {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateSheet, name)
	}
	ws := NewWorksheet(name)
	d.Sheets = append(d.Sheets, ws)
	return ws, nil
}

// Sheet looks up a worksheet by exact name.
func (d *Document) Sheet(name string) (*Worksheet, bool) {
	for _, ws := range d.Sheets {
		if ws.Name == name {
			return ws, true
		}
	}
	return nil, false
}

// First returns the first worksheet, or nil for an empty document.
func (d *Document) First() *Worksheet {
	if len(d.Sheets) == 0 {
		return nil
	}
	return d.Sheets[0]
}

// Names returns the worksheet names in document order.
func (d *Document) Names() []string {
	names := make([]string, len(d.Sheets))
	for i, ws := range d.Sheets {
		names[i] = ws.Name
	}
	return names
}

// Clone returns a deep copy.
func (d *Document) Clone() *Document {
	out := &Document{Format: d.Format, Sheets: make([]*Worksheet, len(d.Sheets))}
	for i, ws := range d.Sheets {
		out.Sheets[i] = ws.Clone()
	}
	return out
}

// Worksheet is a rectangular grid. Every row holds exactly ColumnCount values.
type Worksheet struct {
	Name string

	rows     [][]Value
	colCount int
	styles   map[internal.Coord]Style
}

func NewWorksheet(name string) *Worksheet {
	return &Worksheet{Name: name, styles: make(map[internal.Coord]Style)}
}

func (ws *Worksheet) RowCount() int    { return len(ws.rows) }
func (ws *Worksheet) ColumnCount() int { return ws.colCount }

// Clone returns a deep copy.
func (ws *Worksheet) Clone() *Worksheet {
	out := &Worksheet{
		Name:     ws.Name,
		rows:     make([][]Value, len(ws.rows)),
		colCount: ws.colCount,
		styles:   maps.Clone(ws.styles),
	}
	for i, row := range ws.rows {
		out.rows[i] = slices.Clone(row)
	}
	return out
}

// Headers returns the display text of row 1.
func (ws *Worksheet) Headers() []string {
	headers := make([]string, ws.colCount)
	if len(ws.rows) == 0 {
		return headers
	}
	for i, v := range ws.rows[0] {
		headers[i] = v.String()
	}
	return headers
}

// Row returns a copy of one row, or nil when row is outside the sheet.
func (ws *Worksheet) Row(row int) []Value {
	if row < 1 || row > len(ws.rows) {
		return nil
	}
	return slices.Clone(ws.rows[row-1])
}

// Cell returns the value at (row, col); cells outside the sheet are empty.
func (ws *Worksheet) Cell(row, col int) Value {
	if row < 1 || col < 1 || row > len(ws.rows) || col > ws.colCount {
		return Value{}
	}
	return ws.rows[row-1][col-1]
}

// SetCell writes a value, growing the sheet when (row, col) is past its end.
func (ws *Worksheet) SetCell(row, col int, v Value) error {
	if row < 1 || col < 1 || row > internal.MaxRows || col > internal.MaxColumns {
		return fmt.Errorf("%w: cell %s", ErrOutOfBounds, internal.FormatCell(internal.Coord{Row: row, Col: col}))
	}
	ws.grow(row, col)
	ws.rows[row-1][col-1] = v
	return nil
}

// AppendRow adds a row at the bottom, widening the sheet if needed.
func (ws *Worksheet) AppendRow(values []Value) {
	row := len(ws.rows) + 1
	ws.grow(row, len(values))
	copy(ws.rows[row-1], values)
}

func (ws *Worksheet) grow(row, col int) {
	if col > ws.colCount {
		for i := range ws.rows {
			ws.rows[i] = append(ws.rows[i], make([]Value, col-ws.colCount)...)
		}
		ws.colCount = col
	}
	for len(ws.rows) < row {
		ws.rows = append(ws.rows, make([]Value, ws.colCount))
	}
}

// Style returns the formatting of a cell.
func (ws *Worksheet) Style(row, col int) (Style, bool) {
	s, ok := ws.styles[internal.Coord{Row: row, Col: col}]
	return s, ok
}

// SetStyle replaces the formatting of a cell. A zero style clears it.
func (ws *Worksheet) SetStyle(row, col int, s Style) error {
	if row < 1 || col < 1 || row > internal.MaxRows || col > internal.MaxColumns {
		return fmt.Errorf("%w: cell %s", ErrOutOfBounds, internal.FormatCell(internal.Coord{Row: row, Col: col}))
	}
	c := internal.Coord{Row: row, Col: col}
	if ws.styles == nil {
		ws.styles = make(map[internal.Coord]Style)
	}
	if s.IsZero() {
		delete(ws.styles, c)
		return nil
	}
	ws.styles[c] = s
	return nil
}

// StyledCells returns the number of cells carrying formatting.
func (ws *Worksheet) StyledCells() int {
	return len(ws.styles)
}

// InsertRowBefore inserts an empty row so that it becomes row. Valid
// positions are 1 through RowCount()+1.
func (ws *Worksheet) InsertRowBefore(row int) error {
	if row < 1 || row > len(ws.rows)+1 || len(ws.rows) >= internal.MaxRows {
		return fmt.Errorf("%w: insert row %d into %d rows", ErrOutOfBounds, row, len(ws.rows))
	}
	ws.rows = slices.Insert(ws.rows, row-1, make([]Value, ws.colCount))
	ws.shiftStyles(func(c internal.Coord) (internal.Coord, bool) {
		if c.Row >= row {
			c.Row++
		}
		return c, true
	})
	return nil
}

// InsertColumnBefore inserts an empty column so that it becomes col. Valid
// positions are 1 through ColumnCount()+1.
func (ws *Worksheet) InsertColumnBefore(col int) error {
	if col < 1 || col > ws.colCount+1 || ws.colCount >= internal.MaxColumns {
		return fmt.Errorf("%w: insert column %d into %d columns", ErrOutOfBounds, col, ws.colCount)
	}
	for i := range ws.rows {
		ws.rows[i] = slices.Insert(ws.rows[i], col-1, Value{})
	}
	ws.colCount++
	ws.shiftStyles(func(c internal.Coord) (internal.Coord, bool) {
		if c.Col >= col {
			c.Col++
		}
		return c, true
	})
	return nil
}

// RemoveRow deletes a row and moves the rows below it up.
func (ws *Worksheet) RemoveRow(row int) error {
	if row < 1 || row > len(ws.rows) {
		return fmt.Errorf("%w: remove row %d of %d", ErrOutOfBounds, row, len(ws.rows))
	}
	ws.rows = slices.Delete(ws.rows, row-1, row)
	ws.shiftStyles(func(c internal.Coord) (internal.Coord, bool) {
		switch {
		case c.Row == row:
			return c, false
		case c.Row > row:
			c.Row--
		}
		return c, true
	})
	return nil
}

// RemoveColumn deletes a column and moves the columns to its right left.
func (ws *Worksheet) RemoveColumn(col int) error {
	if col < 1 || col > ws.colCount {
		return fmt.Errorf("%w: remove column %d of %d", ErrOutOfBounds, col, ws.colCount)
	}
	for i := range ws.rows {
		ws.rows[i] = slices.Delete(ws.rows[i], col-1, col)
	}
	ws.colCount--
	ws.shiftStyles(func(c internal.Coord) (internal.Coord, bool) {
		switch {
		case c.Col == col:
			return c, false
		case c.Col > col:
			c.Col--
		}
		return c, true
	})
	return nil
}

// TrimTrailingEmptyRows drops blank rows at the bottom of the sheet.
func (ws *Worksheet) TrimTrailingEmptyRows() {
	for n := len(ws.rows); n > 0; n-- {
		for _, v := range ws.rows[n-1] {
			if !v.IsEmpty() {
				ws.rows = ws.rows[:n]
				return
			}
		}
	}
	ws.rows = ws.rows[:0]
}

func (ws *Worksheet) shiftStyles(move func(internal.Coord) (internal.Coord, bool)) {
	if len(ws.styles) == 0 {
		return
	}
	shifted := make(map[internal.Coord]Style, len(ws.styles))
	for c, s := range ws.styles {
		if nc, keep := move(c); keep {
			shifted[nc] = s
		}
	}
	ws.styles = shifted
}
