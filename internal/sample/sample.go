// Package sample builds the bounded projection of a document that is sent
// to the model: headers plus a head-and-tail slice of the data rows.
package sample

import (
	"encoding/json"

	"github.com/factor591/aisheets/internal/workbook"
)

const (
	DefaultMaxRows      = 15
	DefaultTailRows     = 5
	DefaultMaxCellChars = 256
)

// Options bound the size of a sample. A zero MaxRows selects both default
// row limits.
type Options struct {
	MaxRows      int
	TailRows     int
	MaxCellChars int
}

// DefaultOptions returns 15 rows, 5 of them from the tail.
func DefaultOptions() Options {
	return Options{MaxRows: DefaultMaxRows, TailRows: DefaultTailRows, MaxCellChars: DefaultMaxCellChars}
}

func (o Options) normalized() Options {
	if o.MaxRows <= 0 {
		o.MaxRows, o.TailRows = DefaultMaxRows, DefaultTailRows
	}
	if o.TailRows < 0 {
		o.TailRows = 0
	}
	if o.TailRows > o.MaxRows {
		o.TailRows = o.MaxRows
	}
	if o.MaxCellChars <= 0 {
		o.MaxCellChars = DefaultMaxCellChars
	}
	return o
}

// Sample is a read-only, size-bounded view of a document.
type Sample struct {
	FileType   string      `json:"file_type"`
	Worksheets []Worksheet `json:"worksheets"`
}

// Worksheet is the sampled part of one sheet. TotalRows counts data rows,
// excluding the header.
type Worksheet struct {
	Name         string   `json:"name"`
	Headers      []string `json:"headers"`
	Rows         []Row    `json:"rows"`
	TotalRows    int      `json:"total_rows"`
	TotalColumns int      `json:"total_columns"`
	IsSample     bool     `json:"is_sample"`
}

// Row carries its sheet row number so the model can address it.
type Row struct {
	Row   int      `json:"row"`
	Cells []string `json:"cells"`
}

// Take samples every worksheet of doc. A sheet with more than MaxRows data
// rows contributes its first MaxRows-TailRows rows followed by its last
// TailRows rows.
func Take(doc *workbook.Document, opts Options) *Sample {
	opts = opts.normalized()
	s := &Sample{FileType: doc.Format.String(), Worksheets: make([]Worksheet, 0, len(doc.Sheets))}
	for _, ws := range doc.Sheets {
		s.Worksheets = append(s.Worksheets, takeSheet(ws, opts))
	}
	return s
}

func takeSheet(ws *workbook.Worksheet, opts Options) Worksheet {
	headers := ws.Headers()
	for i, h := range headers {
		headers[i] = truncate(h, opts.MaxCellChars)
	}
	total := max(ws.RowCount()-1, 0)
	out := Worksheet{
		Name:         ws.Name,
		Headers:      headers,
		Rows:         []Row{},
		TotalRows:    total,
		TotalColumns: ws.ColumnCount(),
	}

	// Data row i (1-based) lives on sheet row i+1.
	add := func(from, to int) {
		for i := from; i <= to; i++ {
			out.Rows = append(out.Rows, sampleRow(ws, i+1, opts.MaxCellChars))
		}
	}
	if total <= opts.MaxRows {
		add(1, total)
		return out
	}
	head := opts.MaxRows - opts.TailRows
	add(1, head)
	add(total-opts.TailRows+1, total)
	out.IsSample = true
	return out
}

func sampleRow(ws *workbook.Worksheet, row, limit int) Row {
	cells := make([]string, ws.ColumnCount())
	for c := range cells {
		cells[c] = truncate(ws.Cell(row, c+1).String(), limit)
	}
	return Row{Row: row, Cells: cells}
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "…"
}

// JSON renders the sample as compact JSON for the prompt.
func (s *Sample) JSON() ([]byte, error) {
	return json.Marshal(s)
}
