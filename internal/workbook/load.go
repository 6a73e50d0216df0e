package workbook

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

var utf8BOM = []byte{0xef, 0xbb, 0xbf}

// Load reads a spreadsheet. The format comes from the extension, corrected
// by the file's magic bytes for xls/xlsx. Every loaded document has at
// least one worksheet.
func Load(path string) (*Document, error) {
	format, err := ResolveFormat(path)
	if err != nil {
		return nil, err
	}

	var doc *Document
	switch format {
	case FormatXLSX:
		doc, err = loadXLSX(path)
	case FormatXLS:
		doc, err = loadXLS(path)
	case FormatCSV:
		doc, err = loadCSV(path)
	}
	if err != nil {
		if errors.Is(err, os.ErrNotExist) || errors.Is(err, os.ErrPermission) {
			return nil, err
		}
		return nil, &LoadError{Path: path, Format: format, Err: fmt.Errorf("%w: %v", ErrCorruptFile, err)}
	}
	if len(doc.Sheets) == 0 {
		return nil, &LoadError{Path: path, Format: format, Err: fmt.Errorf("%w: no worksheets", ErrCorruptFile)}
	}
	return doc, nil
}

func loadXLSX(path string) (*Document, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	doc := New(FormatXLSX)
	for _, name := range f.GetSheetList() {
		ws, err := doc.AddSheet(name)
		if err != nil {
			return nil, err
		}
		rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("reading sheet %q: %w", name, err)
		}
		for r, row := range rows {
			values := make([]Value, len(row))
			for c, raw := range row {
				cell, err := excelize.CoordinatesToCellName(c+1, r+1)
				if err != nil {
					return nil, err
				}
				values[c] = readXLSXCell(f, name, cell, raw)
				if id, err := f.GetCellStyle(name, cell); err == nil && id != 0 {
					if st, err := f.GetStyle(id); err == nil {
						if s := styleFromExcelize(st); !s.IsZero() {
							_ = ws.SetStyle(r+1, c+1, s)
						}
					}
				}
			}
			ws.AppendRow(values)
		}
		ws.TrimTrailingEmptyRows()
	}
	return doc, nil
}

func readXLSXCell(f *excelize.File, sheet, cell, raw string) Value {
	if formula, err := f.GetCellFormula(sheet, cell); err == nil && formula != "" {
		v := FormulaValue(formula)
		v.Cached = raw
		return v
	}
	if raw == "" {
		return Value{}
	}
	typ, err := f.GetCellType(sheet, cell)
	if err != nil {
		return StringValue(raw)
	}
	switch typ {
	case excelize.CellTypeBool:
		return BoolValue(raw == "1" || strings.EqualFold(raw, "true"))
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeError:
		return StringValue(raw)
	default:
		if n, err := strconv.ParseFloat(raw, 64); err == nil {
			return NumberValue(n)
		}
		return StringValue(raw)
	}
}

// loadXLS reads a legacy BIFF workbook. The reader yields formatted text,
// so numbers are recovered with InferValue.
func loadXLS(path string) (doc *Document, err error) {
	defer func() {
		// The BIFF reader panics on some malformed streams.
		if r := recover(); r != nil {
			doc, err = nil, fmt.Errorf("reading xls: %v", r)
		}
	}()

	wb, err := xls.Open(path, "utf-8")
	if err != nil {
		return nil, err
	}
	doc = New(FormatXLS)
	for i := 0; i < wb.NumSheets(); i++ {
		sheet := wb.GetSheet(i)
		if sheet == nil {
			continue
		}
		ws, err := doc.AddSheet(sheet.Name)
		if err != nil {
			return nil, err
		}
		for r := 0; r <= int(sheet.MaxRow); r++ {
			row := sheet.Row(r)
			if row == nil {
				ws.AppendRow(nil)
				continue
			}
			values := make([]Value, row.LastCol())
			for c := row.FirstCol(); c < row.LastCol(); c++ {
				values[c] = InferValue(row.Col(c))
			}
			ws.AppendRow(values)
		}
		ws.TrimTrailingEmptyRows()
	}
	return doc, nil
}

// loadCSV reads a comma-separated file into a single worksheet named after
// the file. Input that is not valid UTF-8 is decoded as Windows-1252.
func loadCSV(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	var r io.Reader = bytes.NewReader(data)
	if !utf8.Valid(data) {
		r = transform.NewReader(r, charmap.Windows1252.NewDecoder())
	}
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	doc := New(FormatCSV)
	ws, err := doc.AddSheet(sheetNameFromPath(path))
	if err != nil {
		return nil, err
	}
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		values := make([]Value, len(record))
		for i, field := range record {
			values[i] = InferValue(field)
		}
		ws.AppendRow(values)
	}
	ws.TrimTrailingEmptyRows()
	return doc, nil
}

// sheetNameFromPath derives a worksheet name that xlsx accepts: at most 31
// characters and none of []:*?/\.
func sheetNameFromPath(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	name := strings.Map(func(r rune) rune {
		switch r {
		case '[', ']', ':', '*', '?', '/', '\\':
			return '_'
		}
		return r
	}, base)
	name = strings.Trim(name, "' ")
	if runes := []rune(name); len(runes) > 31 {
		name = string(runes[:31])
	}
	if name == "" {
		return "Sheet1"
	}
	return name
}
