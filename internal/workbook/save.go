package workbook

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/factor591/aisheets/internal"
	"github.com/xuri/excelize/v2"
)

// Save writes the document and returns the path actually written. xls
// output is produced as OOXML under an ".xlsx" name since no BIFF writer
// is available. csv output holds only the first worksheet and flattens
// formulas to their cached values.
func Save(doc *Document, path string, format Format) (string, error) {
	if len(doc.Sheets) == 0 {
		return "", fmt.Errorf("saving %s: document has no worksheets", filepath.Base(path))
	}
	switch format {
	case FormatXLSX, FormatXLS:
		path = outputPath(path, FormatXLSX)
		return path, writeAtomic(path, func(w io.Writer) error { return writeXLSX(doc, w) })
	case FormatCSV:
		path = outputPath(path, FormatCSV)
		return path, writeAtomic(path, func(w io.Writer) error { return writeCSV(doc.First(), w) })
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// writeAtomic writes through a temp file in the target directory and
// renames it into place.
func writeAtomic(path string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	bw := bufio.NewWriter(tmp)
	if err := write(bw); err != nil {
		tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := bw.Flush(); err != nil {
		tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	// Remove dest first for Windows compat (os.Rename fails if dest exists on Windows).
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}

func writeXLSX(doc *Document, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	styleIDs := make(map[Style]int)
	for i, ws := range doc.Sheets {
		if i == 0 {
			if ws.Name != "Sheet1" {
				if err := f.SetSheetName("Sheet1", ws.Name); err != nil {
					return fmt.Errorf("naming sheet %q: %w", ws.Name, err)
				}
			}
		} else if _, err := f.NewSheet(ws.Name); err != nil {
			return fmt.Errorf("adding sheet %q: %w", ws.Name, err)
		}

		for r := 1; r <= ws.RowCount(); r++ {
			for c := 1; c <= ws.ColumnCount(); c++ {
				v := ws.Cell(r, c)
				if v.Kind == Empty {
					continue
				}
				cell, err := excelize.CoordinatesToCellName(c, r)
				if err != nil {
					return err
				}
				if err := writeXLSXCell(f, ws.Name, cell, v); err != nil {
					return fmt.Errorf("writing %s!%s: %w", ws.Name, cell, err)
				}
			}
		}

		for coord, s := range ws.styles {
			id, ok := styleIDs[s]
			if !ok {
				var err error
				id, err = f.NewStyle(s.toExcelize())
				if err != nil {
					return fmt.Errorf("styling %s!%s: %w", ws.Name, internal.FormatCell(coord), err)
				}
				styleIDs[s] = id
			}
			cell := internal.FormatCell(coord)
			if err := f.SetCellStyle(ws.Name, cell, cell, id); err != nil {
				return fmt.Errorf("styling %s!%s: %w", ws.Name, cell, err)
			}
		}
	}
	f.SetActiveSheet(0)
	_, err := f.WriteTo(w)
	return err
}

func writeXLSXCell(f *excelize.File, sheet, cell string, v Value) error {
	switch v.Kind {
	case String:
		return f.SetCellStr(sheet, cell, v.Text)
	case Number:
		return f.SetCellFloat(sheet, cell, v.Number, -1, 64)
	case Bool:
		return f.SetCellBool(sheet, cell, v.Bool)
	case Formula:
		return f.SetCellFormula(sheet, cell, v.Formula)
	default:
		return nil
	}
}

func writeCSV(ws *Worksheet, w io.Writer) error {
	cw := csv.NewWriter(w)
	record := make([]string, ws.ColumnCount())
	for r := 1; r <= ws.RowCount(); r++ {
		for c := 1; c <= ws.ColumnCount(); c++ {
			record[c-1] = ws.Cell(r, c).Flatten()
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
