package workbook

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrUnsupportedFormat is returned for files that are not xlsx, xls or csv.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrCorruptFile is returned when a file cannot be parsed.
	ErrCorruptFile = errors.New("corrupt file")
)

// Format is a spreadsheet file format.
type Format int

const (
	FormatUnknown Format = iota
	FormatXLSX
	FormatXLS
	FormatCSV
)

func (f Format) String() string {
	switch f {
	case FormatXLSX:
		return "xlsx"
	case FormatXLS:
		return "xls"
	case FormatCSV:
		return "csv"
	default:
		return "unknown"
	}
}

// Extension returns the file extension including the dot.
func (f Format) Extension() string {
	if f == FormatUnknown {
		return ""
	}
	return "." + f.String()
}

// ParseFormat accepts a format name with or without a leading dot.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), ".")) {
	case "xlsx", "xlsm":
		return FormatXLSX, nil
	case "xls":
		return FormatXLS, nil
	case "csv":
		return FormatCSV, nil
	default:
		return FormatUnknown, fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
	}
}

// FormatFromPath detects the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	ext := filepath.Ext(path)
	if ext == "" {
		return FormatUnknown, fmt.Errorf("%w: %s has no extension", ErrUnsupportedFormat, filepath.Base(path))
	}
	return ParseFormat(ext)
}

// LoadError describes a failed load.
type LoadError struct {
	Path   string
	Format Format
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading %s as %s: %v", filepath.Base(e.Path), e.Format, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// DetectContent reads the leading bytes of a file and reports whether it is
// an OLE2 compound document (legacy xls) or a ZIP package (xlsx). Anything
// else is FormatUnknown.
func DetectContent(path string) (Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return FormatUnknown, err
	}
	defer f.Close()

	buf := make([]byte, 8)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return FormatUnknown, err
	}
	return sniff(buf[:n]), nil
}

func sniff(buf []byte) Format {
	if len(buf) < 4 {
		return FormatUnknown
	}
	// OLE2 Compound Document: d0 cf 11 e0 (full signature: d0cf11e0a1b11ae1)
	if buf[0] == 0xd0 && buf[1] == 0xcf && buf[2] == 0x11 && buf[3] == 0xe0 {
		return FormatXLS
	}
	// ZIP (OOXML): PK\x03\x04
	if buf[0] == 0x50 && buf[1] == 0x4b && buf[2] == 0x03 && buf[3] == 0x04 {
		return FormatXLSX
	}
	return FormatUnknown
}

// ResolveFormat combines the extension with the file content. A .xls file
// holding OOXML is read as xlsx and the other way round; csv is trusted.
func ResolveFormat(path string) (Format, error) {
	byExt, err := FormatFromPath(path)
	if err != nil {
		return FormatUnknown, err
	}
	if byExt == FormatCSV {
		return byExt, nil
	}
	byContent, err := DetectContent(path)
	if err != nil {
		return FormatUnknown, err
	}
	switch byContent {
	case FormatUnknown:
		return byExt, &LoadError{Path: path, Format: byExt, Err: fmt.Errorf("%w: not an Excel file", ErrCorruptFile)}
	default:
		return byContent, nil
	}
}

// outputPath adjusts path so its extension matches the format actually
// written. Legacy xls output is written as OOXML, so it gets ".xlsx"; so does
// xlsm, since macros are not carried over.
func outputPath(path string, written Format) string {
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case written == FormatXLSX && ext == ".xls":
		return path + "x"
	case ext == written.Extension():
		return path
	default:
		return strings.TrimSuffix(path, filepath.Ext(path)) + written.Extension()
	}
}
