package internal

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Grid limits of an xlsx worksheet.
const (
	MaxRows    = 1048576
	MaxColumns = 16384
)

var (
	// ErrInvalidReference is returned when a reference cannot be parsed.
	ErrInvalidReference = errors.New("invalid reference")
	// ErrUnsupportedTarget is returned for a target type other than cell, range, column or row.
	ErrUnsupportedTarget = errors.New("unsupported target type")
)

// cellRefRe matches a cell reference like A1, $B$2, AA100
var cellRefRe = regexp.MustCompile(`^\$?([A-Z]+)\$?(\d+)$`)

var lettersRe = regexp.MustCompile(`^[A-Z]{1,3}$`)

// Coord is a 1-indexed cell position. Row 1 is the header row.
type Coord struct {
	Row int
	Col int
}

// TargetKind identifies what a Reference addresses.
type TargetKind int

const (
	TargetCell TargetKind = iota + 1
	TargetRange
	TargetColumn
	TargetRow
)

func (k TargetKind) String() string {
	switch k {
	case TargetCell:
		return "cell"
	case TargetRange:
		return "range"
	case TargetColumn:
		return "column"
	case TargetRow:
		return "row"
	default:
		return "unknown"
	}
}

// Reference is a resolved target. Cell and range references use Start and
// End (equal for a cell); a column reference only sets Col, a row reference
// only sets Row.
type Reference struct {
	Kind  TargetKind
	Start Coord
	End   Coord
}

// CellReference builds a single-cell reference.
func CellReference(c Coord) Reference {
	return Reference{Kind: TargetCell, Start: c, End: c}
}

// RangeReference builds a range reference with normalized corners.
func RangeReference(a, b Coord) Reference {
	if a.Row > b.Row {
		a.Row, b.Row = b.Row, a.Row
	}
	if a.Col > b.Col {
		a.Col, b.Col = b.Col, a.Col
	}
	return Reference{Kind: TargetRange, Start: a, End: b}
}

// ColumnReference addresses a whole column.
func ColumnReference(col int) Reference {
	return Reference{Kind: TargetColumn, Start: Coord{Col: col}, End: Coord{Col: col}}
}

// RowReference addresses a whole row.
func RowReference(row int) Reference {
	return Reference{Kind: TargetRow, Start: Coord{Row: row}, End: Coord{Row: row}}
}

// String renders the reference in A1 notation: "B7", "A1:C3", "C" or "5".
func (r Reference) String() string {
	switch r.Kind {
	case TargetCell:
		return FormatCell(r.Start)
	case TargetRange:
		return FormatCell(r.Start) + ":" + FormatCell(r.End)
	case TargetColumn:
		return IndexToColumnLetter(r.Start.Col)
	case TargetRow:
		return strconv.Itoa(r.Start.Row)
	default:
		return ""
	}
}

// Contains reports whether c lies inside a cell or range reference.
func (r Reference) Contains(c Coord) bool {
	if r.Kind != TargetCell && r.Kind != TargetRange {
		return false
	}
	return c.Row >= r.Start.Row && c.Row <= r.End.Row && c.Col >= r.Start.Col && c.Col <= r.End.Col
}

// ColumnLetterToIndex converts column letters to a 1-indexed column number.
// Lowercase letters are accepted.
func ColumnLetterToIndex(letters string) (int, error) {
	s := strings.ToUpper(strings.TrimSpace(letters))
	if s == "" {
		return 0, fmt.Errorf("%w: empty column", ErrInvalidReference)
	}
	col := 0
	for _, c := range s {
		if c < 'A' || c > 'Z' {
			return 0, fmt.Errorf("%w: column %q", ErrInvalidReference, letters)
		}
		col = col*26 + int(c-'A'+1)
		if col > MaxColumns {
			return 0, fmt.Errorf("%w: column %q beyond %s", ErrInvalidReference, letters, IndexToColumnLetter(MaxColumns))
		}
	}
	return col, nil
}

// IndexToColumnLetter converts a 1-indexed column number to Excel letter(s).
// It returns "" for n < 1.
func IndexToColumnLetter(col int) string {
	result := ""
	for col > 0 {
		col--
		result = string(rune('A'+col%26)) + result
		col /= 26
	}
	return result
}

// FormatCell renders a coordinate like "B7".
func FormatCell(c Coord) string {
	return IndexToColumnLetter(c.Col) + strconv.Itoa(c.Row)
}

// FormatAddress builds an address string like "Sheet1!A1:Z50"
func FormatAddress(sheet string, r Reference) string {
	return sheet + "!" + r.String()
}

// ParseCell parses an A1-style reference. "$" anchors, lowercase and a
// "Sheet1!" prefix are tolerated.
func ParseCell(ref string) (Coord, error) {
	s := strings.ToUpper(strings.TrimSpace(ref))
	if i := strings.LastIndex(s, "!"); i >= 0 {
		s = s[i+1:]
	}
	m := cellRefRe.FindStringSubmatch(s)
	if m == nil {
		return Coord{}, fmt.Errorf("%w: cell %q", ErrInvalidReference, ref)
	}
	col, err := ColumnLetterToIndex(m[1])
	if err != nil {
		return Coord{}, err
	}
	row, err := strconv.Atoi(m[2])
	if err != nil || row < 1 || row > MaxRows {
		return Coord{}, fmt.Errorf("%w: row in %q", ErrInvalidReference, ref)
	}
	return Coord{Row: row, Col: col}, nil
}

// ParseRange parses "A1:C10" (optionally prefixed with "Sheet1!") and
// normalizes the corners. A single cell is treated as a 1x1 range.
func ParseRange(ref string) (Reference, error) {
	s := strings.TrimSpace(ref)
	if i := strings.LastIndex(s, "!"); i >= 0 {
		s = s[i+1:]
	}
	fromRef, toRef, hasColon := strings.Cut(s, ":")
	if !hasColon {
		toRef = fromRef
	}
	from, err := ParseCell(fromRef)
	if err != nil {
		return Reference{}, fmt.Errorf("start of range %q: %w", ref, err)
	}
	to, err := ParseCell(toRef)
	if err != nil {
		return Reference{}, fmt.Errorf("end of range %q: %w", ref, err)
	}
	return RangeReference(from, to), nil
}

// ParseReference resolves a {type, reference} target. The reference may be
// a string or a JSON number. Column references also match header names.
func ParseReference(targetType string, ref any, headers []string) (Reference, error) {
	switch strings.ToLower(strings.TrimSpace(targetType)) {
	case "cell":
		s, ok := ref.(string)
		if !ok {
			return Reference{}, fmt.Errorf("%w: cell reference must be a string, got %T", ErrInvalidReference, ref)
		}
		c, err := ParseCell(s)
		if err != nil {
			return Reference{}, err
		}
		return CellReference(c), nil
	case "range":
		s, ok := ref.(string)
		if !ok {
			return Reference{}, fmt.Errorf("%w: range reference must be a string, got %T", ErrInvalidReference, ref)
		}
		return ParseRange(s)
	case "column":
		col, err := ResolveColumn(ref, headers)
		if err != nil {
			return Reference{}, err
		}
		return ColumnReference(col), nil
	case "row":
		row, err := resolveIndex(ref, MaxRows)
		if err != nil {
			return Reference{}, fmt.Errorf("row: %w", err)
		}
		return RowReference(row), nil
	default:
		return Reference{}, fmt.Errorf("%w: %q", ErrUnsupportedTarget, targetType)
	}
}

// ResolveColumn resolves a column given as a number, a numeric string, a
// header name or letters. An exact header match wins over letters. Lowercase
// letters pointing past the header row lose to a case-insensitive header
// match.
func ResolveColumn(ref any, headers []string) (int, error) {
	s, isString := ref.(string)
	if !isString {
		return resolveIndex(ref, MaxColumns)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty column", ErrInvalidReference)
	}
	if isDigits(s) {
		return resolveIndex(s, MaxColumns)
	}
	for i, h := range headers {
		if h != "" && h == s {
			return i + 1, nil
		}
	}
	// "C:C" style whole-column ranges.
	if a, b, ok := strings.Cut(s, ":"); ok && strings.EqualFold(a, b) {
		s = a
	}
	// Uppercase letters, or letters landing inside the header row, are a
	// column address. Otherwise "qty" means the "Qty" header, not column QTY.
	letters := -1
	if lettersRe.MatchString(strings.ToUpper(s)) {
		n, err := ColumnLetterToIndex(s)
		if err != nil {
			return 0, err
		}
		if s == strings.ToUpper(s) || n <= len(headers)+1 {
			return n, nil
		}
		letters = n
	}
	for i, h := range headers {
		if h != "" && strings.EqualFold(strings.TrimSpace(h), s) {
			return i + 1, nil
		}
	}
	if letters > 0 {
		return letters, nil
	}
	return 0, fmt.Errorf("%w: column %q", ErrInvalidReference, s)
}

func resolveIndex(ref any, limit int) (int, error) {
	var n int
	switch v := ref.(type) {
	case float64:
		if v != math.Trunc(v) || v < 1 || v > float64(limit) {
			return 0, fmt.Errorf("%w: index %v", ErrInvalidReference, v)
		}
		n = int(v)
	case int:
		n = v
	case string:
		s := strings.TrimSpace(v)
		if !isDigits(s) {
			return 0, fmt.Errorf("%w: index %q", ErrInvalidReference, v)
		}
		i, err := strconv.Atoi(s)
		if err != nil {
			return 0, fmt.Errorf("%w: index %q", ErrInvalidReference, v)
		}
		n = i
	default:
		return 0, fmt.Errorf("%w: unexpected %T", ErrInvalidReference, ref)
	}
	if n < 1 || n > limit {
		return 0, fmt.Errorf("%w: index %d out of range", ErrInvalidReference, n)
	}
	return n, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// Extent reports the populated size of a worksheet.
type Extent interface {
	RowCount() int
	ColumnCount() int
}

// CellInReach reports whether c lies inside the extent or at most one row
// below or one column to the right of it.
func CellInReach(ext Extent, c Coord) bool {
	return c.Row >= 1 && c.Col >= 1 &&
		c.Row <= min(ext.RowCount()+1, MaxRows) && c.Col <= min(ext.ColumnCount()+1, MaxColumns)
}

// ExpandToCells materializes a reference into row-major coordinates.
// Ranges, columns and rows are clipped to the extent. A single cell may sit
// one row or column past the end, so a total can go under the last row;
// anything further expands to nothing.
func ExpandToCells(ext Extent, ref Reference) []Coord {
	rows, cols := ext.RowCount(), ext.ColumnCount()
	var r1, c1, r2, c2 int
	switch ref.Kind {
	case TargetCell:
		if !CellInReach(ext, ref.Start) {
			return nil
		}
		return []Coord{ref.Start}
	case TargetRange:
		r1, c1, r2, c2 = ref.Start.Row, ref.Start.Col, min(ref.End.Row, rows), min(ref.End.Col, cols)
	case TargetColumn:
		r1, c1, r2, c2 = 1, ref.Start.Col, rows, min(ref.Start.Col, cols)
	case TargetRow:
		r1, c1, r2, c2 = ref.Start.Row, 1, min(ref.Start.Row, rows), cols
	default:
		return nil
	}
	if r1 < 1 || c1 < 1 || r1 > r2 || c1 > c2 {
		return nil
	}
	out := make([]Coord, 0, (r2-r1+1)*(c2-c1+1))
	for r := r1; r <= r2; r++ {
		for c := c1; c <= c2; c++ {
			out = append(out, Coord{Row: r, Col: c})
		}
	}
	return out
}
