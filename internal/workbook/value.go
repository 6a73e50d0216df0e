package workbook

import (
	"math"
	"strconv"
	"strings"
)

// Kind is the type of a cell value.
type Kind int

const (
	Empty Kind = iota
	String
	Number
	Bool
	Formula
)

func (k Kind) String() string {
	switch k {
	case String:
		return "string"
	case Number:
		return "number"
	case Bool:
		return "bool"
	case Formula:
		return "formula"
	default:
		return "empty"
	}
}

// Value is a single cell. Formula holds the expression without the leading
// "="; Cached is the last computed result read from the source file, if any.
type Value struct {
	Kind    Kind
	Text    string
	Number  float64
	Bool    bool
	Formula string
	Cached  string
}

func StringValue(s string) Value { return Value{Kind: String, Text: s} }

func NumberValue(f float64) Value { return Value{Kind: Number, Number: f} }

func BoolValue(b bool) Value { return Value{Kind: Bool, Bool: b} }

// FormulaValue builds a formula cell; a leading "=" is dropped.
func FormulaValue(expr string) Value {
	return Value{Kind: Formula, Formula: strings.TrimPrefix(strings.TrimSpace(expr), "=")}
}

// IsEmpty reports whether the cell holds nothing.
func (v Value) IsEmpty() bool {
	return v.Kind == Empty || (v.Kind == String && v.Text == "")
}

// String returns the display text of the value. Formulas render as "=expr".
func (v Value) String() string {
	switch v.Kind {
	case String:
		return v.Text
	case Number:
		return formatNumber(v.Number)
	case Bool:
		if v.Bool {
			return "TRUE"
		}
		return "FALSE"
	case Formula:
		return "=" + v.Formula
	default:
		return ""
	}
}

// Flatten returns the text written to formats without formulas: the cached
// result when one is known, else the formula text.
func (v Value) Flatten() string {
	if v.Kind == Formula && v.Cached != "" {
		return v.Cached
	}
	return v.String()
}

// InferValue converts loosely typed text into a value. Only canonical
// decimal text becomes a number, so "00123" and "1e5" stay strings.
func InferValue(s string) Value {
	if s == "" {
		return Value{}
	}
	t := strings.TrimSpace(s)
	if f, err := strconv.ParseFloat(t, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		if formatNumber(f) == t {
			return NumberValue(f)
		}
	}
	return StringValue(s)
}

// ParseInput interprets user-supplied text: "=..." is a formula, anything
// else goes through InferValue.
func ParseInput(s string) Value {
	if strings.HasPrefix(s, "=") && len(s) > 1 {
		return FormulaValue(s)
	}
	return InferValue(s)
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
