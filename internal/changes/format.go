package changes

import (
	"strings"

	"github.com/factor591/aisheets/internal"
	"github.com/factor591/aisheets/internal/workbook"
)

const (
	defaultCurrencySymbol = "$"
	defaultDateFormat     = "mm/dd/yyyy"
	defaultDecimals       = 2
	maxDecimals           = 15
)

// styler adjusts one cell's style for a format change.
type styler func(workbook.Style) workbook.Style

func applyFormat(a *applyContext) error {
	name := formatName(a.change)
	if name == "" {
		return skipf(ReasonMissingValue, "format change names no format")
	}
	apply, ok := formatters[name]
	if !ok {
		a.note(ReasonUnknownFormat)
		return nil
	}
	f, err := apply(a.change)
	if err != nil {
		return err
	}
	cells, err := expand(a)
	if err != nil {
		return err
	}
	for _, c := range cells {
		st, _ := a.ws.Style(c.Row, c.Col)
		if err := a.ws.SetStyle(c.Row, c.Col, f(st)); err != nil {
			return err
		}
		a.cells++
	}
	return nil
}

func formatName(c Change) string {
	if s, ok := c.Value.(string); ok && strings.TrimSpace(s) != "" {
		return normalizeFormat(s)
	}
	if v, ok := c.Param("format_type"); ok {
		return normalizeFormat(text(v))
	}
	return ""
}

func normalizeFormat(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, " ", "_")
	switch s {
	case "percent":
		return "percentage"
	case "text":
		return "text_format"
	}
	return s
}

var formatters = map[string]func(Change) (styler, error){
	"currency":    currencyFormat,
	"percentage":  numberCode("0.00%"),
	"date":        dateFormat,
	"number":      numberFormat,
	"text_format": textFormat,
}

func numberCode(code string) func(Change) (styler, error) {
	return func(Change) (styler, error) {
		return withNumberFormat(code), nil
	}
}

func withNumberFormat(code string) styler {
	return func(s workbook.Style) workbook.Style {
		s.NumberFormat = code
		s.NumFmtID = 0
		return s
	}
}

func currencyFormat(c Change) (styler, error) {
	symbol := defaultCurrencySymbol
	if v, ok := c.Param("symbol"); ok {
		if s := text(v); s != "" {
			symbol = s
		}
	}
	return withNumberFormat(quoteSymbol(symbol) + "#,##0.00"), nil
}

// quoteSymbol wraps multi-character symbols so the format code treats them
// as literal text.
func quoteSymbol(s string) string {
	if len([]rune(s)) == 1 {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, "") + `"`
}

func dateFormat(c Change) (styler, error) {
	code := defaultDateFormat
	if v, ok := c.Param("format"); ok {
		if s := strings.TrimSpace(text(v)); s != "" {
			code = s
		}
	}
	return withNumberFormat(code), nil
}

func numberFormat(c Change) (styler, error) {
	decimals := defaultDecimals
	if v, ok := c.Param("decimals"); ok {
		n, ok := intParam(v)
		if !ok || n < 0 || n > maxDecimals {
			return nil, skipf(ReasonInvalidParameters, "decimals must be an integer between 0 and %d", maxDecimals)
		}
		decimals = n
	}
	code := "0"
	if decimals > 0 {
		code += "." + strings.Repeat("0", decimals)
	}
	return withNumberFormat(code), nil
}

func textFormat(c Change) (styler, error) {
	type flag struct {
		name string
		set  func(*workbook.Style, bool)
	}
	flags := []flag{
		{"bold", func(s *workbook.Style, b bool) { s.Bold = b }},
		{"italic", func(s *workbook.Style, b bool) { s.Italic = b }},
		{"underline", func(s *workbook.Style, b bool) { s.Underline = b }},
	}

	var edits []func(*workbook.Style)
	for _, f := range flags {
		if v, ok := c.Param(f.name); ok {
			b, set := boolParam(v), f.set
			edits = append(edits, func(s *workbook.Style) { set(s, b) })
		}
	}
	if v, ok := c.Param("color"); ok {
		color, err := hexColor(text(v))
		if err != nil {
			return nil, err
		}
		edits = append(edits, func(s *workbook.Style) { s.FontColor = color })
	}
	if v, ok := c.Param("fill"); ok {
		color, err := hexColor(text(v))
		if err != nil {
			return nil, err
		}
		edits = append(edits, func(s *workbook.Style) { s.FillColor = color })
	}
	if v, ok := c.Param("size"); ok {
		size, isNum := v.(float64)
		if !isNum || size <= 0 || size > 409 {
			return nil, skipf(ReasonInvalidParameters, "size must be a number between 1 and 409")
		}
		edits = append(edits, func(s *workbook.Style) { s.FontSize = size })
	}
	if len(edits) == 0 {
		return nil, skipf(ReasonInvalidParameters, "text_format sets no attribute")
	}
	return func(s workbook.Style) workbook.Style {
		for _, e := range edits {
			e(&s)
		}
		return s
	}, nil
}

var namedColors = map[string]string{
	"black":  "000000",
	"white":  "FFFFFF",
	"red":    "FF0000",
	"green":  "00B050",
	"blue":   "0070C0",
	"yellow": "FFFF00",
	"orange": "FFC000",
	"purple": "7030A0",
	"gray":   "808080",
	"grey":   "808080",
}

// hexColor accepts "#RRGGBB", "RRGGBB", "#RGB" or a basic color name and
// returns upper-case RRGGBB.
func hexColor(s string) (string, error) {
	s = strings.TrimSpace(s)
	if named, ok := namedColors[strings.ToLower(s)]; ok {
		return named, nil
	}
	h := strings.ToUpper(strings.TrimPrefix(s, "#"))
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return "", skipf(ReasonInvalidParameters, "color %q is not a hex color", s)
	}
	for _, r := range h {
		if !strings.ContainsRune("0123456789ABCDEF", r) {
			return "", skipf(ReasonInvalidParameters, "color %q is not a hex color", s)
		}
	}
	return h, nil
}
