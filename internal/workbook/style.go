package workbook

import (
	"github.com/xuri/excelize/v2"
)

// Style is the presentation of one cell. It is kept outside the value grid.
type Style struct {
	NumberFormat string // custom format code, e.g. "$#,##0.00"
	NumFmtID     int    // built-in format id, used when NumberFormat is empty
	Bold         bool
	Italic       bool
	Underline    bool
	FontColor    string // RGB hex without "#"
	FontSize     float64
	FillColor    string
}

// IsZero reports whether the style carries no formatting.
func (s Style) IsZero() bool {
	return s == Style{}
}

func styleFromExcelize(st *excelize.Style) Style {
	var s Style
	if st == nil {
		return s
	}
	if st.CustomNumFmt != nil {
		s.NumberFormat = *st.CustomNumFmt
	} else {
		s.NumFmtID = st.NumFmt
	}
	if st.Font != nil {
		s.Bold = st.Font.Bold
		s.Italic = st.Font.Italic
		s.Underline = st.Font.Underline != "" && st.Font.Underline != "none"
		s.FontColor = st.Font.Color
		s.FontSize = st.Font.Size
	}
	if st.Fill.Type == "pattern" && len(st.Fill.Color) > 0 {
		s.FillColor = st.Fill.Color[0]
	}
	return s
}

func (s Style) toExcelize() *excelize.Style {
	st := &excelize.Style{NumFmt: s.NumFmtID}
	if s.NumberFormat != "" {
		code := s.NumberFormat
		st.CustomNumFmt = &code
	}
	if s.Bold || s.Italic || s.Underline || s.FontColor != "" || s.FontSize > 0 {
		st.Font = &excelize.Font{
			Bold:   s.Bold,
			Italic: s.Italic,
			Color:  s.FontColor,
			Size:   s.FontSize,
		}
		if s.Underline {
			st.Font.Underline = "single"
		}
	}
	if s.FillColor != "" {
		st.Fill = excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{s.FillColor}}
	}
	return st
}
