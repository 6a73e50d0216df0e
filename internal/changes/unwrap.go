package changes

import (
	"strings"

	"github.com/factor591/aisheets/internal"
)

// The model is told not to put JSON records inside a value, but it still
// does now and then. This file maps such values onto cells before they are
// written. It can go once the prompt keeps values scalar.

// structured returns v decoded when it is an object or array, either inline
// or serialized into a string.
func structured(v any) (any, bool) {
	switch t := v.(type) {
	case object, []any:
		return t, true
	case string:
		s := strings.TrimSpace(t)
		if len(s) < 2 || (s[0] != '{' && s[0] != '[') {
			return nil, false
		}
		decoded, err := decodeJSON([]byte(s))
		if err != nil {
			return nil, false
		}
		switch decoded.(type) {
		case object, []any:
			return decoded, true
		}
	}
	return nil, false
}

// spread maps a structured value onto cells. Cells missing from the result
// are left unchanged; a nil result means nothing usable was found.
//
// Objects are matched key-to-header per cell. When no key matches any
// cell's header the first scalar of the object goes to every cell. Arrays
// fill positionally in row-major order; an array of arrays fills a block
// relative to the first cell.
func spread(s any, cells []internal.Coord, headers []string) map[internal.Coord]any {
	if len(cells) == 0 {
		return nil
	}
	out := make(map[internal.Coord]any, len(cells))
	switch t := s.(type) {
	case object:
		for _, c := range cells {
			h := header(headers, c.Col)
			if h == "" {
				continue
			}
			if v, ok := t.Lookup(h); ok {
				if sc, ok := firstScalar(v); ok {
					out[c] = sc
				}
			}
		}
		if len(out) > 0 {
			return out
		}
		first, ok := firstScalar(t)
		if !ok {
			return nil
		}
		for _, c := range cells {
			out[c] = first
		}
	case []any:
		if len(t) == 0 {
			return nil
		}
		if _, nested := t[0].([]any); nested {
			origin := cells[0]
			for _, c := range cells {
				r, col := c.Row-origin.Row, c.Col-origin.Col
				if r >= len(t) {
					continue
				}
				row, ok := t[r].([]any)
				if !ok || col < 0 || col >= len(row) {
					continue
				}
				if sc, ok := firstScalar(row[col]); ok {
					out[c] = sc
				}
			}
		} else {
			for i, c := range cells {
				if i >= len(t) {
					break
				}
				if sc, ok := firstScalar(t[i]); ok {
					out[c] = sc
				}
			}
		}
	default:
		return nil
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// firstScalar walks v in document order and returns the first value that
// is not an object or array.
func firstScalar(v any) (any, bool) {
	switch t := v.(type) {
	case object:
		for _, f := range t {
			if sc, ok := firstScalar(f.Value); ok {
				return sc, true
			}
		}
		return nil, false
	case []any:
		for _, e := range t {
			if sc, ok := firstScalar(e); ok {
				return sc, true
			}
		}
		return nil, false
	default:
		return t, true
	}
}

// unwrapFor picks the entry of a structured value that belongs under one
// header: the matching key of an object, else its first scalar.
func unwrapFor(v any, headerName string) (any, bool) {
	s, ok := structured(v)
	if !ok {
		return v, false
	}
	if obj, isObj := s.(object); isObj && headerName != "" {
		if hv, found := obj.Lookup(headerName); found {
			if sc, ok := firstScalar(hv); ok {
				return sc, true
			}
		}
	}
	if sc, ok := firstScalar(s); ok {
		return sc, true
	}
	return v, false
}

func header(headers []string, col int) string {
	if col < 1 || col > len(headers) {
		return ""
	}
	return strings.TrimSpace(headers[col-1])
}
