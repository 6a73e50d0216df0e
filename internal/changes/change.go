// Package changes turns the model's function-call output into edits on a
// workbook.Document.
//
// Every change is decoded, resolved and applied on its own; a malformed
// change becomes a skipped Outcome and never stops the batch. Only a
// document without worksheets or a changes payload that is not a list fails
// the whole call.
package changes

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

// Kind is the type of edit a change requests.
type Kind string

const (
	KindValue        Kind = "value"
	KindFormula      Kind = "formula"
	KindFormat       Kind = "format"
	KindSort         Kind = "sort"
	KindAddColumn    Kind = "add_column"
	KindAddRow       Kind = "add_row"
	KindDeleteRow    Kind = "delete_row"
	KindDeleteColumn Kind = "delete_column"
)

// Kinds lists every supported change type in schema order.
var Kinds = []Kind{
	KindValue, KindFormula, KindFormat, KindSort,
	KindAddColumn, KindAddRow, KindDeleteRow, KindDeleteColumn,
}

// Target is the unresolved {type, reference} pair of a change.
type Target struct {
	Type      string
	Reference any
}

// Change is one decoded edit. Value and Parameters keep the member order
// of the original JSON.
type Change struct {
	Worksheet  string
	Kind       Kind
	Target     Target
	Value      any
	HasValue   bool
	Parameters object

	badTarget bool
}

// Param looks up a parameter by name, case-insensitively as a fallback.
func (c Change) Param(name string) (any, bool) {
	v, ok := c.Parameters.Lookup(name)
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

var errMissingFields = errors.New("change needs worksheet, type and target")

// decodeChange checks the shape of one change. A target that is present
// but not an object is reported through badTarget rather than an error so
// that it surfaces as a target failure.
func decodeChange(raw json.RawMessage) (Change, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return Change{}, errMissingFields
	}

	var c Change
	worksheet, ok := stringField(fields, "worksheet")
	if !ok {
		return Change{}, errMissingFields
	}
	c.Worksheet = worksheet

	typ, ok := stringField(fields, "type")
	if !ok {
		return Change{}, errMissingFields
	}
	c.Kind = Kind(strings.ToLower(strings.TrimSpace(typ)))

	target, ok := fields["target"]
	if !ok || isNull(target) {
		return Change{}, errMissingFields
	}
	var t struct {
		Type      string          `json:"type"`
		Reference json.RawMessage `json:"reference"`
	}
	if err := json.Unmarshal(target, &t); err != nil {
		c.badTarget = true
	} else {
		c.Target.Type = t.Type
		if len(t.Reference) > 0 {
			ref, err := decodeJSON(t.Reference)
			if err != nil {
				c.badTarget = true
			}
			c.Target.Reference = ref
		}
	}

	if v, ok := fields["value"]; ok && !isNull(v) {
		value, err := decodeJSON(v)
		if err == nil {
			c.Value, c.HasValue = value, true
		}
	}
	if p, ok := fields["parameters"]; ok && !isNull(p) {
		if params, err := decodeJSON(p); err == nil {
			if obj, ok := params.(object); ok {
				c.Parameters = obj
			}
		}
	}
	return c, nil
}

func stringField(fields map[string]json.RawMessage, name string) (string, bool) {
	raw, ok := fields[name]
	if !ok || isNull(raw) {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
